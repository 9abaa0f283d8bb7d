package assets

import (
	"encoding/base64"
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Disposition is what happens to a binary asset referenced from a bundle.
type Disposition int

const (
	// Inline embeds the asset as a data URL in the referencing bundle.
	Inline Disposition = iota
	// Emit writes the asset to its class directory and references it by URL.
	Emit
)

func (d Disposition) String() string {
	if d == Inline {
		return "inline"
	}
	return "emit"
}

// Decide applies the size gate: assets at or below limit are inlined.
func Decide(size, limit int64) Disposition {
	if size <= limit {
		return Inline
	}
	return Emit
}

// Asset is the resolved reference for one binary asset.
type Asset struct {
	Source      string
	Disposition Disposition
	// Data URL or public URL, depending on Disposition
	Ref string
	// Output-relative path, set when emitted
	Path string
}

var extraTypes = map[string]string{
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".eot":   "application/vnd.ms-fontobject",
	".mp4":   "video/mp4",
	".m4v":   "video/mp4",
	".webm":  "video/webm",
	".mov":   "video/quicktime",
	".qt":    "video/quicktime",
	".avi":   "video/x-msvideo",
	".wmv":   "video/x-ms-wmv",
	".mkv":   "video/x-matroska",
	".flv":   "video/x-flv",
	".mpeg":  "video/mpeg",
	".mpg":   "video/mpeg",
	".3gp":   "video/3gpp",
	".3g2":   "video/3gpp2",
}

func mimeType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := extraTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		mediaType, _, err := mime.ParseMediaType(t)
		if err == nil {
			return mediaType
		}
	}
	return "application/octet-stream"
}

// DataURL encodes content as a base64 data URL typed by the file extension.
func DataURL(name string, content []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType(name), base64.StdEncoding.EncodeToString(content))
}

// ContentHash is a short stable fingerprint of content.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(content))
}

// AssetName expands a [name].[hash].[ext] pattern for source under dir.
func AssetName(dir, pattern, source string, content []byte) string {
	base := filepath.Base(source)
	ext := filepath.Ext(base)

	r := strings.NewReplacer(
		"[name]", strings.TrimSuffix(base, ext),
		"[hash]", ContentHash(content),
		"[ext]", strings.TrimPrefix(ext, "."),
	)
	return path.Join(filepath.ToSlash(dir), r.Replace(pattern))
}

// ResolveAsset decides how content read from source is referenced. Emitted
// assets are named under rule's output path and addressed via publicPath.
func ResolveAsset(rule *Rule, publicPath, source string, content []byte) Asset {
	asset := Asset{
		Source:      source,
		Disposition: Decide(int64(len(content)), rule.Options.InlineLimit()),
	}

	if asset.Disposition == Inline {
		asset.Ref = DataURL(source, content)
		return asset
	}

	asset.Path = AssetName(rule.Options.OutputPath, rule.Options.Name, source, content)
	asset.Ref = joinURL(publicPath, asset.Path)
	return asset
}

func joinURL(base, rel string) string {
	if base == "" {
		return rel
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(rel, "/")
}
