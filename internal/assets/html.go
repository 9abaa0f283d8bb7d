package assets

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/wolfeidau/sitepack/internal/config"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// refAttrs lists the attributes holding resource references, per element.
var refAttrs = map[atom.Atom][]string{
	atom.Img:    {"src", "srcset"},
	atom.Source: {"src", "srcset"},
	atom.Video:  {"src", "poster"},
	atom.Audio:  {"src"},
	atom.Track:  {"src"},
	atom.Link:   {"href"},
}

// References resolves the resource references found in HTML templates and
// fragments through the asset rules. Emitted assets are recorded so the
// build writes them next to the bundles.
type References struct {
	rules   Rules
	aliases map[string]string
	prefix  []string
	out     *emitter
}

// NewReferences returns a resolver with its own set of recorded assets.
func NewReferences(rules Rules, aliases map[string]string) *References {
	return newReferences(rules, aliases, newEmitter())
}

func newReferences(rules Rules, aliases map[string]string, out *emitter) *References {
	prefix := slices.Collect(maps.Keys(aliases))
	// longest prefix wins
	slices.SortFunc(prefix, func(a, b string) int { return len(b) - len(a) })

	return &References{rules: rules, aliases: aliases, prefix: prefix, out: out}
}

// Assets returns every asset referenced so far.
func (r *References) Assets() []Asset {
	return r.out.Assets()
}

// Files returns the content of every emitted asset keyed by output path.
func (r *References) Files() map[string][]byte {
	return r.out.Files()
}

// Rewrite replaces the local resource references below n, resolved relative
// to dir, with data URLs or the publicPath-joined emitted path. It reports
// whether any attribute changed.
func (r *References) Rewrite(n *html.Node, dir, publicPath string) (bool, error) {
	changed := false

	if n.Type == html.ElementNode {
		for i := range n.Attr {
			a := &n.Attr[i]
			if !isRefAttr(n, a.Key) {
				continue
			}

			var (
				val string
				err error
			)
			if a.Key == "srcset" {
				val, err = r.resolveSrcset(dir, publicPath, a.Val)
			} else {
				val, err = r.resolve(dir, publicPath, a.Val)
			}
			if err != nil {
				return false, err
			}
			if val != a.Val {
				a.Val = val
				changed = true
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		ok, err := r.Rewrite(c, dir, publicPath)
		if err != nil {
			return false, err
		}
		changed = changed || ok
	}
	return changed, nil
}

// RewriteFragment rewrites the references of an imported HTML fragment read
// from path. The source is returned untouched when nothing is referenced.
func (r *References) RewriteFragment(path, source, publicPath string) (string, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(source), body)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", path, err)
	}

	changed := false
	for _, n := range nodes {
		ok, err := r.Rewrite(n, filepath.Dir(path), publicPath)
		if err != nil {
			return "", err
		}
		changed = changed || ok
	}
	if !changed {
		return source, nil
	}

	var buf strings.Builder
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("failed to render %s: %w", path, err)
		}
	}
	return buf.String(), nil
}

func (r *References) resolve(dir, publicPath, ref string) (string, error) {
	if !isLocalRef(ref) {
		return ref, nil
	}

	source := r.localPath(dir, stripSuffix(ref))
	rule := r.rules.Match(source)
	if rule == nil || rule.Use != config.PipelineAsset {
		return ref, nil
	}

	content, err := os.ReadFile(source)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", ref, err)
	}

	asset := ResolveAsset(rule, publicPath, source, content)
	r.out.record(asset, content)
	return asset.Ref, nil
}

func (r *References) resolveSrcset(dir, publicPath, srcset string) (string, error) {
	candidates := strings.Split(srcset, ",")
	changed := false

	for i, candidate := range candidates {
		fields := strings.Fields(candidate)
		if len(fields) == 0 {
			continue
		}
		ref, err := r.resolve(dir, publicPath, fields[0])
		if err != nil {
			return "", err
		}
		if ref != fields[0] {
			fields[0] = ref
			changed = true
		}
		candidates[i] = strings.Join(fields, " ")
	}

	if !changed {
		return srcset, nil
	}
	return strings.Join(candidates, ", "), nil
}

func (r *References) localPath(dir, ref string) string {
	for _, prefix := range r.prefix {
		if ref == prefix || strings.HasPrefix(ref, prefix+"/") {
			return filepath.Join(r.aliases[prefix], filepath.FromSlash(strings.TrimPrefix(ref, prefix)))
		}
	}
	return filepath.Join(dir, filepath.FromSlash(ref))
}

func isRefAttr(n *html.Node, key string) bool {
	if !slices.Contains(refAttrs[n.DataAtom], key) {
		return false
	}
	if n.DataAtom != atom.Link {
		return true
	}

	for _, a := range n.Attr {
		if a.Key == "rel" && strings.Contains(strings.ToLower(a.Val), "icon") {
			return true
		}
	}
	return false
}

// isLocalRef reports whether ref names a file relative to the document.
// Root-relative paths already address the output directory.
func isLocalRef(ref string) bool {
	if ref == "" || isRemote(ref) || strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, "#") {
		return false
	}
	// any scheme, e.g. mailto: or blob:
	if i := strings.IndexAny(ref, ":/"); i > 0 && ref[i] == ':' {
		return false
	}
	return true
}
