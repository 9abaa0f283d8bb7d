package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BuildError carries every error message reported by esbuild.
type BuildError struct {
	Messages []string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("esbuild failed with %d error(s): %s", len(e.Messages), strings.Join(e.Messages, "; "))
}

// Build bundles every entry, assembles the configured pages and writes the
// output directory. Nothing is written unless bundling, page assembly and the
// performance budgets succeed.
func (p *Pipeline) Build(ctx context.Context) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cfg := p.config
	buildID := uuid.NewString()
	logger := zerolog.Ctx(ctx).With().Str("build_id", buildID).Logger()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info().Strs("entrypoints", cfg.EntryNames()).Bool("minimize", cfg.Minimize()).Msg("Building assets")

	refs := newReferences(p.rules, cfg.Resolve.Alias, newEmitter())
	sass := newSassCompiler(cfg.Sass.Binary, cfg.Sass.IncludePaths, cfg.Minimize())
	defer func() {
		if err := sass.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to stop sass compiler")
		}
	}()

	opts, err := p.buildOptions(refs, sass)
	if err != nil {
		return nil, err
	}

	result := api.Build(opts)

	for _, msg := range result.Warnings {
		logger.Warn().Str("warning", formatMessage(msg)).Msg("Build warning")
	}

	if len(result.Errors) > 0 {
		buildErr := &BuildError{}
		for _, msg := range result.Errors {
			text := formatMessage(msg)
			logger.Error().Str("error", text).Msg("Build error")
			buildErr.Messages = append(buildErr.Messages, text)
		}
		return nil, buildErr
	}

	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}

	res := &Result{BuildID: buildID}

	files, err := p.layout(result.OutputFiles, &metadata, res)
	if err != nil {
		return nil, err
	}

	pages, err := renderPages(cfg, res.Bundles, refs)
	if err != nil {
		return nil, err
	}

	maps.Copy(files, refs.Files())
	res.Assets = refs.Assets()

	if cfg.Output.Metafile != "" {
		files[filepath.ToSlash(cfg.Output.Metafile)] = []byte(result.Metafile)
	}
	if cfg.Output.Manifest != "" {
		manifest, err := json.MarshalIndent(res.Bundles, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode manifest: %w", err)
		}
		files[filepath.ToSlash(cfg.Output.Manifest)] = manifest
	}

	if err := checkBudgets(logger, cfg.Performance, res.Bundles, files); err != nil {
		return nil, err
	}

	if cfg.Output.Clean {
		if err := os.RemoveAll(cfg.Output.Path); err != nil {
			return nil, fmt.Errorf("failed to clean output directory: %w", err)
		}
	}

	for _, rel := range slices.Sorted(maps.Keys(files)) {
		if err := writeFile(cfg.Output.Path, rel, files[rel]); err != nil {
			return nil, err
		}
		logger.Debug().Str("file", rel).Int("bytes", len(files[rel])).Msg("Built file")
		res.Files = append(res.Files, rel)
	}

	copied, err := copyAll(cfg.Copy, cfg.Output.Path)
	if err != nil {
		return nil, err
	}
	res.Files = append(res.Files, copied...)

	for _, page := range pages {
		if err := writeFile(cfg.Output.Path, page.filename, page.doc); err != nil {
			return nil, err
		}
		res.Pages = append(res.Pages, page.filename)
	}
	res.Files = append(res.Files, res.Pages...)
	slices.Sort(res.Files)

	logger.Info().
		Int("files", len(res.Files)).
		Int("pages", len(res.Pages)).
		Int("assets", len(res.Assets)).
		Msg("Build complete")

	p.last = res
	return res, nil
}

// layout maps esbuild output files to their final location relative to the
// output directory and fills res.Bundles. Stylesheets extracted from script
// entries move to the stylesheet pattern, keeping their own content hash.
func (p *Pipeline) layout(outputs []api.OutputFile, metadata *BuildMetadata, res *Result) (map[string][]byte, error) {
	cfg := p.config

	cssFromEntry, err := newNamePattern(trimExt(cfg.Output.Filename) + ".css")
	if err != nil {
		return nil, err
	}

	entryByInput := make(map[string]string, len(cfg.Entry))
	for name, src := range cfg.Entry {
		rel, err := filepath.Rel(cfg.Context, src)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve entry %s: %w", name, err)
		}
		entryByInput[filepath.ToSlash(rel)] = name
	}

	outputRel := func(metaKey string) (string, error) {
		rel, err := filepath.Rel(cfg.Output.Path, filepath.Join(cfg.Context, filepath.FromSlash(metaKey)))
		if err != nil {
			return "", err
		}
		return filepath.ToSlash(rel), nil
	}

	contents := make(map[string][]byte, len(outputs))
	for _, file := range outputs {
		rel, err := filepath.Rel(cfg.Output.Path, file.Path)
		if err != nil {
			return nil, err
		}
		contents[filepath.ToSlash(rel)] = file.Contents
	}

	extracted := make(map[string]bool)
	for _, info := range metadata.Outputs {
		if info.CSSBundle != "" {
			extracted[info.CSSBundle] = true
		}
	}

	renames := make(map[string]string)
	res.Bundles = make(map[string]*Bundle, len(cfg.Entry))

	for _, key := range slices.Sorted(maps.Keys(metadata.Outputs)) {
		info := metadata.Outputs[key]
		name, ok := entryByInput[info.EntryPoint]
		if !ok || extracted[key] {
			continue
		}
		rel, err := outputRel(key)
		if err != nil {
			return nil, err
		}

		bundle, ok := res.Bundles[name]
		if !ok {
			bundle = &Bundle{Name: name}
			res.Bundles[name] = bundle
		}

		cssRel := ""
		switch {
		case path.Ext(rel) == ".css":
			cssRel = rel
		case info.CSSBundle != "":
			bundle.Script = rel
			if cssRel, err = outputRel(info.CSSBundle); err != nil {
				return nil, err
			}
		default:
			bundle.Script = rel
		}

		if cssRel != "" {
			_, hash, ok := cssFromEntry.match(cssRel)
			if !ok {
				hash = ContentHash(contents[cssRel])[:8]
			}
			moved := expandName(cfg.Output.CSSFilename, name, hash)
			renames[cssRel] = moved
			bundle.Stylesheet = moved
		}

		visited := map[string]bool{key: true}
		for _, chunk := range p.chunkImports(metadata, info, visited) {
			chunkRel, err := outputRel(chunk)
			if err != nil {
				return nil, err
			}
			bundle.Chunks = append(bundle.Chunks, chunkRel)
		}
	}

	files := make(map[string][]byte, len(contents))
	for rel, content := range contents {
		if moved, ok := renames[rel]; ok {
			rel = moved
		}
		files[rel] = content
	}

	for _, bundle := range res.Bundles {
		for _, rel := range bundle.Files() {
			bundle.Size += int64(len(files[rel]))
		}
	}

	for _, name := range cfg.EntryNames() {
		if _, ok := res.Bundles[name]; !ok {
			return nil, fmt.Errorf("no output produced for entry %s", name)
		}
	}

	return files, nil
}

// chunkImports returns the statically imported split chunks of an output in
// depth-first order.
func (p *Pipeline) chunkImports(metadata *BuildMetadata, output OutputInfo, visited map[string]bool) []string {
	var chunks []string
	for _, imp := range output.Imports {
		if imp.External || imp.Kind != "import-statement" || visited[imp.Path] || path.Ext(imp.Path) == ".css" {
			continue
		}
		visited[imp.Path] = true
		chunks = append(chunks, imp.Path)

		if chunkInfo, exists := metadata.Outputs[imp.Path]; exists {
			chunks = append(chunks, p.chunkImports(metadata, chunkInfo, visited)...)
		}
	}
	return chunks
}

// Files lists every output file belonging to the bundle.
func (b *Bundle) Files() []string {
	var files []string
	if b.Script != "" {
		files = append(files, b.Script)
	}
	if b.Stylesheet != "" {
		files = append(files, b.Stylesheet)
	}
	return append(files, b.Chunks...)
}

func writeFile(root, rel string, content []byte) error {
	dest := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(dest, content, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return nil
}

func formatMessage(msg api.Message) string {
	if msg.Location == nil {
		return msg.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
}

// IsBuildError reports whether err came from the bundler rather than the
// file system or configuration.
func IsBuildError(err error) bool {
	var buildErr *BuildError
	return errors.As(err, &buildErr)
}
