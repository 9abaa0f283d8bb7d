package assets

import (
	"sync"

	"github.com/wolfeidau/sitepack/internal/config"
)

// BuildMetadata is the subset of the esbuild metafile used to map entries to
// their output files.
type BuildMetadata struct {
	Outputs map[string]OutputInfo `json:"outputs"`
}

type OutputInfo struct {
	Bytes      int          `json:"bytes"`
	EntryPoint string       `json:"entryPoint"`
	CSSBundle  string       `json:"cssBundle"`
	Imports    []ImportInfo `json:"imports"`
}

type ImportInfo struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external"`
}

// Bundle lists the output files produced for one entry. Paths are relative
// to the output directory and use forward slashes.
type Bundle struct {
	Name       string   `json:"name"`
	Script     string   `json:"script"`
	Stylesheet string   `json:"stylesheet,omitempty"`
	Chunks     []string `json:"chunks,omitempty"`
	// Total bytes of script, stylesheet and chunks
	Size int64 `json:"size"`
}

// Result describes a successful build.
type Result struct {
	BuildID string
	// Entry name to bundle
	Bundles map[string]*Bundle
	// Every written file relative to the output directory, sorted
	Files  []string
	Assets []Asset
	Pages  []string
}

// Bundle returns the bundle built for entry name.
func (r *Result) Bundle(name string) (*Bundle, bool) {
	b, ok := r.Bundles[name]
	return b, ok
}

// Pipeline manages the asset build process and page assembly
type Pipeline struct {
	config *config.Config
	rules  Rules
	mu     sync.Mutex
	last   *Result
}

// New creates a new asset pipeline for the given configuration
func New(cfg *config.Config) (*Pipeline, error) {
	rules, err := CompileRules(cfg.Module.Rules)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		config: cfg,
		rules:  rules,
	}, nil
}

// Last returns the result of the most recent successful build.
func (p *Pipeline) Last() *Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
