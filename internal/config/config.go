package config

import (
	"slices"
)

type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// Pipeline names the transformation chain applied to files matched by a Rule.
type Pipeline string

const (
	PipelineScript Pipeline = "script"
	PipelineStyle  Pipeline = "style"
	PipelineAsset  Pipeline = "asset"
	PipelineHTML   Pipeline = "html"
)

// Config describes how a set of named source modules is turned into hashed
// bundles and finished HTML pages. It is built once at startup and never
// mutated while a build is running.
type Config struct {
	Mode Mode `yaml:"mode"`
	// Project root, relative paths below resolve against it
	Context string `yaml:"context"`
	// Entry name to source module
	Entry map[string]string `yaml:"entry"`
	// Entry whose bundle is injected into every page
	Baseline     string       `yaml:"baseline"`
	Output       Output       `yaml:"output"`
	Resolve      Resolve      `yaml:"resolve"`
	Optimization Optimization `yaml:"optimization"`
	// Language level scripts are downlevelled to (e.g. "es2017")
	Target      string      `yaml:"target"`
	Module      Module      `yaml:"module"`
	Sass        Sass        `yaml:"sass"`
	Copy        []CopyRule  `yaml:"copy"`
	Pages       []Page      `yaml:"pages"`
	HTMLMinify  HTMLMinify  `yaml:"htmlMinify"`
	Performance Performance `yaml:"performance"`
	DevServer   DevServer   `yaml:"devServer"`
}

type Output struct {
	// Directory all artifacts are written under
	Path string `yaml:"path"`
	// Script bundle pattern, must contain [name] and [hash] and end in .js
	Filename string `yaml:"filename"`
	// Shared split chunk pattern, must contain [hash] and end in .js
	ChunkFilename string `yaml:"chunkFilename"`
	// Extracted stylesheet pattern, must contain [name] and [hash] and end in .css
	CSSFilename string `yaml:"cssFilename"`
	// Remove the output directory before writing
	Clean bool `yaml:"clean"`
	// Emit UTF-8 instead of escaping non-ASCII characters
	Charset bool `yaml:"charset"`
	// URL prefix for emitted asset references
	PublicPath string `yaml:"publicPath"`
	// Optional esbuild metafile, relative to Path
	Metafile string `yaml:"metafile,omitempty"`
	// Optional entry to file mapping, relative to Path
	Manifest string `yaml:"manifest,omitempty"`
}

type Resolve struct {
	// Symbolic import prefix to source directory, e.g. "@" -> "src"
	Alias map[string]string `yaml:"alias"`
}

type Optimization struct {
	// nil means minimize in production mode only
	Minimize     *bool `yaml:"minimize,omitempty"`
	DropConsole  bool  `yaml:"dropConsole"`
	DropDebugger bool  `yaml:"dropDebugger"`
}

type Module struct {
	Rules []Rule `yaml:"rules"`
}

// Rule applies Use to every file matching Test but not Exclude. Rules are
// tried in order and the first match wins.
type Rule struct {
	Test    string      `yaml:"test"`
	Exclude string      `yaml:"exclude,omitempty"`
	Use     Pipeline    `yaml:"use"`
	Options RuleOptions `yaml:"options,omitempty"`
}

type RuleOptions struct {
	// Inline as a data URL at or below this many bytes, 0 emits every file
	Limit *int64 `yaml:"limit,omitempty"`
	// Subdirectory of the output directory for emitted files
	OutputPath string `yaml:"outputPath,omitempty"`
	// Emitted file name pattern using [name], [hash] and [ext]
	Name string `yaml:"name,omitempty"`
}

// InlineLimit returns the configured limit or DefaultInlineLimit when unset.
func (o RuleOptions) InlineLimit() int64 {
	if o.Limit == nil {
		return DefaultInlineLimit
	}
	return *o.Limit
}

type Sass struct {
	// Path to the dart-sass executable, Sass sources fail to build when empty
	Binary       string   `yaml:"binary,omitempty"`
	IncludePaths []string `yaml:"includePaths,omitempty"`
}

type CopyRule struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Page maps an HTML template and a list of entries to one finished page.
type Page struct {
	Template string `yaml:"template"`
	// Output file name relative to the output directory
	Filename string   `yaml:"filename"`
	Chunks   []string `yaml:"chunks"`
	// Prefix for bundle references inside this page
	PublicPath string `yaml:"publicPath"`
	// Where scripts are injected, "body" or "head"
	Inject string `yaml:"inject"`
}

// ChunkList returns the page chunk list with the baseline entry first and
// duplicates removed.
func (p Page) ChunkList(baseline string) []string {
	chunks := make([]string, 0, len(p.Chunks)+1)
	if baseline != "" {
		chunks = append(chunks, baseline)
	}
	for _, name := range p.Chunks {
		if !slices.Contains(chunks, name) {
			chunks = append(chunks, name)
		}
	}
	return chunks
}

// HTMLMinify is the option set shared by every page.
type HTMLMinify struct {
	CollapseWhitespace            bool `yaml:"collapseWhitespace"`
	RemoveComments                bool `yaml:"removeComments"`
	RemoveRedundantAttributes     bool `yaml:"removeRedundantAttributes"`
	UseShortDoctype               bool `yaml:"useShortDoctype"`
	RemoveEmptyAttributes         bool `yaml:"removeEmptyAttributes"`
	RemoveStyleLinkTypeAttributes bool `yaml:"removeStyleLinkTypeAttributes"`
	KeepClosingSlash              bool `yaml:"keepClosingSlash"`
	MinifyJS                      bool `yaml:"minifyJS"`
	MinifyCSS                     bool `yaml:"minifyCSS"`
	MinifyURLs                    bool `yaml:"minifyURLs"`
}

// Enabled reports whether any minification is requested.
func (h HTMLMinify) Enabled() bool {
	return h != HTMLMinify{}
}

type Performance struct {
	// "warning", "error" or "off"
	Hints             string `yaml:"hints"`
	MaxAssetSize      int64  `yaml:"maxAssetSize"`
	MaxEntrypointSize int64  `yaml:"maxEntrypointSize"`
}

type DevServer struct {
	Directory string `yaml:"directory"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Compress  bool   `yaml:"compress"`
	Open      bool   `yaml:"open"`
	Hot       bool   `yaml:"hot"`
}

// Minimize resolves the effective minimize flag for the configured mode.
func (c *Config) Minimize() bool {
	if c.Optimization.Minimize != nil {
		return *c.Optimization.Minimize
	}
	return c.Mode == ModeProduction
}

// EntryNames returns the entry names in sorted order.
func (c *Config) EntryNames() []string {
	names := make([]string, 0, len(c.Entry))
	for name := range c.Entry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
