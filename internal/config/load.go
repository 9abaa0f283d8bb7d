package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML project file. Settings missing from the file keep their
// built-in defaults, maps and lists present in the file replace the defaults
// wholesale. Relative paths resolve against the file's context, which in turn
// defaults to the directory holding the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	root := cfg.Context
	switch {
	case root == "":
		root = filepath.Dir(abs)
	case !filepath.IsAbs(root):
		root = filepath.Join(filepath.Dir(abs), root)
	}
	cfg.normalize(root)

	return cfg, nil
}

// Parse decodes YAML onto the built-in defaults without resolving paths.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	// yaml.v3 merges into existing maps, so drop the defaults for any map the
	// document sets itself.
	if top := documentMapping(&doc); top != nil {
		if mappingValue(top, "entry") != nil {
			cfg.Entry = nil
		}
		if resolve := mappingValue(top, "resolve"); resolve != nil && mappingValue(resolve, "alias") != nil {
			cfg.Resolve.Alias = nil
		}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return cfg, nil
}

func documentMapping(doc *yaml.Node) *yaml.Node {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil
	}
	if doc.Content[0].Kind != yaml.MappingNode {
		return nil
	}
	return doc.Content[0]
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// normalize makes every path absolute against root and fills per-item
// defaults for pages and rules supplied by the file.
func (c *Config) normalize(root string) {
	c.Context = root

	for name, src := range c.Entry {
		c.Entry[name] = c.abs(src)
	}
	for prefix, dir := range c.Resolve.Alias {
		c.Resolve.Alias[prefix] = c.abs(dir)
	}

	c.Output.Path = c.abs(c.Output.Path)
	if c.Output.Filename == "" {
		c.Output.Filename = DefaultFilename
	}
	if c.Output.ChunkFilename == "" {
		c.Output.ChunkFilename = DefaultChunkName
	}
	if c.Output.CSSFilename == "" {
		c.Output.CSSFilename = DefaultCSSName
	}
	if c.Output.PublicPath == "" {
		c.Output.PublicPath = "/"
	}

	for i := range c.Module.Rules {
		rule := &c.Module.Rules[i]
		if rule.Use != PipelineAsset {
			continue
		}
		if rule.Options.Limit == nil {
			rule.Options.Limit = ptr(int64(DefaultInlineLimit))
		}
		if rule.Options.Name == "" {
			rule.Options.Name = DefaultAssetName
		}
	}

	for i := range c.Sass.IncludePaths {
		c.Sass.IncludePaths[i] = c.abs(c.Sass.IncludePaths[i])
	}

	for i := range c.Copy {
		c.Copy[i].From = c.abs(c.Copy[i].From)
	}

	for i := range c.Pages {
		page := &c.Pages[i]
		page.Template = c.abs(page.Template)
		if page.PublicPath == "" {
			page.PublicPath = "./"
		}
		if page.Inject == "" {
			page.Inject = "body"
		}
	}

	if c.Performance.Hints == "" {
		c.Performance.Hints = "warning"
	}

	if c.DevServer.Directory == "" {
		c.DevServer.Directory = c.Output.Path
	} else {
		c.DevServer.Directory = c.abs(c.DevServer.Directory)
	}
	if c.DevServer.Host == "" {
		c.DevServer.Host = "localhost"
	}
}

func (c *Config) abs(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Context, path)
}
