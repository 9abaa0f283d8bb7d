package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Errs []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() []error {
	return e.Errs
}

var (
	ErrUnknownEntry    = errors.New("unknown entry")
	ErrMissingTemplate = errors.New("template not found")
	ErrMissingSource   = errors.New("entry source not found")
)

// Validate checks the configuration before anything is written. All
// violations are reported together.
func (c *Config) Validate() error {
	var errs []error
	add := func(err error) {
		errs = append(errs, err)
	}

	switch c.Mode {
	case ModeDevelopment, ModeProduction:
	default:
		add(fmt.Errorf("mode %q must be %q or %q", c.Mode, ModeDevelopment, ModeProduction))
	}

	if len(c.Entry) == 0 {
		add(errors.New("entry map must not be empty"))
	}

	sources := make(map[string]string, len(c.Entry))
	for _, name := range c.EntryNames() {
		src := c.Entry[name]
		if name == "" || strings.ContainsAny(name, `/\`) {
			add(fmt.Errorf("entry name %q is not a plain name", name))
		}
		if other, ok := sources[src]; ok {
			add(fmt.Errorf("entries %q and %q share source %s", other, name, src))
		}
		sources[src] = name
		if _, err := os.Stat(src); err != nil {
			add(fmt.Errorf("%w: entry %q: %s", ErrMissingSource, name, src))
		}
	}

	if c.Baseline != "" {
		if _, ok := c.Entry[c.Baseline]; !ok {
			add(fmt.Errorf("%w: baseline %q", ErrUnknownEntry, c.Baseline))
		}
	}

	if c.Output.Path == "" {
		add(errors.New("output.path is required"))
	}
	if err := checkPattern("output.filename", c.Output.Filename, ".js", "[name]", "[hash]"); err != nil {
		add(err)
	}
	if err := checkPattern("output.chunkFilename", c.Output.ChunkFilename, ".js", "[hash]"); err != nil {
		add(err)
	}
	if err := checkPattern("output.cssFilename", c.Output.CSSFilename, ".css", "[name]", "[hash]"); err != nil {
		add(err)
	}

	for field, rel := range map[string]string{"output.metafile": c.Output.Metafile, "output.manifest": c.Output.Manifest} {
		if rel != "" && escapes(rel) {
			add(fmt.Errorf("%s %q leaves the output directory", field, rel))
		}
	}

	for prefix, dir := range c.Resolve.Alias {
		if prefix == "" || strings.HasPrefix(prefix, ".") || strings.HasPrefix(prefix, "/") {
			add(fmt.Errorf("alias %q must be a bare prefix", prefix))
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			add(fmt.Errorf("alias %q target %s is not a directory", prefix, dir))
		}
	}

	for i, rule := range c.Module.Rules {
		errs = append(errs, validateRule(i, rule)...)
	}

	filenames := make(map[string]int, len(c.Pages))
	for i, page := range c.Pages {
		errs = append(errs, c.validatePage(i, page)...)
		if prev, ok := filenames[page.Filename]; ok {
			add(fmt.Errorf("pages[%d] and pages[%d] both write %s", prev, i, page.Filename))
		}
		filenames[page.Filename] = i
	}

	for i, rule := range c.Copy {
		if rule.From == "" {
			add(fmt.Errorf("copy[%d].from is required", i))
		}
		if escapes(rule.To) {
			add(fmt.Errorf("copy[%d].to %q leaves the output directory", i, rule.To))
		}
	}

	switch c.Performance.Hints {
	case "warning", "error", "off":
	default:
		add(fmt.Errorf("performance.hints %q must be warning, error or off", c.Performance.Hints))
	}

	if c.DevServer.Port < 1 || c.DevServer.Port > 65535 {
		add(fmt.Errorf("devServer.port %d out of range", c.DevServer.Port))
	}

	if len(errs) > 0 {
		return &ValidationError{Errs: errs}
	}
	return nil
}

func (c *Config) validatePage(i int, page Page) []error {
	var errs []error

	if page.Filename == "" {
		errs = append(errs, fmt.Errorf("pages[%d].filename is required", i))
	} else if escapes(page.Filename) {
		errs = append(errs, fmt.Errorf("pages[%d].filename %q leaves the output directory", i, page.Filename))
	}

	if page.Template == "" {
		errs = append(errs, fmt.Errorf("pages[%d].template is required", i))
	} else if _, err := os.Stat(page.Template); err != nil {
		errs = append(errs, fmt.Errorf("%w: pages[%d]: %s", ErrMissingTemplate, i, page.Template))
	}

	for _, name := range page.ChunkList(c.Baseline) {
		if _, ok := c.Entry[name]; !ok {
			errs = append(errs, fmt.Errorf("%w: pages[%d] (%s) lists %q", ErrUnknownEntry, i, page.Filename, name))
		}
	}

	switch page.Inject {
	case "body", "head":
	default:
		errs = append(errs, fmt.Errorf("pages[%d].inject %q must be body or head", i, page.Inject))
	}

	return errs
}

func validateRule(i int, rule Rule) []error {
	var errs []error

	if rule.Test == "" {
		errs = append(errs, fmt.Errorf("module.rules[%d].test is required", i))
	} else if _, err := regexp.Compile(rule.Test); err != nil {
		errs = append(errs, fmt.Errorf("module.rules[%d].test: %w", i, err))
	}
	if rule.Exclude != "" {
		if _, err := regexp.Compile(rule.Exclude); err != nil {
			errs = append(errs, fmt.Errorf("module.rules[%d].exclude: %w", i, err))
		}
	}

	switch rule.Use {
	case PipelineScript, PipelineStyle, PipelineHTML:
	case PipelineAsset:
		if rule.Options.Limit != nil && *rule.Options.Limit < 0 {
			errs = append(errs, fmt.Errorf("module.rules[%d].options.limit must not be negative", i))
		}
		if escapes(rule.Options.OutputPath) {
			errs = append(errs, fmt.Errorf("module.rules[%d].options.outputPath leaves the output directory", i))
		}
		if !strings.Contains(rule.Options.Name, "[hash]") {
			errs = append(errs, fmt.Errorf("module.rules[%d].options.name must contain [hash]", i))
		}
	default:
		errs = append(errs, fmt.Errorf("module.rules[%d].use %q is not a known pipeline", i, rule.Use))
	}

	return errs
}

func checkPattern(field, pattern, ext string, placeholders ...string) error {
	if !strings.HasSuffix(pattern, ext) {
		return fmt.Errorf("%s %q must end in %s", field, pattern, ext)
	}
	for _, p := range placeholders {
		if !strings.Contains(pattern, p) {
			return fmt.Errorf("%s %q must contain %s", field, pattern, p)
		}
	}
	if escapes(pattern) {
		return fmt.Errorf("%s %q leaves the output directory", field, pattern)
	}
	return nil
}

func escapes(rel string) bool {
	if filepath.IsAbs(rel) {
		return true
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	return clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator))
}
