package assets

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bep/godartsass/v2"
	"github.com/rs/zerolog/log"
)

var ErrSassUnavailable = errors.New("sass support requires sass.binary to point at a dart-sass executable")

// sassCompiler starts a dart-sass process on first use and shares it for the
// rest of the build.
type sassCompiler struct {
	binary       string
	includePaths []string
	compressed   bool

	once       sync.Once
	transpiler *godartsass.Transpiler
	err        error
}

func newSassCompiler(binary string, includePaths []string, compressed bool) *sassCompiler {
	return &sassCompiler{
		binary:       binary,
		includePaths: includePaths,
		compressed:   compressed,
	}
}

func (s *sassCompiler) start() {
	if s.binary == "" {
		s.err = ErrSassUnavailable
		return
	}

	s.transpiler, s.err = godartsass.Start(godartsass.Options{
		DartSassEmbeddedFilename: s.binary,
		LogEventHandler: func(e godartsass.LogEvent) {
			log.Warn().Str("message", e.Message).Msg("Sass")
		},
	})
}

// Compile turns Sass or SCSS source into CSS.
func (s *sassCompiler) Compile(path, source string) (string, error) {
	s.once.Do(s.start)
	if s.err != nil {
		return "", s.err
	}

	args := godartsass.Args{
		Source:       source,
		URL:          "file://" + filepath.ToSlash(path),
		SourceSyntax: godartsass.SourceSyntaxSCSS,
		OutputStyle:  godartsass.OutputStyleExpanded,
		IncludePaths: append([]string{filepath.Dir(path)}, s.includePaths...),
	}
	if strings.EqualFold(filepath.Ext(path), ".sass") {
		args.SourceSyntax = godartsass.SourceSyntaxSASS
	}
	if s.compressed {
		args.OutputStyle = godartsass.OutputStyleCompressed
	}

	result, err := s.transpiler.Execute(args)
	if err != nil {
		return "", fmt.Errorf("failed to compile %s: %w", path, err)
	}
	return result.CSS, nil
}

// Close stops the dart-sass process if one was started.
func (s *sassCompiler) Close() error {
	if s.transpiler == nil {
		return nil
	}
	return s.transpiler.Close()
}

func isSass(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".scss", ".sass":
		return true
	}
	return false
}
