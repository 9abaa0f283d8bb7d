package assets

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/sitepack/internal/config"
)

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"es2023": api.ES2023,
	"es2024": api.ES2024,
	"esnext": api.ESNext,
}

func parseTarget(name string) (api.Target, error) {
	if name == "" {
		return api.ES2017, nil
	}
	target, ok := targets[strings.ToLower(name)]
	if !ok {
		return api.DefaultTarget, fmt.Errorf("unsupported target %q", name)
	}
	return target, nil
}

// buildOptions translates the configuration into a single esbuild run over
// every entry. Output is kept in memory so nothing is written unless the
// whole build succeeds.
func (p *Pipeline) buildOptions(refs *References, sass *sassCompiler) (api.BuildOptions, error) {
	cfg := p.config

	target, err := parseTarget(cfg.Target)
	if err != nil {
		return api.BuildOptions{}, err
	}

	entries := make([]api.EntryPoint, 0, len(cfg.Entry))
	for _, name := range cfg.EntryNames() {
		entries = append(entries, api.EntryPoint{
			InputPath:  cfg.Entry[name],
			OutputPath: name,
		})
	}

	minify := cfg.Minimize()

	var drop api.Drop
	if minify && cfg.Optimization.DropConsole {
		drop |= api.DropConsole
	}
	if minify && cfg.Optimization.DropDebugger {
		drop |= api.DropDebugger
	}

	return api.BuildOptions{
		AbsWorkingDir:       cfg.Context,
		EntryPointsAdvanced: entries,
		Bundle:              true,
		Splitting:           true,
		Write:               false,
		Outdir:              cfg.Output.Path,
		EntryNames:          trimExt(cfg.Output.Filename),
		ChunkNames:          trimExt(cfg.Output.ChunkFilename),
		Format:              api.FormatESModule,
		Platform:            api.PlatformBrowser,
		Target:              target,
		MinifyWhitespace:    minify,
		MinifyIdentifiers:   minify,
		MinifySyntax:        minify,
		Drop:                drop,
		TreeShaking:         api.TreeShakingTrue,
		Charset:             cond(cfg.Output.Charset, api.CharsetUTF8, api.CharsetDefault),
		Sourcemap:           cond(cfg.Mode == config.ModeDevelopment, api.SourceMapInline, api.SourceMapNone),
		LogLevel:            api.LogLevelSilent,
		Metafile:            true,
		Plugins: []api.Plugin{
			assetPlugin(p.rules, cfg.Output.PublicPath, refs.out),
			aliasPlugin(cfg.Resolve.Alias),
			rulesPlugin(p.rules, sass, refs, cfg.Output.PublicPath),
		},
	}, nil
}

// trimExt turns "js/[name].[hash].bundle.js" into the extension-less form
// esbuild expects for entry and chunk names.
func trimExt(pattern string) string {
	return strings.TrimSuffix(pattern, filepath.Ext(pattern))
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
