package assets

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/sitepack/internal/config"
)

func TestRules_Match(t *testing.T) {
	rules, err := CompileRules(config.DefaultRules())
	require.NoError(t, err)

	tests := []struct {
		path     string
		use      config.Pipeline
		output   string
		expected bool
	}{
		{path: "/site/src/index.js", use: config.PipelineScript, expected: true},
		{path: "/site/src/worker.mjs", use: config.PipelineScript, expected: true},
		{path: "/site/node_modules/lib/index.js", expected: false},
		{path: "/site/src/main.scss", use: config.PipelineStyle, expected: true},
		{path: "/site/src/main.css", use: config.PipelineStyle, expected: true},
		{path: "/site/src/img/logo.PNG", use: config.PipelineAsset, output: "images", expected: true},
		{path: "/site/src/media/intro.mp4", use: config.PipelineAsset, output: "videos", expected: true},
		{path: "/site/src/fonts/a.woff2", use: config.PipelineAsset, output: "fonts", expected: true},
		{path: "/site/src/html/part.html", use: config.PipelineHTML, expected: true},
		{path: "/site/src/data.json", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rule := rules.Match(tt.path)
			if !tt.expected {
				require.Nil(t, rule)
				return
			}
			require.NotNil(t, rule)
			require.Equal(t, tt.use, rule.Use)
			require.Equal(t, tt.output, rule.Options.OutputPath)
		})
	}
}

func TestRules_firstMatchWins(t *testing.T) {
	rules, err := CompileRules([]config.Rule{
		{Test: `\.svg$`, Use: config.PipelineHTML},
		{Test: `\.(png|svg)$`, Use: config.PipelineAsset},
	})
	require.NoError(t, err)

	require.Equal(t, config.PipelineHTML, rules.Match("icon.svg").Use)
	require.Equal(t, config.PipelineAsset, rules.Match("icon.png").Use)
}

func TestCompileRules_invalid(t *testing.T) {
	_, err := CompileRules([]config.Rule{{Test: `(`}})
	require.Error(t, err)

	_, err = CompileRules([]config.Rule{{Test: `\.js$`, Exclude: `[`}})
	require.Error(t, err)
}

func TestNamePattern(t *testing.T) {
	p, err := newNamePattern("js/[name].[hash].bundle.css")
	require.NoError(t, err)

	name, hash, ok := p.match("js/sponsors-now.ABCD1234.bundle.css")
	require.True(t, ok)
	require.Equal(t, "sponsors-now", name)
	require.Equal(t, "ABCD1234", hash)

	_, _, ok = p.match("style/index.ABCD1234.bundle.css")
	require.False(t, ok)

	require.Equal(t, "style/index.ABCD1234.bundle.css", expandName(config.DefaultCSSName, "index", "ABCD1234"))
}
