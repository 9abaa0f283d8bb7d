package config

const (
	// DefaultInlineLimit is the size in bytes at or below which binary assets
	// are embedded as data URLs.
	DefaultInlineLimit = 8192

	DefaultAssetName = "[name].[hash].[ext]"
	DefaultFilename  = "js/[name].[hash].bundle.js"
	DefaultChunkName = "js/chunks/[name].[hash].js"
	DefaultCSSName   = "style/[name].[hash].bundle.css"
)

// Default returns the built-in site configuration rooted at root.
func Default(root string) *Config {
	cfg := defaults()
	cfg.Context = root
	cfg.normalize(root)
	return cfg
}

func defaults() *Config {
	return &Config{
		Mode:     ModeProduction,
		Baseline: "common",
		Entry: map[string]string{
			"common":       "src/common.js",
			"index":        "src/index.js",
			"leave":        "src/leave.js",
			"contributors": "src/contributors.js",
			"sponsors":     "src/sponsors.js",
			"sponsorsnow":  "src/sponsors-now.js",
			"zsxq":         "src/zsxq.js",
			"notfound":     "src/404.js",
		},
		Output: Output{
			Path:          "docs",
			Filename:      DefaultFilename,
			ChunkFilename: DefaultChunkName,
			CSSFilename:   DefaultCSSName,
			Clean:         true,
			Charset:       true,
			PublicPath:    "/",
		},
		Resolve: Resolve{
			Alias: map[string]string{"@": "src"},
		},
		Optimization: Optimization{
			DropConsole:  true,
			DropDebugger: true,
		},
		Target: "es2017",
		Module: Module{Rules: DefaultRules()},
		Copy: []CopyRule{
			{From: "public", To: "./"},
			{From: "config.json", To: "CONFIG.json"},
		},
		Pages: []Page{
			sitePage("index.html", "index.html", "index"),
			sitePage("leave.html", "leave.html", "leave"),
			sitePage("contributors.html", "contributors.html", "contributors"),
			sitePage("sponsors.html", "sponsors.html", "sponsors"),
			sitePage("sponsors-now.html", "sponsors-now.html", "sponsorsnow"),
			sitePage("zsxq.html", "zsxq.html", "zsxq"),
			sitePage("404.html", "404.html", "notfound"),
		},
		HTMLMinify: HTMLMinify{
			CollapseWhitespace:            true,
			RemoveComments:                true,
			RemoveRedundantAttributes:     true,
			UseShortDoctype:               true,
			RemoveEmptyAttributes:         true,
			RemoveStyleLinkTypeAttributes: true,
			KeepClosingSlash:              true,
			MinifyJS:                      true,
			MinifyCSS:                     true,
			MinifyURLs:                    true,
		},
		Performance: Performance{
			Hints:             "warning",
			MaxAssetSize:      5000000,
			MaxEntrypointSize: 10000000,
		},
		DevServer: DevServer{
			Host:     "localhost",
			Port:     1001,
			Compress: true,
			Open:     true,
			Hot:      false,
		},
	}
}

func sitePage(template, filename, entry string) Page {
	return Page{
		Template:   "src/html/" + template,
		Filename:   filename,
		Chunks:     []string{"common", entry},
		PublicPath: "./",
		Inject:     "body",
	}
}

// DefaultRules returns the rule set for scripts, stylesheets, images, videos,
// fonts and HTML fragments.
func DefaultRules() []Rule {
	return []Rule{
		{Test: `\.(js|mjs|cjs)$`, Exclude: `(node_modules|bower_components)`, Use: PipelineScript},
		{Test: `\.(css|scss|sass)$`, Use: PipelineStyle},
		assetRule(`(?i)\.(png|jpg|jpeg|svg|gif)$`, "images"),
		assetRule(`(?i)\.(mp4|m4v|avi|mov|qt|wmv|mkv|flv|webm|mpeg|mpg|3gp|3g2)$`, "videos"),
		assetRule(`(?i)\.(woff|woff2|eot|ttf|otf)$`, "fonts"),
		{Test: `(?i)\.html$`, Use: PipelineHTML},
	}
}

func assetRule(test, outputPath string) Rule {
	return Rule{
		Test: test,
		Use:  PipelineAsset,
		Options: RuleOptions{
			Limit:      ptr(int64(DefaultInlineLimit)),
			OutputPath: outputPath,
			Name:       DefaultAssetName,
		},
	}
}

func ptr[T any](v T) *T {
	return &v
}
