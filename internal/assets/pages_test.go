package assets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/sitepack/internal/config"
)

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
  <head>
    <!-- page head -->
    <meta charset="utf-8">
    <title>Index</title>
  </head>
  <body>
    <main id="app">  Hello   world  </main>
  </body>
</html>
`

func writeTemplate(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testBundles() map[string]*Bundle {
	return map[string]*Bundle{
		"common": {Name: "common", Script: "js/common.AAAA.bundle.js", Stylesheet: "style/common.BBBB.bundle.css", Chunks: []string{"js/chunks/chunk.CCCC.js"}},
		"index":  {Name: "index", Script: "js/index.DDDD.bundle.js", Chunks: []string{"js/chunks/chunk.CCCC.js"}},
		"leave":  {Name: "leave", Script: "js/leave.EEEE.bundle.js", Stylesheet: "style/leave.FFFF.bundle.css"},
	}
}

func TestAssemblePage(t *testing.T) {
	page := config.Page{
		Template:   writeTemplate(t, pageTemplate),
		Filename:   "index.html",
		Chunks:     []string{"common", "index"},
		PublicPath: "./",
		Inject:     "body",
	}

	doc, err := AssemblePage(page, "common", testBundles(), nil)
	require.NoError(t, err)
	out := string(doc)

	require.Equal(t, 2, strings.Count(out, "<script"))
	require.Contains(t, out, `<script type="module" src="./js/common.AAAA.bundle.js"></script>`)
	require.Contains(t, out, `<script type="module" src="./js/index.DDDD.bundle.js"></script>`)
	require.Contains(t, out, `<link rel="stylesheet" href="./style/common.BBBB.bundle.css"/>`)
	require.Equal(t, 1, strings.Count(out, "modulepreload"), "shared chunk is preloaded once")
	require.NotContains(t, out, "leave")

	// baseline script comes before the page script, both at the end of body
	require.Less(t, strings.Index(out, "common.AAAA"), strings.Index(out, "index.DDDD"))
	require.Less(t, strings.Index(out, "</main>"), strings.Index(out, "<script"))
	require.Less(t, strings.Index(out, "stylesheet"), strings.Index(out, "</head>"))
}

func TestAssemblePage_baselineAddedWhenMissing(t *testing.T) {
	page := config.Page{
		Template:   writeTemplate(t, pageTemplate),
		Chunks:     []string{"leave"},
		PublicPath: "/",
		Inject:     "head",
	}

	doc, err := AssemblePage(page, "common", testBundles(), nil)
	require.NoError(t, err)
	out := string(doc)

	require.Equal(t, 2, strings.Count(out, "<script"))
	require.Contains(t, out, `src="/js/common.AAAA.bundle.js"`)
	require.Contains(t, out, `href="/style/leave.FFFF.bundle.css"`)
	require.Less(t, strings.Index(out, "<script"), strings.Index(out, "</head>"))
}

func TestAssemblePage_unknownChunk(t *testing.T) {
	page := config.Page{
		Template: writeTemplate(t, pageTemplate),
		Chunks:   []string{"missing"},
	}

	_, err := AssemblePage(page, "common", testBundles(), nil)
	require.ErrorIs(t, err, config.ErrUnknownEntry)
}

func TestAssemblePage_missingTemplate(t *testing.T) {
	page := config.Page{Template: filepath.Join(t.TempDir(), "nope.html")}

	_, err := AssemblePage(page, "", testBundles(), nil)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestHTMLMinifier(t *testing.T) {
	page := config.Page{
		Template:   writeTemplate(t, pageTemplate),
		Chunks:     []string{"common", "index"},
		PublicPath: "./",
		Inject:     "body",
	}
	doc, err := AssemblePage(page, "common", testBundles(), nil)
	require.NoError(t, err)

	minified, err := newHTMLMinifier(config.Default(t.TempDir()).HTMLMinify).Minify(doc)
	require.NoError(t, err)
	out := string(minified)

	require.Less(t, len(minified), len(doc))
	require.NotContains(t, out, "page head")
	require.NotContains(t, out, "\n    ")
	require.Equal(t, 2, strings.Count(out, "<script"))
	require.Contains(t, out, "js/index.DDDD.bundle.js")

	kept, err := newHTMLMinifier(config.HTMLMinify{CollapseWhitespace: true}).Minify(doc)
	require.NoError(t, err)
	require.Contains(t, string(kept), "page head")
}
