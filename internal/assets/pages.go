package assets

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wolfeidau/sitepack/internal/config"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PageError reports a page that could not be assembled.
type PageError struct {
	Page string
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("failed to assemble page %s: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

type renderedPage struct {
	filename string
	doc      []byte
}

// renderPages assembles every configured page in memory. Assets referenced
// by the templates are recorded on refs.
func renderPages(cfg *config.Config, bundles map[string]*Bundle, refs *References) ([]renderedPage, error) {
	minifier := newHTMLMinifier(cfg.HTMLMinify)
	pages := make([]renderedPage, 0, len(cfg.Pages))

	for _, page := range cfg.Pages {
		doc, err := AssemblePage(page, cfg.Baseline, bundles, refs)
		if err != nil {
			return nil, &PageError{Page: page.Filename, Err: err}
		}

		if cfg.HTMLMinify.Enabled() {
			doc, err = minifier.Minify(doc)
			if err != nil {
				return nil, &PageError{Page: page.Filename, Err: err}
			}
		}

		pages = append(pages, renderedPage{filename: filepath.ToSlash(page.Filename), doc: doc})
	}

	return pages, nil
}

// AssemblePage parses the page template and injects the bundles of exactly
// the page's chunks, the baseline entry first. Stylesheets and preloads go
// into <head>, scripts go at the end of <body> unless the page injects into
// <head>. When refs is set, local resource references in the template are
// resolved relative to it first.
func AssemblePage(page config.Page, baseline string, bundles map[string]*Bundle, refs *References) ([]byte, error) {
	f, err := os.Open(page.Template)
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	if refs != nil {
		if _, err := refs.Rewrite(doc, filepath.Dir(page.Template), page.PublicPath); err != nil {
			return nil, err
		}
	}

	head := findElement(doc, atom.Head)
	body := findElement(doc, atom.Body)
	if head == nil || body == nil {
		return nil, fmt.Errorf("template %s has no document structure", page.Template)
	}

	scriptParent := body
	if page.Inject == "head" {
		scriptParent = head
	}

	preloaded := make(map[string]bool)
	for _, name := range page.ChunkList(baseline) {
		bundle, ok := bundles[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", config.ErrUnknownEntry, name)
		}

		if bundle.Stylesheet != "" {
			head.AppendChild(element(atom.Link,
				attr("rel", "stylesheet"),
				attr("href", joinURL(page.PublicPath, bundle.Stylesheet)),
			))
		}

		for _, chunk := range bundle.Chunks {
			if preloaded[chunk] {
				continue
			}
			preloaded[chunk] = true
			head.AppendChild(element(atom.Link,
				attr("rel", "modulepreload"),
				attr("href", joinURL(page.PublicPath, chunk)),
			))
		}

		if bundle.Script != "" {
			scriptParent.AppendChild(element(atom.Script,
				attr("type", "module"),
				attr("src", joinURL(page.PublicPath, bundle.Script)),
			))
		}
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}
	return buf.Bytes(), nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}
