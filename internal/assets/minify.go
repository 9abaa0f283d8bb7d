package assets

import (
	"fmt"
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	mhtml "github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/wolfeidau/sitepack/internal/config"
)

var scriptTypes = regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$")

type htmlMinifier struct {
	m *minify.M
}

// newHTMLMinifier maps the shared page option set onto the minifier. Inline
// <script> and <style> contents are only minified when requested.
func newHTMLMinifier(opts config.HTMLMinify) *htmlMinifier {
	m := minify.New()

	m.Add("text/html", &mhtml.Minifier{
		KeepComments:        !opts.RemoveComments,
		KeepWhitespace:      !opts.CollapseWhitespace,
		KeepDefaultAttrVals: !opts.RemoveRedundantAttributes && !opts.RemoveStyleLinkTypeAttributes,
		KeepDocumentTags:    true,
		KeepEndTags:         true,
	})

	if opts.MinifyCSS {
		m.AddFunc("text/css", css.Minify)
	}
	if opts.MinifyJS {
		m.AddFuncRegexp(scriptTypes, js.Minify)
	}

	return &htmlMinifier{m: m}
}

func (h *htmlMinifier) Minify(doc []byte) ([]byte, error) {
	out, err := h.m.Bytes("text/html", doc)
	if err != nil {
		return nil, fmt.Errorf("failed to minify page: %w", err)
	}
	return out, nil
}
