package assets

import (
	"fmt"
	"regexp"
	"strings"
)

// namePattern matches output paths produced from a filename pattern such as
// "js/[name].[hash].bundle.js".
type namePattern struct {
	raw string
	re  *regexp.Regexp
}

func newNamePattern(raw string) (*namePattern, error) {
	expr := regexp.QuoteMeta(raw)
	expr = strings.Replace(expr, regexp.QuoteMeta("[name]"), `(?P<name>.+?)`, 1)
	expr = strings.Replace(expr, regexp.QuoteMeta("[hash]"), `(?P<hash>[^/.]+)`, 1)

	re, err := regexp.Compile("^" + expr + "$")
	if err != nil {
		return nil, fmt.Errorf("failed to compile pattern %q: %w", raw, err)
	}
	return &namePattern{raw: raw, re: re}, nil
}

// match extracts the name and hash from a path built by this pattern.
func (p *namePattern) match(rel string) (name, hash string, ok bool) {
	m := p.re.FindStringSubmatch(rel)
	if m == nil {
		return "", "", false
	}
	for i, group := range p.re.SubexpNames() {
		switch group {
		case "name":
			name = m[i]
		case "hash":
			hash = m[i]
		}
	}
	return name, hash, true
}

func expandName(pattern, name, hash string) string {
	return strings.NewReplacer("[name]", name, "[hash]", hash).Replace(pattern)
}
