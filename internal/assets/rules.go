package assets

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/wolfeidau/sitepack/internal/config"
)

// Rule is a compiled module rule.
type Rule struct {
	Use     config.Pipeline
	Options config.RuleOptions
	test    *regexp.Regexp
	exclude *regexp.Regexp
}

// Rules is an ordered rule list where the first match wins.
type Rules []*Rule

// CompileRules compiles the configured test and exclude patterns.
func CompileRules(rules []config.Rule) (Rules, error) {
	compiled := make(Rules, 0, len(rules))

	for i, r := range rules {
		test, err := regexp.Compile(r.Test)
		if err != nil {
			return nil, fmt.Errorf("failed to compile rule %d test: %w", i, err)
		}

		rule := &Rule{Use: r.Use, Options: r.Options, test: test}
		if r.Exclude != "" {
			rule.exclude, err = regexp.Compile(r.Exclude)
			if err != nil {
				return nil, fmt.Errorf("failed to compile rule %d exclude: %w", i, err)
			}
		}
		compiled = append(compiled, rule)
	}

	return compiled, nil
}

// Match returns the first rule applying to path, or nil.
func (rs Rules) Match(path string) *Rule {
	path = filepath.ToSlash(path)
	for _, r := range rs {
		if !r.test.MatchString(path) {
			continue
		}
		if r.exclude != nil && r.exclude.MatchString(path) {
			continue
		}
		return r
	}
	return nil
}
