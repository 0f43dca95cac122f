// Package capture renders regular expression matches through a "$n" template.
//
// It is used to lift fragments out of a reply subject, for instance turning
// "RE: ticket 12-07" into "07/12" with pattern `(\d+)-(\d+)` and template
// "$2/$1", and to append them to an existing issue summary.
package capture

import (
	"fmt"
	"iter"
	"regexp"
	"strconv"
	"strings"

	"github.com/danielolaszy/mailglue/internal/logging"
)

// DefaultTemplate reproduces the whole match.
const DefaultTemplate = "$0"

var placeholderExp = regexp.MustCompile(`\$(\d+)`)

// Engine pairs a compiled pattern with an output template.
type Engine struct {
	pattern  *regexp.Regexp
	template string
}

// New compiles pattern. An optional template replaces DefaultTemplate.
func New(pattern string, template ...string) (*Engine, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	e := &Engine{pattern: re, template: DefaultTemplate}
	if len(template) > 0 && template[0] != "" {
		e.template = template[0]
	}
	return e, nil
}

// MustNew is like New but panics on a bad pattern.
func MustNew(pattern string, template ...string) *Engine {
	e, err := New(pattern, template...)
	if err != nil {
		panic(err)
	}
	return e
}

// Pattern returns the source of the compiled pattern, or "" when unset.
func (e *Engine) Pattern() string {
	if e == nil || e.pattern == nil {
		return ""
	}
	return e.pattern.String()
}

// Template returns the output template.
func (e *Engine) Template() string {
	if e == nil {
		return ""
	}
	return e.template
}

// Render yields the rendered template for each non-overlapping match of the
// pattern in input, left to right. Each range over the result scans input
// afresh. A nil Engine yields nothing.
func (e *Engine) Render(input string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if e == nil || e.pattern == nil {
			return
		}
		for _, loc := range e.pattern.FindAllStringSubmatchIndex(input, -1) {
			if !yield(e.expand(input, loc)) {
				return
			}
		}
	}
}

// All collects every rendered match.
func (e *Engine) All(input string) []string {
	var out []string
	for s := range e.Render(input) {
		out = append(out, s)
	}
	return out
}

// expand substitutes "$n" placeholders with the groups located by loc.
// Placeholders naming a group the pattern does not have stay as written.
func (e *Engine) expand(input string, loc []int) string {
	groups := len(loc) / 2
	return placeholderExp.ReplaceAllStringFunc(e.template, func(ph string) string {
		n, err := strconv.Atoi(ph[1:])
		if err != nil || n >= groups {
			return ph
		}
		start, end := loc[2*n], loc[2*n+1]
		if start < 0 {
			return ""
		}
		return input[start:end]
	})
}

// Rule is a named engine loaded from configuration.
type Rule struct {
	Name   string
	Engine *Engine
}

// AppendToSummary renders every rule against subject and appends each
// fragment to summary, separated by a space, unless summary already
// contains it. It returns the new summary and the fragments appended.
func AppendToSummary(summary, subject string, rules []Rule) (string, []string) {
	var appended []string
	for _, rule := range rules {
		for fragment := range rule.Engine.Render(subject) {
			if fragment == "" {
				continue
			}
			if strings.Contains(summary, fragment) {
				logging.Info("summary already contains fragment",
					"rule", rule.Name,
					"fragment", fragment)
				continue
			}
			summary = summary + " " + fragment
			appended = append(appended, fragment)
			logging.Debug("appending fragment to summary",
				"rule", rule.Name,
				"fragment", fragment)
		}
	}
	return summary, appended
}
