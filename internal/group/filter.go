package group

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Filter is a compiled boolean expression evaluated against a group.
//
// Available variables: name, origin, tabCount, domains, urls, pattern,
// created, lastAccessed, lastUsed (Unix ms) and ageDays (relative to the
// time passed to Match).
type Filter struct {
	source  string
	program *vm.Program
}

// CompileFilter compiles a filter expression such as
// `origin == "auto-domain" && tabCount > 3`.
func CompileFilter(source string) (*Filter, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("filter expression must not be empty")
	}
	program, err := expr.Compile(source, expr.Env(filterEnv(&Group{}, 0)), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	return &Filter{source: source, program: program}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	return f.source
}

// Match evaluates the filter for g. nowMillis is used for ageDays.
func (f *Filter) Match(g *Group, nowMillis int64) (bool, error) {
	out, err := expr.Run(f.program, filterEnv(g, nowMillis))
	if err != nil {
		return false, fmt.Errorf("filter %q: %w", f.source, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}

const millisPerDay = 24 * 60 * 60 * 1000

func filterEnv(g *Group, nowMillis int64) map[string]any {
	domains := make([]string, 0, len(g.Tabs))
	urls := make([]string, 0, len(g.Tabs))
	seen := make(map[string]bool, len(g.Tabs))
	for _, t := range g.Tabs {
		urls = append(urls, t.URL)
		if t.Domain != "" && !seen[t.Domain] {
			seen[t.Domain] = true
			domains = append(domains, t.Domain)
		}
	}

	var ageDays int64
	if nowMillis > 0 {
		ageDays = (nowMillis - g.LastUsed()) / millisPerDay
	}

	return map[string]any{
		"name":         g.Name,
		"origin":       string(g.DisplayOrigin()),
		"tabCount":     len(g.Tabs),
		"domains":      domains,
		"urls":         urls,
		"pattern":      g.Pattern,
		"created":      g.Created,
		"lastAccessed": g.LastAccessed,
		"lastUsed":     g.LastUsed(),
		"ageDays":      ageDays,
	}
}
