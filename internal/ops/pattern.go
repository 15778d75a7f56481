package ops

import (
	"context"
	"regexp"
	"strings"

	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/group"
)

// GroupByPatternInput contains parameters for the GroupByPattern operation.
type GroupByPatternInput struct {
	Tabs          []group.Tab // nil: current window tabs from the tab host
	Pattern       string      // case-insensitive regular expression matched against tab URLs
	Name          string      // empty: "Pattern: " + first 20 characters of Pattern
	IncludePinned *bool       // nil: includePinnedTabs setting
}

// GroupByPatternOutput contains the result of the GroupByPattern operation.
type GroupByPatternOutput struct {
	ID      string    `json:"id"`
	Group   GroupView `json:"group"`
	Matched int       `json:"matched"`
}

// GroupByPattern creates a pattern group from the tabs whose URL matches
// Pattern. A malformed pattern matches nothing.
func (e *Engine) GroupByPattern(ctx context.Context, input GroupByPatternInput) (*GroupByPatternOutput, error) {
	if strings.TrimSpace(input.Pattern) == "" {
		return nil, errors.NewInvalidRequest("pattern is required")
	}
	tabs, err := e.resolveTabs(ctx, input.Tabs)
	if err != nil {
		return nil, err
	}
	match := compilePattern(input.Pattern)

	var out *GroupByPatternOutput
	err = e.submit(ctx, "group_by_pattern", func(tx *txn) error {
		var matched []group.Tab
		for _, t := range group.FilterPinned(tabs, tx.includePinned(input.IncludePinned)) {
			if match(t.URL) {
				matched = append(matched, t)
			}
		}
		if len(matched) == 0 {
			return errors.NewNoMatches(input.Pattern)
		}

		name := group.CleanName(input.Name)
		if name == "" {
			name = group.PatternName(input.Pattern)
		}
		g, err := tx.insert(&group.Group{
			Name:    name,
			Tabs:    group.SnapshotTabs(matched),
			Origin:  group.OriginPattern,
			Pattern: input.Pattern,
		})
		if err != nil {
			return err
		}
		out = &GroupByPatternOutput{ID: g.ID, Group: viewOf(g), Matched: len(matched)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// compilePattern returns a case-insensitive matcher. Invalid patterns never match.
func compilePattern(pattern string) func(string) bool {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return func(string) bool { return false }
	}
	return re.MatchString
}
