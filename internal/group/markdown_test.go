package group

import (
	"strings"
	"testing"
)

func TestRenderMarkdown_Empty(t *testing.T) {
	md := RenderMarkdown(nil)
	if !strings.Contains(md, "No groups saved yet") {
		t.Errorf("empty render missing placeholder: %q", md)
	}
}

func TestRenderMarkdown_Groups(t *testing.T) {
	groups := []*Group{
		{
			ID:      "g1",
			Name:    "Work_stuff",
			Created: 1700000000000,
			Tabs: []TabRef{
				{URL: "https://a.com/x", Title: "A [draft]"},
				{URL: "https://b.com"},
			},
		},
		{
			ID:      "g2",
			Name:    "Docs",
			Origin:  OriginPattern,
			Pattern: "docs",
			Tabs:    []TabRef{{URL: "https://docs.dev", Title: "Docs"}},
		},
	}

	md := RenderMarkdown(groups)

	for _, want := range []string{
		`## Work\_stuff`,
		"2 tabs · manual",
		`- [A \[draft\]](<https://a.com/x>)`,
		"- [https://b.com](<https://b.com>)",
		"1 tab · pattern · last used never",
		"Pattern: `docs`",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}

	if strings.Index(md, "Work") > strings.Index(md, "Docs\n") {
		t.Error("groups should be rendered in the given order")
	}
}
