package group

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders groups as a markdown document, one section per
// group in the given order.
func RenderMarkdown(groups []*Group) string {
	var b strings.Builder
	b.WriteString("# Tab groups\n\n")

	if len(groups) == 0 {
		b.WriteString("_No groups saved yet._\n")
		return b.String()
	}

	for _, g := range groups {
		fmt.Fprintf(&b, "## %s\n\n", escapeMarkdown(g.Name))

		tabWord := "tabs"
		if len(g.Tabs) == 1 {
			tabWord = "tab"
		}
		fmt.Fprintf(&b, "%d %s · %s · last used %s\n\n",
			len(g.Tabs), tabWord, g.DisplayOrigin(), formatMillis(g.LastUsed()))

		if g.Pattern != "" {
			fmt.Fprintf(&b, "Pattern: `%s`\n\n", strings.ReplaceAll(g.Pattern, "`", "'"))
		}

		for _, t := range g.Tabs {
			fmt.Fprintf(&b, "- [%s](<%s>)\n", escapeMarkdown(t.DisplayTitle()), t.URL)
		}
		if len(g.Tabs) > 0 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

// markdownEscaper escapes characters that would otherwise start markdown syntax.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`,
	"[", `\[`, "]", `\]`, "<", `\<`, ">", `\>`, "#", `\#`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// formatMillis formats a Unix millisecond timestamp as "2006-01-02 15:04" UTC.
func formatMillis(ms int64) string {
	if ms == 0 {
		return "never"
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}
