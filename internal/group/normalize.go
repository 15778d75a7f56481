package group

import (
	"net/url"
	"strings"
)

// DefaultGroupName is used when a group is saved without a usable name.
const DefaultGroupName = "New Group"

// patternNameChars is how much of a pattern is used to name an unnamed pattern group.
const patternNameChars = 20

// ExtractDomain returns the lowercased host name of rawURL, without port.
// Unparseable URLs and URLs without a host yield "".
func ExtractDomain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// DisplayDomain strips a single leading "www." from a domain.
func DisplayDomain(domain string) string {
	return strings.TrimPrefix(domain, "www.")
}

// CleanName trims surrounding whitespace from a group name.
func CleanName(name string) string {
	return strings.TrimSpace(name)
}

// DefaultName returns the display domain of the first tab that has one,
// or DefaultGroupName.
func DefaultName(tabs []Tab) string {
	for _, t := range tabs {
		if d := DisplayDomain(ExtractDomain(t.URL)); d != "" {
			return d
		}
	}
	return DefaultGroupName
}

// PatternName returns the fallback name for a pattern group.
func PatternName(pattern string) string {
	r := []rune(pattern)
	if len(r) > patternNameChars {
		r = r[:patternNameChars]
	}
	return "Pattern: " + string(r)
}

// NewTabRef snapshots a live tab. The domain is extracted once, here.
func NewTabRef(t Tab) TabRef {
	return TabRef{
		URL:    t.URL,
		Title:  t.Title,
		Domain: ExtractDomain(t.URL),
	}
}

// FilterPinned drops pinned tabs unless includePinned is set, and always drops
// tabs without a URL.
func FilterPinned(tabs []Tab, includePinned bool) []Tab {
	out := make([]Tab, 0, len(tabs))
	for _, t := range tabs {
		if strings.TrimSpace(t.URL) == "" {
			continue
		}
		if t.Pinned && !includePinned {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SnapshotTabs converts live tabs into tab references, preserving order.
func SnapshotTabs(tabs []Tab) []TabRef {
	refs := make([]TabRef, len(tabs))
	for i, t := range tabs {
		refs[i] = NewTabRef(t)
	}
	return refs
}
