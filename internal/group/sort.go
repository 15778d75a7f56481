package group

import (
	"sort"
	"strings"
)

// SortOrder selects how groups are ordered for display.
type SortOrder string

const (
	SortRecent  SortOrder = "recent"  // last use, newest first (quick switch)
	SortCreated SortOrder = "created" // creation time, newest first (popup)
	SortName    SortOrder = "name"
)

// Sorted returns the groups of c ordered by the given sort order.
// Ties are broken by id so the result is deterministic.
func Sorted(c Collection, order SortOrder) []*Group {
	out := make([]*Group, 0, len(c))
	for _, g := range c {
		out = append(out, g)
	}

	less := func(a, b *Group) bool {
		switch order {
		case SortCreated:
			if a.Created != b.Created {
				return a.Created > b.Created
			}
		case SortName:
			an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
			if an != bn {
				return an < bn
			}
		default:
			if a.LastUsed() != b.LastUsed() {
				return a.LastUsed() > b.LastUsed()
			}
		}
		return a.ID < b.ID
	}

	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// OldestFirst returns group ids ordered by last use, oldest first.
// This is the eviction order.
func OldestFirst(c Collection) []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := c[ids[i]].LastUsed(), c[ids[j]].LastUsed()
		if a != b {
			return a < b
		}
		return ids[i] < ids[j]
	})
	return ids
}

// MatchesQuery reports whether the group name contains query, case-insensitively.
// An empty query matches everything.
func MatchesQuery(g *Group, query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(g.Name), query)
}
