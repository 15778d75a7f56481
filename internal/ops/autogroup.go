package ops

import (
	"context"

	"github.com/hpungsan/tabstash/internal/group"
)

// AutoGroupInput contains parameters for the AutoGroupByDomain operation.
type AutoGroupInput struct {
	Tabs          []group.Tab // nil: current window tabs from the tab host
	MinCount      *int        // nil: minTabsForSuggestion setting
	IncludePinned *bool       // nil: includePinnedTabs setting

	// MergeExisting appends to the newest auto-domain group for the same
	// domain instead of creating a new group each time.
	MergeExisting bool
}

// AutoGroupOutput contains the result of the AutoGroupByDomain operation.
type AutoGroupOutput struct {
	Created []GroupView `json:"created"`
	Updated []GroupView `json:"updated,omitempty"`
}

// AutoGroupByDomain creates one auto-domain group per domain that has at
// least MinCount tabs. Domains are processed in first-appearance order.
func (e *Engine) AutoGroupByDomain(ctx context.Context, input AutoGroupInput) (*AutoGroupOutput, error) {
	tabs, err := e.resolveTabs(ctx, input.Tabs)
	if err != nil {
		return nil, err
	}

	out := &AutoGroupOutput{Created: []GroupView{}}
	err = e.submit(ctx, "auto_group", func(tx *txn) error {
		minCount := tx.settings.MinTabsForSuggestion
		if input.MinCount != nil {
			minCount = *input.MinCount
		}
		if minCount < 1 {
			minCount = 1
		}

		filtered := group.FilterPinned(tabs, tx.includePinned(input.IncludePinned))
		order, byDomain := partitionByDomain(group.SnapshotTabs(filtered))

		for _, domain := range order {
			refs := byDomain[domain]
			if len(refs) < minCount {
				continue
			}

			if input.MergeExisting {
				if existing := newestAutoGroup(tx.groups, domain); existing != nil {
					added := appendNewURLs(existing, refs)
					if added > 0 {
						existing.LastAccessed = tx.nowMillis()
						tx.markGroups(existing.ID)
					}
					out.Updated = append(out.Updated, viewOf(existing))
					continue
				}
			}

			g, err := tx.insert(&group.Group{
				Name:         group.DisplayDomain(domain),
				Tabs:         refs,
				Origin:       group.OriginAutoDomain,
				SourceDomain: domain,
			})
			if err != nil {
				return err
			}
			out.Created = append(out.Created, viewOf(g))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func partitionByDomain(refs []group.TabRef) ([]string, map[string][]group.TabRef) {
	var order []string
	byDomain := map[string][]group.TabRef{}
	for _, ref := range refs {
		if ref.Domain == "" {
			continue
		}
		if _, ok := byDomain[ref.Domain]; !ok {
			order = append(order, ref.Domain)
		}
		byDomain[ref.Domain] = append(byDomain[ref.Domain], ref)
	}
	return order, byDomain
}

// newestAutoGroup returns the most recently created auto-domain group for domain.
func newestAutoGroup(c group.Collection, domain string) *group.Group {
	var newest *group.Group
	for _, g := range c {
		if g.Origin != group.OriginAutoDomain || g.SourceDomain != domain {
			continue
		}
		if newest == nil || g.Created > newest.Created || (g.Created == newest.Created && g.ID > newest.ID) {
			newest = g
		}
	}
	return newest
}

func appendNewURLs(g *group.Group, refs []group.TabRef) int {
	seen := make(map[string]bool, len(g.Tabs))
	for _, t := range g.Tabs {
		seen[t.URL] = true
	}
	added := 0
	for _, ref := range refs {
		if seen[ref.URL] {
			continue
		}
		seen[ref.URL] = true
		g.Tabs = append(g.Tabs, ref)
		added++
	}
	return added
}
