package ops

import (
	"context"

	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/group"
)

// GetGroups returns a deep copy of the whole collection.
func (e *Engine) GetGroups(ctx context.Context) (group.Collection, error) {
	var out group.Collection
	err := e.submit(ctx, "get_groups", func(tx *txn) error {
		out = tx.groups.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetGroup returns one group by id.
func (e *Engine) GetGroup(ctx context.Context, id string) (*GroupView, error) {
	id, err := requireID("group id", id)
	if err != nil {
		return nil, err
	}
	var out *GroupView
	err = e.submit(ctx, "get_group", func(tx *txn) error {
		g, err := tx.getGroup(id)
		if err != nil {
			return err
		}
		v := viewOf(g)
		out = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListGroupsInput contains parameters for the ListGroups operation.
type ListGroupsInput struct {
	Sort   group.SortOrder // default: recent
	Query  string          // case-insensitive name substring
	Filter string          // expr boolean expression, see group.CompileFilter
	Limit  int             // default: DefaultListLimit, max: MaxListLimit
}

// ListGroupsOutput contains the result of the ListGroups operation.
type ListGroupsOutput struct {
	Items   []GroupView `json:"items"`
	Total   int         `json:"total"`
	HasMore bool        `json:"has_more"`
}

// ListGroups returns groups in display order, optionally narrowed by a name
// query and a filter expression.
func (e *Engine) ListGroups(ctx context.Context, input ListGroupsInput) (*ListGroupsOutput, error) {
	switch input.Sort {
	case "", group.SortRecent, group.SortCreated, group.SortName:
	default:
		return nil, errors.NewInvalidRequest("sort must be one of: recent, created, name")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	var filter *group.Filter
	if input.Filter != "" {
		f, err := group.CompileFilter(input.Filter)
		if err != nil {
			return nil, errors.NewInvalidRequest("invalid filter: " + err.Error())
		}
		filter = f
	}

	var out *ListGroupsOutput
	err := e.submit(ctx, "list_groups", func(tx *txn) error {
		items := []GroupView{}
		for _, g := range group.Sorted(tx.groups, input.Sort) {
			if !group.MatchesQuery(g, input.Query) {
				continue
			}
			if filter != nil {
				ok, err := filter.Match(g, tx.nowMillis())
				if err != nil {
					return errors.NewInvalidRequest("filter failed: " + err.Error())
				}
				if !ok {
					continue
				}
			}
			items = append(items, viewOf(g))
		}

		total := len(items)
		hasMore := total > limit
		if hasMore {
			items = items[:limit]
		}
		out = &ListGroupsOutput{Items: items, Total: total, HasMore: hasMore}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecentlyDeleted returns the recovery buffer, oldest first.
func (e *Engine) RecentlyDeleted(ctx context.Context) ([]group.DeletedEntry, error) {
	var out []group.DeletedEntry
	err := e.submit(ctx, "recently_deleted", func(tx *txn) error {
		out = group.CloneDeleted(tx.deleted)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
