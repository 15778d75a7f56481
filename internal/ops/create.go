package ops

import (
	"context"

	"github.com/hpungsan/tabstash/internal/group"
)

// CreateGroupInput contains parameters for the CreateGroup operation.
type CreateGroupInput struct {
	Name          string      // trimmed; empty falls back to the first tab's domain
	Tabs          []group.Tab // nil: current window tabs from the tab host
	IncludePinned *bool       // nil: includePinnedTabs setting
}

// CreateGroupOutput contains the result of the CreateGroup operation.
type CreateGroupOutput struct {
	ID    string    `json:"id"`
	Group GroupView `json:"group"`
}

// CreateGroup saves tabs as a new manual group.
func (e *Engine) CreateGroup(ctx context.Context, input CreateGroupInput) (*CreateGroupOutput, error) {
	tabs, err := e.resolveTabs(ctx, input.Tabs)
	if err != nil {
		return nil, err
	}

	var out *CreateGroupOutput
	err = e.submit(ctx, "create_group", func(tx *txn) error {
		filtered := group.FilterPinned(tabs, tx.includePinned(input.IncludePinned))
		name := group.CleanName(input.Name)
		if name == "" {
			name = group.DefaultName(filtered)
		}
		g, err := tx.insert(&group.Group{
			Name:   name,
			Tabs:   group.SnapshotTabs(filtered),
			Origin: group.OriginManual,
		})
		if err != nil {
			return err
		}
		out = &CreateGroupOutput{ID: g.ID, Group: viewOf(g)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
