package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/group"
)

// AddTabInput contains parameters for the AddTab operation.
type AddTabInput struct {
	ID  string
	Tab *group.Tab // nil: active tab from the tab host
}

// AddTabOutput contains the result of the AddTab operation.
type AddTabOutput struct {
	ID    string       `json:"id"`
	Index int          `json:"index"`
	Tab   group.TabRef `json:"tab"`
}

// AddTab appends a tab snapshot to a group.
func (e *Engine) AddTab(ctx context.Context, input AddTabInput) (*AddTabOutput, error) {
	id, err := requireID("group id", input.ID)
	if err != nil {
		return nil, err
	}

	tab, err := e.resolveActiveTab(ctx, input.Tab)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(tab.URL) == "" {
		return nil, errors.NewInvalidRequest("tab url is required")
	}
	ref := group.NewTabRef(tab)

	var out *AddTabOutput
	err = e.submit(ctx, "add_tab", func(tx *txn) error {
		g, err := tx.getGroup(id)
		if err != nil {
			return err
		}
		g.Tabs = append(g.Tabs, ref)
		tx.markGroups(id)
		out = &AddTabOutput{ID: id, Index: len(g.Tabs) - 1, Tab: ref}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) resolveActiveTab(ctx context.Context, tab *group.Tab) (group.Tab, error) {
	if tab != nil {
		return *tab, nil
	}
	if e.host == nil {
		return group.Tab{}, errors.NewInvalidRequest("tab is required when no tab host is connected")
	}
	active, ok, err := e.host.ActiveTab(ctx)
	if err != nil {
		return group.Tab{}, errors.NewInternal(fmt.Errorf("tab host: %w", err))
	}
	if !ok {
		return group.Tab{}, errors.NewInvalidRequest("no active tab")
	}
	return active, nil
}

// RemoveTabInput contains parameters for the RemoveTab operation.
type RemoveTabInput struct {
	ID    string
	Index int
}

// RemoveTabOutput contains the result of the RemoveTab operation.
type RemoveTabOutput struct {
	ID      string       `json:"id"`
	Removed group.TabRef `json:"removed"`
}

// RemoveTab deletes the tab at Index from a group.
func (e *Engine) RemoveTab(ctx context.Context, input RemoveTabInput) (*RemoveTabOutput, error) {
	id, err := requireID("group id", input.ID)
	if err != nil {
		return nil, err
	}

	var out *RemoveTabOutput
	err = e.submit(ctx, "remove_tab", func(tx *txn) error {
		g, err := tx.getGroup(id)
		if err != nil {
			return err
		}
		if err := checkIndex(g, input.Index); err != nil {
			return err
		}
		removed := g.Tabs[input.Index]
		g.Tabs = removeAt(g.Tabs, input.Index)
		tx.markGroups(id)
		out = &RemoveTabOutput{ID: id, Removed: removed}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReorderTabInput contains parameters for the ReorderTab operation.
type ReorderTabInput struct {
	ID       string
	OldIndex int
	NewIndex int
}

// ReorderTabOutput contains the result of the ReorderTab operation.
type ReorderTabOutput struct {
	ID   string         `json:"id"`
	Tabs []group.TabRef `json:"tabs"`
}

// ReorderTab moves the tab at OldIndex so that it ends up at NewIndex.
func (e *Engine) ReorderTab(ctx context.Context, input ReorderTabInput) (*ReorderTabOutput, error) {
	id, err := requireID("group id", input.ID)
	if err != nil {
		return nil, err
	}

	var out *ReorderTabOutput
	err = e.submit(ctx, "reorder_tab", func(tx *txn) error {
		g, err := tx.getGroup(id)
		if err != nil {
			return err
		}
		if err := checkIndex(g, input.OldIndex); err != nil {
			return err
		}
		if err := checkIndex(g, input.NewIndex); err != nil {
			return err
		}
		if input.OldIndex != input.NewIndex {
			tab := g.Tabs[input.OldIndex]
			tabs := removeAt(g.Tabs, input.OldIndex)
			g.Tabs = insertAt(tabs, input.NewIndex, tab)
			tx.markGroups(id)
		}
		out = &ReorderTabOutput{ID: id, Tabs: append([]group.TabRef(nil), g.Tabs...)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MoveTabInput contains parameters for the MoveTab operation.
type MoveTabInput struct {
	SourceID string
	Index    int
	TargetID string
}

// MoveTabOutput contains the result of the MoveTab operation.
type MoveTabOutput struct {
	SourceID string       `json:"source_id"`
	TargetID string       `json:"target_id"`
	Tab      group.TabRef `json:"tab"`
}

// MoveTab removes the tab at Index from the source group and appends it to
// the target. Source and target may be the same group.
func (e *Engine) MoveTab(ctx context.Context, input MoveTabInput) (*MoveTabOutput, error) {
	sourceID, err := requireID("source group id", input.SourceID)
	if err != nil {
		return nil, err
	}
	targetID, err := requireID("target group id", input.TargetID)
	if err != nil {
		return nil, err
	}

	var out *MoveTabOutput
	err = e.submit(ctx, "move_tab", func(tx *txn) error {
		source, err := tx.getGroup(sourceID)
		if err != nil {
			return err
		}
		target, err := tx.getGroup(targetID)
		if err != nil {
			return err
		}
		if err := checkIndex(source, input.Index); err != nil {
			return err
		}
		tab := source.Tabs[input.Index]
		source.Tabs = removeAt(source.Tabs, input.Index)
		target.Tabs = append(target.Tabs, tab)
		tx.markGroups(sourceID, targetID)
		out = &MoveTabOutput{SourceID: sourceID, TargetID: targetID, Tab: tab}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func removeAt(tabs []group.TabRef, i int) []group.TabRef {
	out := make([]group.TabRef, 0, len(tabs)-1)
	out = append(out, tabs[:i]...)
	return append(out, tabs[i+1:]...)
}

func insertAt(tabs []group.TabRef, i int, tab group.TabRef) []group.TabRef {
	out := make([]group.TabRef, 0, len(tabs)+1)
	out = append(out, tabs[:i]...)
	out = append(out, tab)
	return append(out, tabs[i:]...)
}
