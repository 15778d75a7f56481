package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/group"
)

// List limits
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// GroupView is a group together with its collection key.
type GroupView struct {
	ID string `json:"id"`
	*group.Group
}

// MarshalJSON writes the group's fields with "id" added.
func (v GroupView) MarshalJSON() ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if v.Group != nil {
		data, err := json.Marshal(v.Group)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, err
		}
	}
	id, err := json.Marshal(v.ID)
	if err != nil {
		return nil, err
	}
	fields["id"] = id
	return json.Marshal(fields)
}

// UnmarshalJSON reads a view written by MarshalJSON.
func (v *GroupView) UnmarshalJSON(data []byte) error {
	var key struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &key); err != nil {
		return err
	}
	g := &group.Group{}
	if err := json.Unmarshal(data, g); err != nil {
		return err
	}
	delete(g.Extra, "id")
	if len(g.Extra) == 0 {
		g.Extra = nil
	}
	g.ID = key.ID
	v.ID, v.Group = key.ID, g
	return nil
}

func viewOf(g *group.Group) GroupView {
	c := g.Clone()
	return GroupView{ID: c.ID, Group: c}
}

// resolveTabs returns tabs, or the current window's tabs from the tab host when tabs is nil.
func (e *Engine) resolveTabs(ctx context.Context, tabs []group.Tab) ([]group.Tab, error) {
	if tabs != nil {
		return tabs, nil
	}
	if e.host == nil {
		return nil, errors.NewInvalidRequest("tabs are required when no tab host is connected")
	}
	tabs, err := e.host.CurrentWindowTabs(ctx)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("tab host: %w", err))
	}
	return tabs, nil
}

// includePinned resolves an optional override against the includePinnedTabs setting.
func (tx *txn) includePinned(override *bool) bool {
	if override != nil {
		return *override
	}
	return tx.settings.IncludePinnedTabs
}

// insert adds a new group with a fresh id and created = lastAccessed = now.
func (tx *txn) insert(g *group.Group) (*group.Group, error) {
	id, err := tx.newID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	for tx.groups[id] != nil {
		if id, err = tx.newID(); err != nil {
			return nil, errors.NewInternal(err)
		}
	}
	now := tx.nowMillis()
	g.ID = id
	g.Created = now
	g.LastAccessed = now
	if g.Tabs == nil {
		g.Tabs = []group.TabRef{}
	}
	tx.groups[id] = g
	tx.markGroups(id)
	return g, nil
}

// checkIndex validates a tab index against a group's tab count.
func checkIndex(g *group.Group, index int) error {
	if index < 0 || index >= len(g.Tabs) {
		return errors.NewIndexOutOfRange("tab", index, len(g.Tabs))
	}
	return nil
}

func requireID(field, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewInvalidRequest(field + " is required")
	}
	return id, nil
}
