package ops

import (
	"context"
	"fmt"

	"github.com/hpungsan/tabstash/internal/errors"
)

// OpenGroupInput contains parameters for the OpenGroup operation.
type OpenGroupInput struct {
	ID        string
	NewWindow bool
}

// OpenGroupOutput contains the result of the OpenGroup operation.
type OpenGroupOutput struct {
	ID     string `json:"id"`
	Opened int    `json:"opened"`
}

// OpenGroup asks the tab host to open the group's tabs and records the access
// time. A group with no tabs is a no-op.
func (e *Engine) OpenGroup(ctx context.Context, input OpenGroupInput) (*OpenGroupOutput, error) {
	id, err := requireID("group id", input.ID)
	if err != nil {
		return nil, err
	}

	var out *OpenGroupOutput
	err = e.submit(ctx, "open_group", func(tx *txn) error {
		g, err := tx.getGroup(id)
		if err != nil {
			return err
		}
		out = &OpenGroupOutput{ID: id}
		if len(g.Tabs) == 0 {
			return nil
		}
		if e.host == nil {
			return errors.NewInvalidRequest("no tab host is connected")
		}

		urls := make([]string, len(g.Tabs))
		for i, t := range g.Tabs {
			urls[i] = t.URL
		}
		// Tabs are opened before commit; a failed lastAccessed write leaves them open.
		if err := e.host.OpenTabs(tx.ctx, urls, input.NewWindow); err != nil {
			return errors.NewInternal(fmt.Errorf("tab host: %w", err))
		}

		g.LastAccessed = tx.nowMillis()
		tx.markGroups(id)
		out.Opened = len(urls)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TouchGroupInput contains parameters for the TouchGroup operation.
type TouchGroupInput struct {
	ID string
}

// TouchGroupOutput contains the result of the TouchGroup operation.
type TouchGroupOutput struct {
	ID           string `json:"id"`
	LastAccessed int64  `json:"last_accessed"`
}

// TouchGroup sets the group's last access time to now.
func (e *Engine) TouchGroup(ctx context.Context, input TouchGroupInput) (*TouchGroupOutput, error) {
	id, err := requireID("group id", input.ID)
	if err != nil {
		return nil, err
	}

	var out *TouchGroupOutput
	err = e.submit(ctx, "touch_group", func(tx *txn) error {
		g, err := tx.getGroup(id)
		if err != nil {
			return err
		}
		g.LastAccessed = tx.nowMillis()
		tx.markGroups(id)
		out = &TouchGroupOutput{ID: id, LastAccessed: g.LastAccessed}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
