package ops

import (
	"context"

	"github.com/hpungsan/tabstash/internal/group"
)

// DeleteGroupInput contains parameters for the DeleteGroup operation.
type DeleteGroupInput struct {
	ID string
}

// DeleteGroupOutput contains the result of the DeleteGroup operation.
type DeleteGroupOutput struct {
	ID        string `json:"id"`
	DeletedAt int64  `json:"deleted_at"`
}

// DeleteGroup removes a group and pushes its snapshot onto the recovery buffer.
func (e *Engine) DeleteGroup(ctx context.Context, input DeleteGroupInput) (*DeleteGroupOutput, error) {
	id, err := requireID("group id", input.ID)
	if err != nil {
		return nil, err
	}

	var out *DeleteGroupOutput
	err = e.submit(ctx, "delete_group", func(tx *txn) error {
		g, err := tx.getGroup(id)
		if err != nil {
			return err
		}
		snapshot := g.Clone()
		snapshot.ID = ""
		tx.deleted = group.PushDeleted(tx.deleted, group.DeletedEntry{
			Group:     snapshot,
			DeletedAt: tx.nowMillis(),
		})
		delete(tx.groups, id)
		tx.markGroups(id)
		tx.markDeleted()
		out = &DeleteGroupOutput{ID: id, DeletedAt: tx.nowMillis()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
