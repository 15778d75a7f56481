package ops

import (
	"context"

	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/group"
)

// RestoreDeletedInput contains parameters for the RestoreDeleted operation.
type RestoreDeletedInput struct {
	Index int // position in the recovery buffer, oldest first
}

// RestoreDeletedOutput contains the result of the RestoreDeleted operation.
type RestoreDeletedOutput struct {
	ID    string    `json:"id"`
	Group GroupView `json:"group"`
}

// RestoreDeleted removes an entry from the recovery buffer and re-inserts it
// under a new id with origin restored.
func (e *Engine) RestoreDeleted(ctx context.Context, input RestoreDeletedInput) (*RestoreDeletedOutput, error) {
	var out *RestoreDeletedOutput
	err := e.submit(ctx, "restore_deleted", func(tx *txn) error {
		if input.Index < 0 || input.Index >= len(tx.deleted) {
			return errors.NewIndexOutOfRange("recovery", input.Index, len(tx.deleted))
		}
		entry := tx.deleted[input.Index]
		tx.deleted = append(tx.deleted[:input.Index:input.Index], tx.deleted[input.Index+1:]...)
		tx.markDeleted()

		g := entry.Group.Clone()
		created := g.Created
		g.Origin = group.OriginRestored
		g, err := tx.insert(g)
		if err != nil {
			return err
		}
		if created != 0 {
			g.Created = created
		}
		g.Restored = tx.nowMillis()
		out = &RestoreDeletedOutput{ID: g.ID, Group: viewOf(g)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
