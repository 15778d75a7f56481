package ops

import (
	"context"

	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/group"
)

// RenameGroupInput contains parameters for the RenameGroup operation.
type RenameGroupInput struct {
	ID      string
	NewName string
}

// RenameGroupOutput contains the result of the RenameGroup operation.
type RenameGroupOutput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RenameGroup changes a group's display name.
func (e *Engine) RenameGroup(ctx context.Context, input RenameGroupInput) (*RenameGroupOutput, error) {
	id, err := requireID("group id", input.ID)
	if err != nil {
		return nil, err
	}
	name := group.CleanName(input.NewName)
	if name == "" {
		return nil, errors.NewInvalidRequest("name must not be empty")
	}

	err = e.submit(ctx, "rename_group", func(tx *txn) error {
		g, err := tx.getGroup(id)
		if err != nil {
			return err
		}
		g.Name = name
		tx.markGroups(id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &RenameGroupOutput{ID: id, Name: name}, nil
}
