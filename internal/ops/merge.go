package ops

import (
	"context"

	"github.com/hpungsan/tabstash/internal/errors"
)

// MergeGroupsInput contains parameters for the MergeGroups operation.
type MergeGroupsInput struct {
	SourceID string
	TargetID string
}

// MergeGroupsOutput contains the result of the MergeGroups operation.
type MergeGroupsOutput struct {
	TargetID string `json:"target_id"`
	Moved    int    `json:"moved"`
	TabCount int    `json:"tab_count"`
}

// MergeGroups appends the source's tabs to the target and removes the source.
// The source does not go to the recovery buffer.
func (e *Engine) MergeGroups(ctx context.Context, input MergeGroupsInput) (*MergeGroupsOutput, error) {
	sourceID, err := requireID("source group id", input.SourceID)
	if err != nil {
		return nil, err
	}
	targetID, err := requireID("target group id", input.TargetID)
	if err != nil {
		return nil, err
	}
	if sourceID == targetID {
		return nil, errors.NewInvalidRequest("cannot merge a group into itself")
	}

	var out *MergeGroupsOutput
	err = e.submit(ctx, "merge_groups", func(tx *txn) error {
		source, err := tx.getGroup(sourceID)
		if err != nil {
			return err
		}
		target, err := tx.getGroup(targetID)
		if err != nil {
			return err
		}
		target.Tabs = append(target.Tabs, source.Tabs...)
		delete(tx.groups, sourceID)
		tx.markGroups(sourceID, targetID)
		out = &MergeGroupsOutput{TargetID: targetID, Moved: len(source.Tabs), TabCount: len(target.Tabs)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
