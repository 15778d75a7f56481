package ops

import (
	"context"

	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/group"
)

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Data       string `json:"data"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// Export serializes the whole collection as an indented JSON object keyed by group id.
func (e *Engine) Export(ctx context.Context) (*ExportOutput, error) {
	var out *ExportOutput
	err := e.submit(ctx, "export", func(tx *txn) error {
		data, err := group.EncodeCollection(tx.groups)
		if err != nil {
			return errors.NewInternal(err)
		}
		out = &ExportOutput{Data: string(data), Count: len(tx.groups), ExportedAt: tx.nowMillis()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
