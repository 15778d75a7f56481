package ops

import (
	"context"
	"sort"
	"strings"

	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/group"
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Data string // JSON object keyed by group id, as produced by Export
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int      `json:"imported"`
	Replaced int      `json:"replaced"`
	IDs      []string `json:"ids"`
}

// Import merges groups into the collection by id. Imported ids replace
// existing groups with the same id. Nothing changes if the payload does not parse.
func (e *Engine) Import(ctx context.Context, input ImportInput) (*ImportOutput, error) {
	if strings.TrimSpace(input.Data) == "" {
		return nil, errors.NewInvalidRequest("import data is required")
	}
	incoming, err := group.DecodeCollection([]byte(input.Data))
	if err != nil {
		return nil, errors.NewImportParse(err)
	}

	ids := make([]string, 0, len(incoming))
	for id := range incoming {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out *ImportOutput
	err = e.submit(ctx, "import", func(tx *txn) error {
		out = &ImportOutput{IDs: ids}
		for _, id := range ids {
			if _, exists := tx.groups[id]; exists {
				out.Replaced++
			}
			tx.groups[id] = incoming[id].Clone()
			out.Imported++
		}
		if len(ids) > 0 {
			tx.markGroups(ids...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
