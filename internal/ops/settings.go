package ops

import (
	"context"

	"github.com/hpungsan/tabstash/internal/config"
	"github.com/hpungsan/tabstash/internal/errors"
)

// Settings returns the stored settings with defaults applied.
func (e *Engine) Settings(ctx context.Context) (config.Settings, error) {
	var out config.Settings
	err := e.submit(ctx, "get_settings", func(tx *txn) error {
		out = tx.settings
		return nil
	})
	return out, err
}

// UpdateSettings applies a partial update and returns the resulting settings.
func (e *Engine) UpdateSettings(ctx context.Context, patch config.SettingsPatch) (config.Settings, error) {
	if patch.Empty() {
		return config.Settings{}, errors.NewInvalidRequest("no settings to update")
	}

	var out config.Settings
	err := e.submit(ctx, "update_settings", func(tx *txn) error {
		next, err := patch.Apply(tx.settings)
		if err != nil {
			return errors.NewInvalidRequest(err.Error())
		}
		tx.settings = next
		tx.markSettings()
		out = next
		return nil
	})
	return out, err
}
