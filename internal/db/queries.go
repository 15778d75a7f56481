package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"sort"
	"time"
)

// ErrKeyNotFound is returned by GetValue when no row exists for the key.
var ErrKeyNotFound = stderrors.New("key not found")

// GetValue returns the stored value for key.
func GetValue(ctx context.Context, db *sql.DB, key string) ([]byte, error) {
	var value []byte
	err := db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// SetValues upserts every key in one transaction. Either all keys are written or none.
func SetValues(ctx context.Context, db *sql.DB, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, key := range sortedKeys(values) {
		if _, err := stmt.ExecContext(ctx, key, values[key], now); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func sortedKeys(values map[string][]byte) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
