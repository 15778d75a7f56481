package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hpungsan/tabstash/internal/db"
)

// SQLite stores keys in the kv table of the tabstash database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite initializes (or migrates) the database in baseDir.
func OpenSQLite(baseDir string) (*SQLite, error) {
	conn, err := db.Init(baseDir)
	if err != nil {
		return nil, err
	}
	return &SQLite{db: conn}, nil
}

// DB exposes the underlying handle for pool tuning.
func (s *SQLite) DB() *sql.DB { return s.db }

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := db.GetValue(ctx, s.db, key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *SQLite) Set(ctx context.Context, values map[string][]byte) error {
	return db.SetValues(ctx, s.db, values)
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
