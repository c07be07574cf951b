package kv

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rsclarke/ddnsd/internal/db"
)

// SQLite implements Store on the kv table of the service database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite creates a Store backed by an opened database (see db.Open).
func NewSQLite(database *sql.DB) *SQLite {
	return &SQLite{db: database}
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := db.GetValue(ctx, s.db, key)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

func (s *SQLite) Put(ctx context.Context, key string, value []byte) error {
	if err := db.PutValue(ctx, s.db, key, value); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	if err := db.DeleteValue(ctx, s.db, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := db.ListKeys(ctx, s.db, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	return keys, nil
}
