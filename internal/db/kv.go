package db

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// GetValue returns the value stored under key, or nil when the key does not exist.
func GetValue(ctx context.Context, d *sql.DB, key string) ([]byte, error) {
	var value []byte
	err := d.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// PutValue inserts or replaces the value stored under key.
func PutValue(ctx context.Context, d *sql.DB, key string, value []byte) error {
	_, err := d.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().Unix())
	return err
}

// DeleteValue removes key. Deleting a missing key is not an error.
func DeleteValue(ctx context.Context, d *sql.DB, key string) error {
	_, err := d.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key)
	return err
}

// ListKeys returns every key starting with prefix in ascending order.
func ListKeys(ctx context.Context, d *sql.DB, prefix string) ([]string, error) {
	rows, err := d.QueryContext(ctx,
		"SELECT key FROM kv WHERE substr(key, 1, length(?)) = ? ORDER BY key",
		prefix, prefix,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
