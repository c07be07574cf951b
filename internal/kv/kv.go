// Package kv defines the key-value persistence contract used by hosts and
// tokens, with SQLite and in-memory implementations.
package kv

import "context"

// Store is a flat key-value store. Get returns nil, nil for a missing key and
// List returns keys in ascending order.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}
