package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rsclarke/ddnsd/internal/kv"
)

// KeyPrefix is the storage namespace of tokens.
const KeyPrefix = "token:"

// Tokens persists tokens in a kv.Store under "token:<id>".
type Tokens struct {
	store kv.Store
}

func NewTokens(store kv.Store) *Tokens {
	return &Tokens{store: store}
}

// Get returns the token with the given id, or nil if it does not exist.
func (r *Tokens) Get(ctx context.Context, id string) (*Token, error) {
	raw, err := r.store.Get(ctx, KeyPrefix+id)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var info Info
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", id, err)
	}
	return New(id, info), nil
}

func (r *Tokens) Save(ctx context.Context, t *Token) error {
	raw, err := json.Marshal(t.Info())
	if err != nil {
		return fmt.Errorf("encode token %s: %w", t.ID, err)
	}
	return r.store.Put(ctx, KeyPrefix+t.ID, raw)
}

func (r *Tokens) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, KeyPrefix+id)
}

// IDs returns the ids of all stored tokens.
func (r *Tokens) IDs(ctx context.Context) ([]string, error) {
	keys, err := r.store.List(ctx, KeyPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, KeyPrefix))
	}
	return ids, nil
}

// List returns all stored tokens.
func (r *Tokens) List(ctx context.Context) ([]*Token, error) {
	ids, err := r.IDs(ctx)
	if err != nil {
		return nil, err
	}
	tokens := make([]*Token, 0, len(ids))
	for _, id := range ids {
		t, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if t != nil {
			tokens = append(tokens, t)
		}
	}
	return tokens, nil
}
