package kv

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-memory Store. It records every write so tests can assert
// which keys were persisted.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
	writes []string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.values[key] = v
	m.writes = append(m.writes, key)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Writes returns the keys passed to Put, in call order.
func (m *Memory) Writes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.writes))
	copy(out, m.writes)
	return out
}

// ResetWrites clears the write log.
func (m *Memory) ResetWrites() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = nil
}
