package store

import (
	"context"
	"strconv"
	"sync"

	"github.com/nerrad567/garagedoor/internal/garage"
)

var _ garage.Store = (*MemoryStore)(nil)

// MemoryStore is a garage.Store that lives only as long as the process.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) GetString(_ context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) SetString(_ context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) GetBool(ctx context.Context, key string) (bool, bool, error) {
	raw, ok, err := m.GetString(ctx, key)
	if err != nil || !ok {
		return false, ok, err
	}
	return parseBool(key, raw)
}

func (m *MemoryStore) SetBool(ctx context.Context, key string, value bool) error {
	return m.SetString(ctx, key, strconv.FormatBool(value))
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
