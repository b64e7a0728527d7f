package persistence

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryRepository keeps records in a process-local map. Values are stored
// JSON-encoded so callers observe the same copy semantics as the durable backends.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryRepository returns an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string][]byte)}
}

func (m *MemoryRepository) Put(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.records[key] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, key string, dest any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	data, ok := m.records[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if len(data) == 0 {
		return false, ErrEmptyValue
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Len returns the number of stored keys.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *MemoryRepository) Close() error {
	return nil
}
