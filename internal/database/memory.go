package database

import (
	"context"
	"sync"
)

// MemoryStore keeps buckets in process memory. Used for tests and STORE_DRIVER=memory.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string][]byte)}
}

func (m *MemoryStore) Get(ctx context.Context, bucket string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.buckets[bucket]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), blob...), nil
}

func (m *MemoryStore) Set(ctx context.Context, bucket string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[bucket] = append([]byte(nil), blob...)
	return nil
}
