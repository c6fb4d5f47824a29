package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps objects in a map.  It backs STORAGE_DRIVER=memory.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string][]byte{}}
}

// Put stores a copy of data under bucket/path.
func (m *MemoryStore) Put(bucket, path string, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+path] = cp
}

func (m *MemoryStore) FetchBytes(ctx context.Context, bucket, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrUnavailable
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[bucket+"/"+path]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}
