package repository

import (
	"context"
	"sync"
)

// MemoryKVRepository is a process-local store used by the CLI and tests
type MemoryKVRepository struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryKVRepository() *MemoryKVRepository {
	return &MemoryKVRepository{entries: make(map[string]string)}
}

func (r *MemoryKVRepository) Get(_ context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	val, ok := r.entries[key]
	return val, ok, nil
}

func (r *MemoryKVRepository) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = value
	return nil
}

func (r *MemoryKVRepository) Delete(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		delete(r.entries, k)
	}
	return nil
}

// Len is the number of stored keys
func (r *MemoryKVRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
