package cache

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in process memory. Verdicts are copied on the
// way in and out so callers never share the stored value.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	e.Data = e.Data.Clone()
	return &e, nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Data = entry.Data.Clone()
	s.entries[entry.Key] = entry
	return nil
}

// Len returns the number of stored entries, fresh or stale.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
