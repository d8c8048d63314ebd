package ratelimit

import (
	"context"
	"sync"
)

// MemoryStore keeps rate-limit records in a process-lifetime map. Records are
// never evicted, so memory grows with the number of distinct clients seen.
// That is an accepted limitation for single-instance deployments; use the
// Redis store when eviction or sharing across instances matters.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Get retrieves a client's record.
func (s *MemoryStore) Get(_ context.Context, clientID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[clientID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Set stores a client's record.
func (s *MemoryStore) Set(_ context.Context, clientID string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[clientID] = rec
	return nil
}

// Len reports the number of tracked clients.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
