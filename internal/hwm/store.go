package hwm

import (
	"context"
	"sync"
)

// Store persists the account's net-liquidation high-water mark. The value
// only ratchets upward.
type Store interface {
	// Read returns the current mark, or 0 when none has been recorded
	Read(ctx context.Context) (float64, error)

	// WriteIfHigher stores v when it exceeds the current mark and returns
	// the mark in effect afterwards
	WriteIfHigher(ctx context.Context, v float64) (float64, error)
}

// MemoryStore keeps the mark in process memory
type MemoryStore struct {
	mu    sync.Mutex
	value float64
}

// NewMemoryStore creates an in-memory store seeded with initial
func NewMemoryStore(initial float64) *MemoryStore {
	return &MemoryStore{value: initial}
}

// Read implements Store
func (s *MemoryStore) Read(_ context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, nil
}

// WriteIfHigher implements Store
func (s *MemoryStore) WriteIfHigher(_ context.Context, v float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v > s.value {
		s.value = v
	}
	return s.value, nil
}
