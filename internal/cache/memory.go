package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store used in tests and single-node local runs.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	clock   func() time.Time
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		clock:   time.Now,
	}
}

// WithClock overrides the time source so expiry can be tested deterministically.
func (s *MemoryStore) WithClock(clock func() time.Time) *MemoryStore {
	s.clock = clock
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && s.clock().After(entry.expiresAt) {
		delete(s.entries, key)
		return nil, false, nil
	}
	copied := make([]byte, len(entry.value))
	copy(copied, entry.value)
	return copied, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]byte, len(value))
	copy(copied, value)

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.clock().Add(ttl)
	}
	s.entries[key] = memoryEntry{value: copied, expiresAt: expiresAt}
	return nil
}

// Update holds the store lock across the read and the write, so concurrent
// updates of the same key serialize instead of overwriting each other.
func (s *MemoryStore) Update(_ context.Context, key string, ttl time.Duration, apply func(current []byte, found bool) ([]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current []byte
	found := false
	if entry, ok := s.entries[key]; ok {
		if entry.expiresAt.IsZero() || !s.clock().After(entry.expiresAt) {
			current = make([]byte, len(entry.value))
			copy(current, entry.value)
			found = true
		} else {
			delete(s.entries, key)
		}
	}

	next, err := apply(current, found)
	if err != nil {
		return err
	}

	copied := make([]byte, len(next))
	copy(copied, next)
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.clock().Add(ttl)
	}
	s.entries[key] = memoryEntry{value: copied, expiresAt: expiresAt}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
