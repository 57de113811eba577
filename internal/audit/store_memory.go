package audit

import (
	"context"
	"sync"
)

// MemoryStore collects audit entries in memory for tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries []*Entry

	// FailAppend simulates a store outage when set.
	FailAppend error
}

// NewMemory constructs an empty in-memory audit store.
func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAppend != nil {
		return s.FailAppend
	}
	cp := *entry
	s.entries = append(s.entries, &cp)
	return nil
}

// Entries returns a copy of all recorded entries.
func (s *MemoryStore) Entries() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
