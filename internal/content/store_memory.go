package content

import (
	"context"
	"sync"
)

// MemoryStore is the in-memory content store used by unit tests and local
// development.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*DependentContent
}

// NewMemory constructs an empty in-memory content store.
func NewMemory() *MemoryStore {
	return &MemoryStore{records: make(map[string]*DependentContent)}
}

// Add seeds a content record. Test helper.
func (s *MemoryStore) Add(rec *DependentContent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[rec.ID] = &cp
}

// Get returns a copy of a content record, or nil. Test helper.
func (s *MemoryStore) Get(id string) *DependentContent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}

func (s *MemoryStore) Exists(ctx context.Context, contentID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[contentID]
	return ok, nil
}

func (s *MemoryStore) SetGroupVisibility(ctx context.Context, groupID string, v Visibility) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	affected := 0
	for _, rec := range s.records {
		if rec.GroupID == groupID {
			rec.Visibility = v
			affected++
		}
	}
	return affected, nil
}
