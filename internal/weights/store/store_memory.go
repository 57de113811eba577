package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"backoffice/internal/weights"
	"backoffice/pkg/platform/sentinel"
)

// MemoryStore is an in-memory weight record store for tests.
//
// RunInTx serializes callers on a single mutex and snapshots the ledger
// before running fn, so a failing fn discards every staged write exactly
// like a SQL rollback would.
type MemoryStore struct {
	mu      sync.Mutex
	inTx    bool
	records map[string]*weights.Record // keyed by content_id
}

// NewMemory constructs an empty in-memory weight record store.
func NewMemory() *MemoryStore {
	return &MemoryStore{records: make(map[string]*weights.Record)}
}

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]*weights.Record, len(s.records))
	for k, v := range s.records {
		cp := *v
		snapshot[k] = &cp
	}

	s.inTx = true
	err := fn(ctx)
	s.inTx = false

	if err != nil {
		s.records = snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		// Already under RunInTx's mutex.
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) Upsert(_ context.Context, rec *weights.Record) (*weights.Record, error) {
	defer s.lock()()

	stored := *rec
	if existing, ok := s.records[rec.ContentID]; ok {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = rec.UpdatedAt
	}
	stored.DeletedAt = nil
	s.records[rec.ContentID] = &stored

	cp := stored
	return &cp, nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*weights.Record, error) {
	defer s.lock()()

	for _, rec := range s.records {
		if rec.ID == id {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) MarkDeleted(_ context.Context, contentIDs []string, at time.Time) (int, error) {
	defer s.lock()()

	updated := 0
	for _, id := range contentIDs {
		rec, ok := s.records[id]
		if !ok || rec.DeletedAt != nil {
			continue
		}
		t := at
		rec.DeletedAt = &t
		rec.UpdatedAt = at
		updated++
	}
	return updated, nil
}

func (s *MemoryStore) MarkDeletedByID(_ context.Context, id string, at time.Time) error {
	defer s.lock()()

	for _, rec := range s.records {
		if rec.ID == id && rec.DeletedAt == nil {
			t := at
			rec.DeletedAt = &t
			rec.UpdatedAt = at
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *MemoryStore) ListActive(_ context.Context, params weights.ListParams) ([]*weights.Record, int, error) {
	defer s.lock()()

	var active []*weights.Record
	for _, rec := range s.records {
		if rec.DeletedAt == nil {
			cp := *rec
			active = append(active, &cp)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].UpdatedAt.After(active[j].UpdatedAt)
	})

	total := len(active)
	start := (params.Page - 1) * params.PageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + params.PageSize
	if end > total {
		end = total
	}
	return active[start:end], total, nil
}
