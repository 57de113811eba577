package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"backoffice/internal/moderation"
	"backoffice/pkg/platform/sentinel"
)

// MemoryStore is the in-memory moderation item store used by unit tests and
// local development. RunInTx serializes on a single mutex, which gives the
// same exactly-once decision property the conditional update provides in
// PostgreSQL.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]*moderation.Item
}

// NewMemory constructs an empty in-memory moderation store.
func NewMemory() *MemoryStore {
	return &MemoryStore{items: make(map[string]*moderation.Item)}
}

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx)
}

func (s *MemoryStore) CreateItem(ctx context.Context, item *moderation.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[item.ID]; exists {
		return nil
	}
	cp := *item
	s.items[item.ID] = &cp
	return nil
}

func (s *MemoryStore) GetItem(ctx context.Context, id string) (*moderation.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

// MarkDecided and DeleteGroupSiblings run only inside RunInTx, which already
// holds the store mutex.
func (s *MemoryStore) MarkDecided(ctx context.Context, id string, status moderation.ItemStatus, comment, operatorID string, at time.Time) (*moderation.Item, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if item.Status != moderation.StatusPending {
		return nil, sentinel.ErrInvalidState
	}
	item.Status = status
	item.ReviewComment = comment
	item.ReviewedBy = operatorID
	t := at
	item.ReviewedAt = &t
	cp := *item
	return &cp, nil
}

func (s *MemoryStore) DeleteGroupSiblings(ctx context.Context, groupID, exceptID string) ([]string, error) {
	var deleted []string
	for id, item := range s.items {
		if item.ContentGroupID == groupID && id != exceptID {
			delete(s.items, id)
			deleted = append(deleted, id)
		}
	}
	sort.Strings(deleted)
	return deleted, nil
}

func (s *MemoryStore) ListPending(ctx context.Context, params moderation.ListParams) ([]*moderation.Item, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*moderation.Item
	for _, item := range s.items {
		if item.Status != moderation.StatusPending {
			continue
		}
		if params.CreatorID != "" && item.CreatorID != params.CreatorID {
			continue
		}
		if params.Symbol != "" && item.Symbol != params.Symbol {
			continue
		}
		if params.Name != "" && !strings.Contains(strings.ToLower(item.Name), strings.ToLower(params.Name)) {
			continue
		}
		cp := *item
		matched = append(matched, &cp)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (params.Page - 1) * params.PageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + params.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}
