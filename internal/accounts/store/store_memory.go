package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"backoffice/internal/accounts"
	"backoffice/pkg/platform/sentinel"
)

// MemoryStore is an in-memory accounts store for tests.
type MemoryStore struct {
	mu    sync.Mutex
	inTx  bool
	users map[string]*accounts.User
	bans  []*accounts.BanRecord
}

// NewMemory constructs an empty in-memory accounts store.
func NewMemory() *MemoryStore {
	return &MemoryStore{users: make(map[string]*accounts.User)}
}

// AddUser seeds a user. Test helper.
func (s *MemoryStore) AddUser(user *accounts.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *user
	s.users[user.ID] = &cp
}

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userSnap := make(map[string]*accounts.User, len(s.users))
	for k, v := range s.users {
		cp := *v
		userSnap[k] = &cp
	}
	banSnap := make([]*accounts.BanRecord, len(s.bans))
	for i, b := range s.bans {
		cp := *b
		banSnap[i] = &cp
	}

	s.inTx = true
	err := fn(ctx)
	s.inTx = false

	if err != nil {
		s.users = userSnap
		s.bans = banSnap
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

func (s *MemoryStore) GetUser(_ context.Context, id string) (*accounts.User, error) {
	defer s.lock()()

	user, ok := s.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (s *MemoryStore) SetUserStatus(_ context.Context, id string, status accounts.UserStatus, at time.Time) error {
	defer s.lock()()

	user, ok := s.users[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	user.Status = status
	user.UpdatedAt = at
	return nil
}

func (s *MemoryStore) ActiveBans(_ context.Context, userID string, at time.Time) ([]*accounts.BanRecord, error) {
	defer s.lock()()

	var active []*accounts.BanRecord
	for _, ban := range s.bans {
		if ban.UserID == userID && ban.Active(at) {
			cp := *ban
			active = append(active, &cp)
		}
	}
	sortBansNewestFirst(active)
	return active, nil
}

func (s *MemoryStore) AppendBan(_ context.Context, ban *accounts.BanRecord) error {
	defer s.lock()()

	cp := *ban
	s.bans = append(s.bans, &cp)
	return nil
}

func (s *MemoryStore) RevokeActiveBans(_ context.Context, userID, revokedBy, reason string, at time.Time) (int, error) {
	defer s.lock()()

	revoked := 0
	for _, ban := range s.bans {
		if ban.UserID == userID && ban.RevokedAt == nil {
			t := at
			ban.RevokedAt = &t
			ban.RevokedBy = revokedBy
			ban.RevokeReason = reason
			revoked++
		}
	}
	return revoked, nil
}

func (s *MemoryStore) BanHistory(_ context.Context, userID string) ([]*accounts.BanRecord, error) {
	defer s.lock()()

	var history []*accounts.BanRecord
	for _, ban := range s.bans {
		if ban.UserID == userID {
			cp := *ban
			history = append(history, &cp)
		}
	}
	sortBansNewestFirst(history)
	return history, nil
}

func sortBansNewestFirst(bans []*accounts.BanRecord) {
	sort.Slice(bans, func(i, j int) bool {
		return bans[i].CreatedAt.After(bans[j].CreatedAt)
	})
}
