package service

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"backoffice/internal/accounts"
	"backoffice/internal/accounts/store"
	"backoffice/internal/audit"
	dErrors "backoffice/pkg/domain-errors"
	"backoffice/pkg/requestcontext"
)

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
	fail  bool
}

func (f *fakeNotifier) Notify(_ context.Context, _ []string, notificationType string, _ map[string]any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notificationType)
	return !f.fail
}

type ServiceSuite struct {
	suite.Suite
	ctx        context.Context
	now        time.Time
	store      *store.MemoryStore
	notifier   *fakeNotifier
	auditStore *audit.MemoryStore
	service    *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = store.NewMemory()
	s.notifier = &fakeNotifier{}
	s.auditStore = audit.NewMemory()

	log := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	s.service = New(s.store, s.notifier, audit.NewRecorder(s.auditStore, log), log)

	s.store.AddUser(&accounts.User{ID: "u1", Status: accounts.UserStatusActive})
}

func (s *ServiceSuite) TestBanTemporary() {
	ban, err := s.service.Ban(s.ctx, accounts.BanRequest{
		UserID:     "u1",
		Reason:     "spam",
		Duration:   24 * time.Hour,
		OperatorID: "op-1",
	})
	s.Require().NoError(err)
	s.Require().NotNil(ban.EndsAt)
	s.Equal(s.now.Add(24*time.Hour), *ban.EndsAt)

	user, err := s.store.GetUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(accounts.UserStatusBanned, user.Status)

	s.Equal([]string{"user_banned"}, s.notifier.calls)
	entries := s.auditStore.Entries()
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionBanUser, entries[0].ActionType)
}

func (s *ServiceSuite) TestBanPermanent() {
	ban, err := s.service.Ban(s.ctx, accounts.BanRequest{
		UserID: "u1", Reason: "fraud", OperatorID: "op-1",
	})
	s.Require().NoError(err)
	s.Nil(ban.EndsAt)
}

func (s *ServiceSuite) TestBanAlreadyBannedConflict() {
	_, err := s.service.Ban(s.ctx, accounts.BanRequest{UserID: "u1", OperatorID: "op-1"})
	s.Require().NoError(err)

	_, err = s.service.Ban(s.ctx, accounts.BanRequest{UserID: "u1", OperatorID: "op-2"})
	s.Require().Error(err)
	s.Equal(dErrors.CodeConflict, dErrors.CodeOf(err))

	// History unchanged by the rejected attempt.
	history, err := s.store.BanHistory(s.ctx, "u1")
	s.Require().NoError(err)
	s.Len(history, 1)
}

func (s *ServiceSuite) TestBanAgainAfterExpiry() {
	_, err := s.service.Ban(s.ctx, accounts.BanRequest{
		UserID: "u1", Duration: time.Hour, OperatorID: "op-1",
	})
	s.Require().NoError(err)

	later := requestcontext.WithTime(context.Background(), s.now.Add(2*time.Hour))
	_, err = s.service.Ban(later, accounts.BanRequest{UserID: "u1", OperatorID: "op-1"})
	s.Require().NoError(err)

	history, err := s.store.BanHistory(s.ctx, "u1")
	s.Require().NoError(err)
	s.Len(history, 2)
}

func (s *ServiceSuite) TestBanUnknownUser() {
	_, err := s.service.Ban(s.ctx, accounts.BanRequest{UserID: "ghost", OperatorID: "op-1"})
	s.Require().Error(err)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestUnban() {
	_, err := s.service.Ban(s.ctx, accounts.BanRequest{UserID: "u1", OperatorID: "op-1"})
	s.Require().NoError(err)

	err = s.service.Unban(s.ctx, accounts.UnbanRequest{
		UserID: "u1", Reason: "appeal accepted", OperatorID: "op-2",
	})
	s.Require().NoError(err)

	user, err := s.store.GetUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(accounts.UserStatusActive, user.Status)

	history, err := s.store.BanHistory(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.NotNil(history[0].RevokedAt)
	s.Equal("op-2", history[0].RevokedBy)
	s.Equal("appeal accepted", history[0].RevokeReason)

	s.Equal([]string{"user_banned", "user_unbanned"}, s.notifier.calls)
}

func (s *ServiceSuite) TestUnbanDefaultsReason() {
	_, err := s.service.Ban(s.ctx, accounts.BanRequest{UserID: "u1", OperatorID: "op-1"})
	s.Require().NoError(err)

	s.Require().NoError(s.service.Unban(s.ctx, accounts.UnbanRequest{UserID: "u1", OperatorID: "op-1"}))

	history, err := s.store.BanHistory(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal("Unbanned by operator", history[0].RevokeReason)
}

func (s *ServiceSuite) TestUnbanWithoutActiveBan() {
	err := s.service.Unban(s.ctx, accounts.UnbanRequest{UserID: "u1", OperatorID: "op-1"})
	s.Require().Error(err)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))

	// Rolled back: status untouched.
	user, getErr := s.store.GetUser(s.ctx, "u1")
	s.Require().NoError(getErr)
	s.Equal(accounts.UserStatusActive, user.Status)
}

func (s *ServiceSuite) TestNotificationFailureDoesNotFailBan() {
	s.notifier.fail = true

	_, err := s.service.Ban(s.ctx, accounts.BanRequest{UserID: "u1", OperatorID: "op-1"})
	s.Require().NoError(err)

	user, err := s.store.GetUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(accounts.UserStatusBanned, user.Status)
}

func (s *ServiceSuite) TestBanHistoryUnknownUser() {
	_, err := s.service.BanHistory(s.ctx, "ghost")
	s.Require().Error(err)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}
