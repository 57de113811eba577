// Package service implements account ban operations: imposing a ban, revoking
// it, and the history both leave behind.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"backoffice/internal/accounts"
	"backoffice/internal/audit"
	"backoffice/internal/notify"
	dErrors "backoffice/pkg/domain-errors"
	"backoffice/pkg/platform/sentinel"
	"backoffice/pkg/requestcontext"
)

const defaultUnbanReason = "Unbanned by operator"

// Store is the accounts ledger consumed by the service.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetUser(ctx context.Context, id string) (*accounts.User, error)
	SetUserStatus(ctx context.Context, id string, status accounts.UserStatus, at time.Time) error
	ActiveBans(ctx context.Context, userID string, at time.Time) ([]*accounts.BanRecord, error)
	AppendBan(ctx context.Context, ban *accounts.BanRecord) error
	RevokeActiveBans(ctx context.Context, userID, revokedBy, reason string, at time.Time) (int, error)
	BanHistory(ctx context.Context, userID string) ([]*accounts.BanRecord, error)
}

// AuditRecorder appends operator actions. Best-effort after commit.
type AuditRecorder interface {
	Record(ctx context.Context, operatorID, actionType, targetType, targetID string, details map[string]any) error
}

// Service applies ban and unban operations.
type Service struct {
	store    Store
	notifier notify.Sender
	auditor  AuditRecorder
	log      *slog.Logger
}

// New constructs the accounts service. notifier and auditor may be nil; the
// corresponding side effect is skipped.
func New(store Store, notifier notify.Sender, auditor AuditRecorder, log *slog.Logger) *Service {
	return &Service{store: store, notifier: notifier, auditor: auditor, log: log}
}

// Ban imposes a ban on the user and flips their status. Fails with Conflict
// when an active ban already exists; notification and audit run after commit
// and are best-effort.
func (s *Service) Ban(ctx context.Context, req accounts.BanRequest) (*accounts.BanRecord, error) {
	if req.OperatorID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "operator id is required")
	}
	if req.Duration < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "duration must not be negative")
	}

	now := requestcontext.Now(ctx)
	ban := &accounts.BanRecord{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Reason:    req.Reason,
		ImposedBy: req.OperatorID,
		CreatedAt: now,
	}
	if req.Duration > 0 {
		endsAt := now.Add(req.Duration)
		ban.EndsAt = &endsAt
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.GetUser(ctx, req.UserID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "user not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
		}

		active, err := s.store.ActiveBans(ctx, req.UserID, now)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check active bans")
		}
		if len(active) > 0 {
			return dErrors.New(dErrors.CodeConflict, "user already has an active ban")
		}

		if err := s.store.AppendBan(ctx, ban); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record ban")
		}
		if err := s.store.SetUserStatus(ctx, req.UserID, accounts.UserStatusBanned, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	meta := map[string]any{"reason": req.Reason}
	if ban.EndsAt != nil {
		meta["ends_at"] = ban.EndsAt.Format(time.RFC3339)
	}
	if s.notifier != nil && !s.notifier.Notify(ctx, []string{req.UserID}, notify.TypeUserBanned, meta) {
		s.log.Warn("ban notification failed", "user_id", req.UserID)
	}
	s.recordAudit(ctx, req.OperatorID, audit.ActionBanUser, req.UserID, meta)

	s.log.Info("user banned",
		"request_id", requestcontext.RequestID(ctx),
		"operator_id", req.OperatorID,
		"user_id", req.UserID,
		"permanent", ban.EndsAt == nil,
	)
	return ban, nil
}

// Unban revokes every active ban and reactivates the user. Fails with
// NotFound when the user has no active ban.
func (s *Service) Unban(ctx context.Context, req accounts.UnbanRequest) error {
	if req.OperatorID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "operator id is required")
	}
	reason := req.Reason
	if reason == "" {
		reason = defaultUnbanReason
	}

	now := requestcontext.Now(ctx)
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.GetUser(ctx, req.UserID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "user not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
		}

		revoked, err := s.store.RevokeActiveBans(ctx, req.UserID, req.OperatorID, reason, now)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke bans")
		}
		if revoked == 0 {
			return dErrors.New(dErrors.CodeNotFound, "user has no active bans")
		}

		if err := s.store.SetUserStatus(ctx, req.UserID, accounts.UserStatusActive, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user status")
		}
		return nil
	})
	if err != nil {
		return err
	}

	meta := map[string]any{"reason": reason}
	if s.notifier != nil && !s.notifier.Notify(ctx, []string{req.UserID}, notify.TypeUserUnbanned, meta) {
		s.log.Warn("unban notification failed", "user_id", req.UserID)
	}
	s.recordAudit(ctx, req.OperatorID, audit.ActionUnbanUser, req.UserID, meta)

	s.log.Info("user unbanned",
		"request_id", requestcontext.RequestID(ctx),
		"operator_id", req.OperatorID,
		"user_id", req.UserID,
	)
	return nil
}

// BanHistory returns the user's full ban history, newest first.
func (s *Service) BanHistory(ctx context.Context, userID string) ([]*accounts.BanRecord, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	history, err := s.store.BanHistory(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ban history")
	}
	return history, nil
}

func (s *Service) recordAudit(ctx context.Context, operatorID, action, userID string, details map[string]any) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(ctx, operatorID, action, "user", userID, details); err != nil {
		s.log.Error("audit record failed", "action", action, "error", err)
	}
}
