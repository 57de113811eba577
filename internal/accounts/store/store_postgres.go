package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"backoffice/internal/accounts"
	"backoffice/pkg/platform/sentinel"
	txcontext "backoffice/pkg/platform/tx"
)

// PostgresStore persists users and ban history in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed accounts store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// RunInTx executes fn inside a single database transaction. Store methods
// called with the derived context join that transaction.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback after %v: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*accounts.User, error) {
	var user accounts.User
	var status string
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT id, status, updated_at FROM users WHERE id = $1`, id,
	).Scan(&user.ID, &status, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	user.Status = accounts.UserStatus(status)
	return &user, nil
}

func (s *PostgresStore) SetUserStatus(ctx context.Context, id string, status accounts.UserStatus, at time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE users SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), at,
	)
	if err != nil {
		return fmt.Errorf("set user status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("count user status update: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ActiveBans returns the user's unrevoked, unexpired bans at the given
// instant, newest first.
func (s *PostgresStore) ActiveBans(ctx context.Context, userID string, at time.Time) ([]*accounts.BanRecord, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, user_id, reason, ends_at, imposed_by, revoked_at, revoked_by, revoke_reason, created_at
		FROM ban_records
		WHERE user_id = $1 AND revoked_at IS NULL AND (ends_at IS NULL OR ends_at > $2)
		ORDER BY created_at DESC
	`, userID, at)
	if err != nil {
		return nil, fmt.Errorf("list active bans: %w", err)
	}
	defer rows.Close()
	return collectBans(rows)
}

func (s *PostgresStore) AppendBan(ctx context.Context, ban *accounts.BanRecord) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO ban_records (id, user_id, reason, ends_at, imposed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ban.ID, ban.UserID, ban.Reason, ban.EndsAt, ban.ImposedBy, ban.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ban record: %w", err)
	}
	return nil
}

// RevokeActiveBans marks every unrevoked ban for the user as revoked and
// returns how many were touched.
func (s *PostgresStore) RevokeActiveBans(ctx context.Context, userID, revokedBy, reason string, at time.Time) (int, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE ban_records
		SET revoked_at = $2, revoked_by = $3, revoke_reason = $4
		WHERE user_id = $1 AND revoked_at IS NULL
	`, userID, at, revokedBy, reason)
	if err != nil {
		return 0, fmt.Errorf("revoke active bans: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count revoked bans: %w", err)
	}
	return int(n), nil
}

// BanHistory returns the user's full ban history, newest first.
func (s *PostgresStore) BanHistory(ctx context.Context, userID string) ([]*accounts.BanRecord, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, user_id, reason, ends_at, imposed_by, revoked_at, revoked_by, revoke_reason, created_at
		FROM ban_records
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list ban history: %w", err)
	}
	defer rows.Close()
	return collectBans(rows)
}

func collectBans(rows *sql.Rows) ([]*accounts.BanRecord, error) {
	var bans []*accounts.BanRecord
	for rows.Next() {
		var ban accounts.BanRecord
		var reason, revokedBy, revokeReason sql.NullString
		var endsAt, revokedAt sql.NullTime

		err := rows.Scan(
			&ban.ID, &ban.UserID, &reason, &endsAt, &ban.ImposedBy,
			&revokedAt, &revokedBy, &revokeReason, &ban.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ban record: %w", err)
		}

		ban.Reason = reason.String
		ban.RevokedBy = revokedBy.String
		ban.RevokeReason = revokeReason.String
		if endsAt.Valid {
			t := endsAt.Time
			ban.EndsAt = &t
		}
		if revokedAt.Valid {
			t := revokedAt.Time
			ban.RevokedAt = &t
		}
		bans = append(bans, &ban)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ban records: %w", err)
	}
	return bans, nil
}
