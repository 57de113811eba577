package content

import (
	"context"
	"database/sql"
	"fmt"

	txcontext "backoffice/pkg/platform/tx"
	"backoffice/pkg/requestcontext"
)

// PostgresStore reads and updates content records. Mutations join an ambient
// transaction from context so visibility changes commit atomically with the
// moderation decision that caused them.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed content store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Exists(ctx context.Context, contentID string) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM contents WHERE id = $1)`, contentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("content exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) SetGroupVisibility(ctx context.Context, groupID string, v Visibility) (int, error) {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE contents SET visibility_status = $2, updated_at = $3 WHERE group_id = $1`,
		groupID, string(v), requestcontext.Now(ctx),
	)
	if err != nil {
		return 0, fmt.Errorf("set group visibility: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("set group visibility rows: %w", err)
	}
	return int(affected), nil
}
