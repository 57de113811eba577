package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"backoffice/internal/moderation"
	"backoffice/pkg/platform/sentinel"
	txcontext "backoffice/pkg/platform/tx"
)

// PostgresStore persists moderation items in PostgreSQL.
//
// The status guard is an atomic conditional update: MarkDecided only touches
// rows still in 'pending', so two concurrent decisions on the same item can
// never both succeed regardless of interleaving.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed moderation item store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const itemColumns = `id, content_group_id, creator_id, name, symbol, description, status, review_comment, reviewed_by, reviewed_at, created_at`

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

func (s *PostgresStore) CreateItem(ctx context.Context, item *moderation.Item) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO moderation_items (id, content_group_id, creator_id, name, symbol, description, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`,
		item.ID, item.ContentGroupID, item.CreatorID,
		item.Name, item.Symbol, item.Description,
		string(item.Status), item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert moderation item: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetItem(ctx context.Context, id string) (*moderation.Item, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM moderation_items WHERE id = $1`, id)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get moderation item: %w", err)
	}
	return item, nil
}

// MarkDecided transitions a pending item to a terminal status and returns the
// updated snapshot. Returns sentinel.ErrNotFound when no such item exists and
// sentinel.ErrInvalidState when the item exists but is no longer pending.
func (s *PostgresStore) MarkDecided(ctx context.Context, id string, status moderation.ItemStatus, comment, operatorID string, at time.Time) (*moderation.Item, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		UPDATE moderation_items
		SET status = $2, review_comment = $3, reviewed_by = $4, reviewed_at = $5
		WHERE id = $1 AND status = $6
		RETURNING `+itemColumns,
		id, string(status), comment, operatorID, at, string(moderation.StatusPending),
	)
	item, err := scanItem(row)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mark decided: %w", err)
	}

	// Zero rows: distinguish missing from already decided within the same
	// transaction.
	if _, getErr := s.GetItem(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, sentinel.ErrInvalidState
}

// DeleteGroupSiblings removes every other item in the group and returns the
// deleted identifiers.
func (s *PostgresStore) DeleteGroupSiblings(ctx context.Context, groupID, exceptID string) ([]string, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		DELETE FROM moderation_items
		WHERE content_group_id = $1 AND id <> $2
		RETURNING id
	`, groupID, exceptID)
	if err != nil {
		return nil, fmt.Errorf("delete group siblings: %w", err)
	}
	defer rows.Close()

	var deleted []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan deleted sibling: %w", err)
		}
		deleted = append(deleted, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deleted siblings: %w", err)
	}
	return deleted, nil
}

// ListPending returns a page of the pending review queue, newest first.
func (s *PostgresStore) ListPending(ctx context.Context, params moderation.ListParams) ([]*moderation.Item, int, error) {
	where := `WHERE status = $1`
	args := []any{string(moderation.StatusPending)}

	if params.CreatorID != "" {
		args = append(args, params.CreatorID)
		where += fmt.Sprintf(` AND creator_id = $%d`, len(args))
	}
	if params.Symbol != "" {
		args = append(args, params.Symbol)
		where += fmt.Sprintf(` AND symbol = $%d`, len(args))
	}
	if params.Name != "" {
		args = append(args, "%"+params.Name+"%")
		where += fmt.Sprintf(` AND name ILIKE $%d`, len(args))
	}

	var total int
	if err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM moderation_items `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count pending items: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	args = append(args, params.PageSize, offset)
	query := fmt.Sprintf(
		`SELECT `+itemColumns+` FROM moderation_items %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args),
	)

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list pending items: %w", err)
	}
	defer rows.Close()

	var items []*moderation.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan pending item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate pending items: %w", err)
	}
	return items, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*moderation.Item, error) {
	var item moderation.Item
	var status string
	var comment, reviewedBy sql.NullString
	var reviewedAt sql.NullTime

	err := row.Scan(
		&item.ID, &item.ContentGroupID, &item.CreatorID,
		&item.Name, &item.Symbol, &item.Description,
		&status, &comment, &reviewedBy, &reviewedAt, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Status = moderation.ItemStatus(status)
	item.ReviewComment = comment.String
	item.ReviewedBy = reviewedBy.String
	if reviewedAt.Valid {
		t := reviewedAt.Time
		item.ReviewedAt = &t
	}
	return &item, nil
}
