package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"backoffice/internal/weights"
	"backoffice/pkg/platform/sentinel"
	txcontext "backoffice/pkg/platform/tx"
)

// PostgresStore persists weight records in PostgreSQL.
//
// The content_id unique constraint makes Upsert the only write path for
// assignments: a second assignment for the same content updates the existing
// row and clears its deleted_at, so cancelled records revive in place.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed weight record store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `id, content_id, source_url, weight, operator_id, operator_name, created_at, updated_at, deleted_at`

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

// Upsert writes one weight record keyed by content_id and returns the stored
// snapshot. An existing row keeps its id and created_at; everything else,
// including a soft-delete mark, is overwritten.
func (s *PostgresStore) Upsert(ctx context.Context, rec *weights.Record) (*weights.Record, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		INSERT INTO weight_records (id, content_id, source_url, weight, operator_id, operator_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (content_id) DO UPDATE SET
			source_url    = EXCLUDED.source_url,
			weight        = EXCLUDED.weight,
			operator_id   = EXCLUDED.operator_id,
			operator_name = EXCLUDED.operator_name,
			updated_at    = EXCLUDED.updated_at,
			deleted_at    = NULL
		RETURNING `+recordColumns,
		rec.ID, rec.ContentID, rec.SourceURL, rec.Weight,
		rec.OperatorID, rec.OperatorName, rec.UpdatedAt,
	)
	stored, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("upsert weight record: %w", err)
	}
	return stored, nil
}

// GetByID fetches one record regardless of its deletion state.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*weights.Record, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM weight_records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get weight record: %w", err)
	}
	return rec, nil
}

// MarkDeleted soft-deletes the active records for the given content IDs and
// returns how many rows changed. Already-cancelled and unknown identifiers
// are skipped, not errors.
func (s *PostgresStore) MarkDeleted(ctx context.Context, contentIDs []string, at time.Time) (int, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE weight_records
		SET deleted_at = $2, updated_at = $2
		WHERE content_id = ANY($1) AND deleted_at IS NULL
	`, pq.Array(contentIDs), at)
	if err != nil {
		return 0, fmt.Errorf("mark weight records deleted: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted weight records: %w", err)
	}
	return int(n), nil
}

// MarkDeletedByID soft-deletes one record by primary key. Returns
// sentinel.ErrNotFound when the record does not exist or is already deleted.
func (s *PostgresStore) MarkDeletedByID(ctx context.Context, id string, at time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE weight_records
		SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, id, at)
	if err != nil {
		return fmt.Errorf("mark weight record deleted: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("count deleted weight record: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ListActive returns a page of active records, most recently updated first.
func (s *PostgresStore) ListActive(ctx context.Context, params weights.ListParams) ([]*weights.Record, int, error) {
	var total int
	if err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM weight_records WHERE deleted_at IS NULL`,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count weight records: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM weight_records
		WHERE deleted_at IS NULL
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`, params.PageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list weight records: %w", err)
	}
	defer rows.Close()

	var records []*weights.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan weight record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate weight records: %w", err)
	}
	return records, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*weights.Record, error) {
	var rec weights.Record
	var deletedAt sql.NullTime

	err := row.Scan(
		&rec.ID, &rec.ContentID, &rec.SourceURL, &rec.Weight,
		&rec.OperatorID, &rec.OperatorName,
		&rec.CreatedAt, &rec.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if deletedAt.Valid {
		t := deletedAt.Time
		rec.DeletedAt = &t
	}
	return &rec, nil
}
