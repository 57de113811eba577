// Package service implements the weight ledger: batch assignment of
// recommendation weights keyed by content URL, cancellation, and the
// stage-sync-commit discipline that keeps the local ledger and the
// recommendation service aligned.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"backoffice/internal/audit"
	"backoffice/internal/content"
	"backoffice/internal/weights"
	"backoffice/internal/weights/metrics"
	dErrors "backoffice/pkg/domain-errors"
	"backoffice/pkg/platform/sentinel"
	platformstrings "backoffice/pkg/platform/strings"
	"backoffice/pkg/requestcontext"
)

// Store is the weight ledger consumed by the service. Writes are staged
// inside RunInTx so the recommendation sync can veto the whole batch.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	Upsert(ctx context.Context, rec *weights.Record) (*weights.Record, error)
	GetByID(ctx context.Context, id string) (*weights.Record, error)
	MarkDeleted(ctx context.Context, contentIDs []string, at time.Time) (int, error)
	MarkDeletedByID(ctx context.Context, id string, at time.Time) error
	ListActive(ctx context.Context, params weights.ListParams) ([]*weights.Record, int, error)
}

// Syncer mirrors ledger changes into the recommendation service. A returned
// error aborts the surrounding transaction.
type Syncer interface {
	NotifySet(ctx context.Context, contentIDs []string) error
	NotifyRemove(ctx context.Context, contentIDs []string) error
}

// AuditRecorder appends operator actions. Best-effort after commit.
type AuditRecorder interface {
	Record(ctx context.Context, operatorID, actionType, targetType, targetID string, details map[string]any) error
}

// Service is the weight ledger engine.
type Service struct {
	store    Store
	contents content.Store
	syncer   Syncer
	auditor  AuditRecorder
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// New constructs the weight ledger engine. auditor and metrics may be nil;
// the corresponding side effect is skipped.
func New(store Store, contents content.Store, syncer Syncer, auditor AuditRecorder, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		contents: contents,
		syncer:   syncer,
		auditor:  auditor,
		metrics:  m,
		log:      log,
	}
}

// AssignWeights parses a comma-separated URL batch, validates every referenced
// content record, and writes one weight record per content identifier. The
// batch is all-or-nothing: a single malformed URL, unknown content record, or
// failed recommendation sync leaves the ledger untouched.
func (s *Service) AssignWeights(ctx context.Context, req weights.AssignRequest) ([]*weights.Record, error) {
	start := time.Now()

	if req.OperatorID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "operator id is required")
	}
	if req.Weight < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "weight must not be negative")
	}

	contentIDs, sources, err := parsePostURLs(req.PostURLs)
	if err != nil {
		return nil, err
	}

	if missing, err := s.findMissing(ctx, contentIDs); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to validate content records")
	} else if len(missing) > 0 {
		return nil, dErrors.New(dErrors.CodeNotFound,
			"unknown content records: "+strings.Join(missing, ", "))
	}

	now := requestcontext.Now(ctx)
	records := make([]*weights.Record, 0, len(contentIDs))

	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		for i, contentID := range contentIDs {
			stored, err := s.store.Upsert(ctx, &weights.Record{
				ID:           uuid.NewString(),
				ContentID:    contentID,
				SourceURL:    sources[i],
				Weight:       req.Weight,
				OperatorID:   req.OperatorID,
				OperatorName: req.OperatorName,
				UpdatedAt:    now,
			})
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store weight record")
			}
			records = append(records, stored)
		}

		// Sync before commit: if the recommendation service does not accept
		// the batch, the staged rows must not survive.
		if err := s.syncer.NotifySet(ctx, contentIDs); err != nil {
			if s.metrics != nil {
				s.metrics.SyncFailures.Inc()
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, req.OperatorID, audit.ActionAssignWeights, strings.Join(contentIDs, ","), map[string]any{
		"content_ids": contentIDs,
		"weight":      req.Weight,
		"batch_size":  len(contentIDs),
	})
	if s.metrics != nil {
		s.metrics.RecordsAssigned.Add(float64(len(records)))
		s.metrics.ObserveAssign(start)
	}

	s.log.Info("weights assigned",
		"request_id", requestcontext.RequestID(ctx),
		"operator_id", req.OperatorID,
		"batch_size", len(records),
		"weight", req.Weight,
	)
	return records, nil
}

// CancelWeights soft-deletes the active records for the given content IDs.
// Unknown and already-cancelled identifiers are counted as requested but not
// updated, so repeating a cancel is harmless.
func (s *Service) CancelWeights(ctx context.Context, req weights.CancelRequest) (*weights.CancelResult, error) {
	if req.OperatorID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "operator id is required")
	}
	contentIDs := platformstrings.DedupeAndTrim(req.ContentIDs)
	if len(contentIDs) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "content_ids must not be empty")
	}

	now := requestcontext.Now(ctx)
	result := &weights.CancelResult{Requested: len(contentIDs)}

	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		updated, err := s.store.MarkDeleted(ctx, contentIDs, now)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel weight records")
		}
		result.Updated = updated

		// The remove call covers the whole batch, including identifiers that
		// had no active record: the recommendation service treats removal as
		// idempotent and this keeps both sides converged.
		if err := s.syncer.NotifyRemove(ctx, contentIDs); err != nil {
			if s.metrics != nil {
				s.metrics.SyncFailures.Inc()
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, req.OperatorID, audit.ActionCancelWeights, strings.Join(contentIDs, ","), map[string]any{
		"content_ids": contentIDs,
		"requested":   result.Requested,
		"updated":     result.Updated,
	})
	if s.metrics != nil {
		s.metrics.RecordsCancelled.Add(float64(result.Updated))
	}

	s.log.Info("weights cancelled",
		"request_id", requestcontext.RequestID(ctx),
		"operator_id", req.OperatorID,
		"requested", result.Requested,
		"updated", result.Updated,
	)
	return result, nil
}

// DeleteRecord cancels a single record by its ledger identifier.
func (s *Service) DeleteRecord(ctx context.Context, recordID, operatorID string) error {
	if operatorID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "operator id is required")
	}

	rec, err := s.store.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "weight record not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load weight record")
	}
	if rec.DeletedAt != nil {
		return dErrors.New(dErrors.CodeNotFound, "weight record already cancelled")
	}

	now := requestcontext.Now(ctx)
	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.MarkDeletedByID(ctx, recordID, now); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "weight record not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete weight record")
		}

		if err := s.syncer.NotifyRemove(ctx, []string{rec.ContentID}); err != nil {
			if s.metrics != nil {
				s.metrics.SyncFailures.Inc()
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.afterWrite(ctx, operatorID, audit.ActionDeleteWeight, recordID, map[string]any{
		"content_id": rec.ContentID,
	})
	if s.metrics != nil {
		s.metrics.RecordsCancelled.Inc()
	}
	return nil
}

// ListWeights pages through active records, most recently updated first.
func (s *Service) ListWeights(ctx context.Context, params weights.ListParams) ([]*weights.Record, int, error) {
	if params.Page < 1 || params.PageSize < 1 {
		return nil, 0, dErrors.New(dErrors.CodeInvalidInput, "page and page_size must be positive")
	}
	records, total, err := s.store.ListActive(ctx, params)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list weight records")
	}
	return records, total, nil
}

// findMissing checks every content identifier against the platform and
// returns the unknown ones in request order.
func (s *Service) findMissing(ctx context.Context, contentIDs []string) ([]string, error) {
	var missing []string
	for _, id := range contentIDs {
		ok, err := s.contents.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (s *Service) afterWrite(ctx context.Context, operatorID, action, targetID string, details map[string]any) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(ctx, operatorID, action, "weight_record", targetID, details); err != nil {
		s.log.Error("audit record failed", "action", action, "error", err)
	}
}

// parsePostURLs splits a comma-separated URL list into deduplicated content
// identifiers (the last path segment of each URL) plus the source URL each
// identifier was first seen in. Any entry without a usable path segment
// rejects the whole batch.
func parsePostURLs(raw string) (contentIDs, sources []string, err error) {
	seen := make(map[string]struct{})
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		id, err := contentIDFromURL(entry)
		if err != nil {
			return nil, nil, dErrors.New(dErrors.CodeInvalidInput,
				fmt.Sprintf("invalid post url %q: %v", entry, err))
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		contentIDs = append(contentIDs, id)
		sources = append(sources, entry)
	}
	if len(contentIDs) == 0 {
		return nil, nil, dErrors.New(dErrors.CodeInvalidInput, "post_urls must contain at least one url")
	}
	return contentIDs, sources, nil
}

func contentIDFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	id := segments[len(segments)-1]
	if id == "" {
		return "", errors.New("url has no path segment")
	}
	return id, nil
}
