// Package service implements the moderation engine: it applies approve and
// reject decisions to submitted items, cascades rejection across content
// groups, and fires the decoupled post-commit side effects.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"backoffice/internal/audit"
	"backoffice/internal/content"
	"backoffice/internal/moderation"
	"backoffice/internal/moderation/metrics"
	"backoffice/internal/notify"
	dErrors "backoffice/pkg/domain-errors"
	"backoffice/pkg/platform/sentinel"
	"backoffice/pkg/requestcontext"
)

// Store is the moderation ledger consumed by the engine. The status guard is
// evaluated inside RunInTx so concurrent decisions on one item resolve to
// exactly one success.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetItem(ctx context.Context, id string) (*moderation.Item, error)
	MarkDecided(ctx context.Context, id string, status moderation.ItemStatus, comment, operatorID string, at time.Time) (*moderation.Item, error)
	DeleteGroupSiblings(ctx context.Context, groupID, exceptID string) ([]string, error)
	ListPending(ctx context.Context, params moderation.ListParams) ([]*moderation.Item, int, error)
}

// ApprovedPublisher announces approved items downstream. Best-effort.
type ApprovedPublisher interface {
	PublishApproved(ctx context.Context, item *moderation.Item) error
}

// AuditRecorder appends operator actions. Best-effort after commit.
type AuditRecorder interface {
	Record(ctx context.Context, operatorID, actionType, targetType, targetID string, details map[string]any) error
}

// Service is the moderation engine.
type Service struct {
	store     Store
	contents  content.Store
	notifier  notify.Sender
	publisher ApprovedPublisher
	auditor   AuditRecorder
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// New constructs the moderation engine. notifier, publisher, auditor, and
// metrics may be nil; the corresponding side effect is skipped.
func New(store Store, contents content.Store, notifier notify.Sender, publisher ApprovedPublisher, auditor AuditRecorder, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{
		store:     store,
		contents:  contents,
		notifier:  notifier,
		publisher: publisher,
		auditor:   auditor,
		metrics:   m,
		log:       log,
	}
}

// Decide applies one approve/reject decision. The item mutation, dependent
// content visibility change, and rejection fan-out commit in a single store
// transaction; notification, publishing, and audit run after commit and may
// fail without affecting the decision.
func (s *Service) Decide(ctx context.Context, req moderation.DecideRequest) (*moderation.DecisionResult, error) {
	start := time.Now()

	if req.OperatorID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "operator id is required")
	}
	var status moderation.ItemStatus
	switch req.Action {
	case moderation.ActionApprove:
		status = moderation.StatusApproved
	case moderation.ActionReject:
		status = moderation.StatusRejected
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "action must be approve or reject")
	}

	now := requestcontext.Now(ctx)
	result := &moderation.DecisionResult{}

	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		item, err := s.store.MarkDecided(ctx, req.ItemID, status, req.Comment, req.OperatorID, now)
		if err != nil {
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
				return dErrors.New(dErrors.CodeNotFound, "moderation item not found")
			case errors.Is(err, sentinel.ErrInvalidState):
				return dErrors.New(dErrors.CodeAlreadyDecided, "moderation item already decided")
			default:
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to decide moderation item")
			}
		}
		result.Item = item

		visibility := content.VisibilityVisible
		if status == moderation.StatusRejected {
			visibility = content.VisibilityRemoved
		}
		if _, err := s.contents.SetGroupVisibility(ctx, item.ContentGroupID, visibility); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update content visibility")
		}

		if status == moderation.StatusRejected {
			deleted, err := s.store.DeleteGroupSiblings(ctx, item.ContentGroupID, item.ID)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove group siblings")
			}
			result.DeletedSiblings = deleted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterDecision(ctx, req, result)

	if s.metrics != nil {
		if status == moderation.StatusApproved {
			s.metrics.ItemsApproved.Inc()
		} else {
			s.metrics.ItemsRejected.Inc()
			s.metrics.SiblingsDeleted.Add(float64(len(result.DeletedSiblings)))
		}
		s.metrics.ObserveDecide(start)
	}
	return result, nil
}

// GetItem returns one moderation item.
func (s *Service) GetItem(ctx context.Context, id string) (*moderation.Item, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "moderation item not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load moderation item")
	}
	return item, nil
}

// ListPending pages through the pending review queue.
func (s *Service) ListPending(ctx context.Context, params moderation.ListParams) ([]*moderation.Item, int, error) {
	if params.Page < 1 || params.PageSize < 1 {
		return nil, 0, dErrors.New(dErrors.CodeInvalidInput, "page and page_size must be positive")
	}
	items, total, err := s.store.ListPending(ctx, params)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending items")
	}
	return items, total, nil
}

// afterDecision runs the decoupled side effects. Failures are logged and
// counted, never returned: the decision is already committed.
func (s *Service) afterDecision(ctx context.Context, req moderation.DecideRequest, result *moderation.DecisionResult) {
	item := result.Item

	if s.notifier != nil && item.CreatorID != "" {
		notifType := notify.TypeSubmissionApproved
		if item.Status == moderation.StatusRejected {
			notifType = notify.TypeSubmissionRejected
		}
		sent := s.notifier.Notify(ctx, []string{item.CreatorID}, notifType, map[string]any{
			"item_id": item.ID,
			"name":    item.Name,
			"symbol":  item.Symbol,
			"comment": req.Comment,
		})
		if !sent {
			s.log.Warn("creator notification failed", "item_id", item.ID, "creator_id", item.CreatorID)
			if s.metrics != nil {
				s.metrics.SideEffectFailures.Inc()
			}
		}
	}

	if s.publisher != nil && item.Status == moderation.StatusApproved {
		if err := s.publisher.PublishApproved(ctx, item); err != nil {
			s.log.Error("approved item publish failed", "item_id", item.ID, "error", err)
			if s.metrics != nil {
				s.metrics.SideEffectFailures.Inc()
			}
		}
	}

	if s.auditor != nil {
		actionType := audit.ActionApproveItem
		if item.Status == moderation.StatusRejected {
			actionType = audit.ActionRejectItem
		}
		details := map[string]any{
			"comment":    req.Comment,
			"creator_id": item.CreatorID,
			"group_id":   item.ContentGroupID,
		}
		if len(result.DeletedSiblings) > 0 {
			details["deleted_siblings"] = result.DeletedSiblings
		}
		if err := s.auditor.Record(ctx, req.OperatorID, actionType, "moderation_item", item.ID, details); err != nil {
			s.log.Warn("audit record failed", "item_id", item.ID, "error", err)
		}
	}
}
