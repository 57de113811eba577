// Package audit appends operator actions to a best-effort, append-only log.
//
// The recorder is invoked strictly after the caller's primary mutation has
// committed and never shares its transaction: a lost audit entry is logged
// and swallowed, never surfaced to the operator.
package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	dErrors "backoffice/pkg/domain-errors"
	"backoffice/pkg/requestcontext"
)

// Store persists audit entries.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
}

// Recorder writes audit entries, swallowing every failure except a missing
// operator identity.
type Recorder struct {
	store Store
	log   *slog.Logger
}

// NewRecorder constructs a Recorder.
func NewRecorder(store Store, log *slog.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

// Record appends one audit entry. An empty operatorID is the only error that
// propagates; store failures are logged and dropped so the audit path can
// never fail a committed operation.
func (r *Recorder) Record(ctx context.Context, operatorID, actionType, targetType, targetID string, details map[string]any) error {
	if operatorID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "operator id is required for audit logging")
	}

	entry := &Entry{
		ID:         uuid.NewString(),
		OperatorID: operatorID,
		ActionType: actionType,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    details,
		CreatedAt:  requestcontext.Now(ctx),
	}

	if err := r.store.Append(ctx, entry); err != nil {
		r.log.Error("audit append failed",
			"operator_id", operatorID,
			"action_type", actionType,
			"target", targetType+":"+targetID,
			"error", err,
		)
		return nil
	}

	r.log.Info("audit entry recorded",
		"operator_id", operatorID,
		"action_type", actionType,
		"target", targetType+":"+targetID,
	)
	return nil
}
