package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"backoffice/internal/accounts"
	"backoffice/pkg/platform/httputil"
	"backoffice/pkg/requestcontext"
)

// Service defines the account operations exposed over HTTP.
type Service interface {
	Ban(ctx context.Context, req accounts.BanRequest) (*accounts.BanRecord, error)
	Unban(ctx context.Context, req accounts.UnbanRequest) error
	BanHistory(ctx context.Context, userID string) ([]*accounts.BanRecord, error)
}

// Handler wires account endpoints to the accounts service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an accounts handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts account endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/users/{userID}/ban", h.handleBan)
	r.Post("/users/{userID}/unban", h.handleUnban)
	r.Get("/users/{userID}/bans", h.handleBanHistory)
}

type banRequest struct {
	Reason string `json:"reason"`
	// DurationSeconds of 0 means a permanent ban.
	DurationSeconds int64 `json:"duration_seconds"`
}

type unbanRequest struct {
	Reason string `json:"reason"`
}

type banResponse struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Reason       string     `json:"reason,omitempty"`
	EndsAt       *time.Time `json:"ends_at,omitempty"`
	ImposedBy    string     `json:"imposed_by"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
	RevokedBy    string     `json:"revoked_by,omitempty"`
	RevokeReason string     `json:"revoke_reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toBanResponse(ban *accounts.BanRecord) banResponse {
	return banResponse{
		ID:           ban.ID,
		UserID:       ban.UserID,
		Reason:       ban.Reason,
		EndsAt:       ban.EndsAt,
		ImposedBy:    ban.ImposedBy,
		RevokedAt:    ban.RevokedAt,
		RevokedBy:    ban.RevokedBy,
		RevokeReason: ban.RevokeReason,
		CreatedAt:    ban.CreatedAt,
	}
}

func (h *Handler) handleBan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op := requestcontext.Operator(ctx)

	var req banRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	ban, err := h.service.Ban(ctx, accounts.BanRequest{
		UserID:       chi.URLParam(r, "userID"),
		Reason:       req.Reason,
		Duration:     time.Duration(req.DurationSeconds) * time.Second,
		OperatorID:   op.ID,
		OperatorName: op.Name,
	})
	if err != nil {
		h.logger.Error("ban failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", chi.URLParam(r, "userID"),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBanResponse(ban))
}

func (h *Handler) handleUnban(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op := requestcontext.Operator(ctx)

	// The unban body is optional; an empty body means the default reason.
	var req unbanRequest
	if r.ContentLength > 0 {
		if err := httputil.Decode(r, &req); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	err := h.service.Unban(ctx, accounts.UnbanRequest{
		UserID:       chi.URLParam(r, "userID"),
		Reason:       req.Reason,
		OperatorID:   op.ID,
		OperatorName: op.Name,
	})
	if err != nil {
		h.logger.Error("unban failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", chi.URLParam(r, "userID"),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBanHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.BanHistory(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := make([]banResponse, 0, len(history))
	for _, ban := range history {
		resp = append(resp, toBanResponse(ban))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
