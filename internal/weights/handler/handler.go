package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"backoffice/internal/weights"
	dErrors "backoffice/pkg/domain-errors"
	"backoffice/pkg/platform/httputil"
	"backoffice/pkg/requestcontext"
)

// Service defines the weight ledger operations exposed over HTTP.
type Service interface {
	AssignWeights(ctx context.Context, req weights.AssignRequest) ([]*weights.Record, error)
	CancelWeights(ctx context.Context, req weights.CancelRequest) (*weights.CancelResult, error)
	DeleteRecord(ctx context.Context, recordID, operatorID string) error
	ListWeights(ctx context.Context, params weights.ListParams) ([]*weights.Record, int, error)
}

// Handler wires weight ledger endpoints to the service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a weights handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts weight ledger endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/weights", h.handleList)
	r.Post("/weights", h.handleAssign)
	r.Post("/weights/cancel", h.handleCancel)
	r.Delete("/weights/{recordID}", h.handleDelete)
}

type assignRequest struct {
	PostURLs string  `json:"post_urls"`
	Weight   float64 `json:"weight"`
}

type cancelRequest struct {
	ContentIDs []string `json:"content_ids"`
}

type recordResponse struct {
	ID           string    `json:"id"`
	ContentID    string    `json:"content_id"`
	SourceURL    string    `json:"source_url"`
	Weight       float64   `json:"weight"`
	OperatorID   string    `json:"operator_id"`
	OperatorName string    `json:"operator_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type assignResponse struct {
	Records []recordResponse `json:"records"`
}

type listResponse struct {
	Records  []recordResponse `json:"records"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

func toRecordResponse(rec *weights.Record) recordResponse {
	return recordResponse{
		ID:           rec.ID,
		ContentID:    rec.ContentID,
		SourceURL:    rec.SourceURL,
		Weight:       rec.Weight,
		OperatorID:   rec.OperatorID,
		OperatorName: rec.OperatorName,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op := requestcontext.Operator(ctx)

	var req assignRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.service.AssignWeights(ctx, weights.AssignRequest{
		PostURLs:     req.PostURLs,
		Weight:       req.Weight,
		OperatorID:   op.ID,
		OperatorName: op.Name,
	})
	if err != nil {
		h.logger.Error("assign weights failed",
			"request_id", requestcontext.RequestID(ctx),
			"operator_id", op.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := assignResponse{Records: make([]recordResponse, 0, len(records))}
	for _, rec := range records {
		resp.Records = append(resp.Records, toRecordResponse(rec))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op := requestcontext.Operator(ctx)

	var req cancelRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.CancelWeights(ctx, weights.CancelRequest{
		ContentIDs:   req.ContentIDs,
		OperatorID:   op.ID,
		OperatorName: op.Name,
	})
	if err != nil {
		h.logger.Error("cancel weights failed",
			"request_id", requestcontext.RequestID(ctx),
			"operator_id", op.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op := requestcontext.Operator(ctx)

	if err := h.service.DeleteRecord(ctx, chi.URLParam(r, "recordID"), op.ID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	params := weights.ListParams{
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "page_size", 20),
	}
	if params.PageSize > 100 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "page_size must be at most 100"))
		return
	}

	records, total, err := h.service.ListWeights(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := listResponse{
		Records:  make([]recordResponse, 0, len(records)),
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
	}
	for _, rec := range records {
		resp.Records = append(resp.Records, toRecordResponse(rec))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}
