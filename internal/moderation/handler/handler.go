package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"backoffice/internal/moderation"
	dErrors "backoffice/pkg/domain-errors"
	"backoffice/pkg/platform/httputil"
	"backoffice/pkg/requestcontext"
)

// Service defines the moderation operations exposed over HTTP.
type Service interface {
	Decide(ctx context.Context, req moderation.DecideRequest) (*moderation.DecisionResult, error)
	GetItem(ctx context.Context, id string) (*moderation.Item, error)
	ListPending(ctx context.Context, params moderation.ListParams) ([]*moderation.Item, int, error)
}

// Handler wires moderation endpoints to the moderation engine.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a moderation handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts moderation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/moderation/items", h.handleList)
	r.Get("/moderation/items/{itemID}", h.handleGet)
	r.Post("/moderation/items/{itemID}/decision", h.handleDecide)
}

type decideRequest struct {
	Action  string `json:"action"`
	Comment string `json:"comment"`
}

type itemResponse struct {
	ID             string     `json:"id"`
	ContentGroupID string     `json:"content_group_id"`
	CreatorID      string     `json:"creator_id"`
	Name           string     `json:"name"`
	Symbol         string     `json:"symbol"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	ReviewComment  string     `json:"review_comment,omitempty"`
	ReviewedBy     string     `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type decisionResponse struct {
	Item            itemResponse `json:"item"`
	DeletedSiblings []string     `json:"deleted_siblings,omitempty"`
}

type listResponse struct {
	Items    []itemResponse `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

func toItemResponse(item *moderation.Item) itemResponse {
	return itemResponse{
		ID:             item.ID,
		ContentGroupID: item.ContentGroupID,
		CreatorID:      item.CreatorID,
		Name:           item.Name,
		Symbol:         item.Symbol,
		Description:    item.Description,
		Status:         string(item.Status),
		ReviewComment:  item.ReviewComment,
		ReviewedBy:     item.ReviewedBy,
		ReviewedAt:     item.ReviewedAt,
		CreatedAt:      item.CreatedAt,
	}
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op := requestcontext.Operator(ctx)

	var req decideRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Decide(ctx, moderation.DecideRequest{
		ItemID:       chi.URLParam(r, "itemID"),
		Action:       moderation.Action(req.Action),
		Comment:      req.Comment,
		OperatorID:   op.ID,
		OperatorName: op.Name,
	})
	if err != nil {
		h.logger.Error("decide failed",
			"request_id", requestcontext.RequestID(ctx),
			"item_id", chi.URLParam(r, "itemID"),
			"action", req.Action,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, decisionResponse{
		Item:            toItemResponse(result.Item),
		DeletedSiblings: result.DeletedSiblings,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetItem(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toItemResponse(item))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	params := moderation.ListParams{
		CreatorID: r.URL.Query().Get("creator_id"),
		Symbol:    r.URL.Query().Get("symbol"),
		Name:      r.URL.Query().Get("name"),
		Page:      queryInt(r, "page", 1),
		PageSize:  queryInt(r, "page_size", 20),
	}
	if params.PageSize > 100 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "page_size must be at most 100"))
		return
	}

	items, total, err := h.service.ListPending(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := listResponse{
		Items:    make([]itemResponse, 0, len(items)),
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, toItemResponse(item))
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
