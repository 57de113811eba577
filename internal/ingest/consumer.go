// Package ingest feeds creator submissions from the platform's Kafka topics
// into the moderation queue and publishes approved items back out.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"backoffice/internal/moderation"
	"backoffice/internal/platform/kafka"
)

// ItemCreator persists newly submitted moderation items.
type ItemCreator interface {
	CreateItem(ctx context.Context, item *moderation.Item) error
}

// submissionMessage is the wire form of one creator submission.
type submissionMessage struct {
	ID             string    `json:"id"`
	ContentGroupID string    `json:"content_group_id"`
	CreatorID      string    `json:"creator_id"`
	Name           string    `json:"name"`
	Symbol         string    `json:"symbol"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
}

// SubmissionHandler turns submission records into pending moderation items.
//
// Item identifiers come from the submission when present, so replaying the
// topic is idempotent: the store ignores duplicate inserts.
type SubmissionHandler struct {
	store ItemCreator
	log   *slog.Logger
}

// NewSubmissionHandler constructs a handler over the moderation item store.
func NewSubmissionHandler(store ItemCreator, log *slog.Logger) *SubmissionHandler {
	return &SubmissionHandler{store: store, log: log}
}

// Handle decodes one submission and enqueues it as pending.
func (h *SubmissionHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	var sub submissionMessage
	if err := json.Unmarshal(msg.Value, &sub); err != nil {
		return fmt.Errorf("decode submission: %w", err)
	}
	if sub.ContentGroupID == "" || sub.CreatorID == "" {
		return fmt.Errorf("submission missing content_group_id or creator_id (key %q)", string(msg.Key))
	}

	item := &moderation.Item{
		ID:             sub.ID,
		ContentGroupID: sub.ContentGroupID,
		CreatorID:      sub.CreatorID,
		Name:           sub.Name,
		Symbol:         sub.Symbol,
		Description:    sub.Description,
		Status:         moderation.StatusPending,
		CreatedAt:      sub.CreatedAt,
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	if err := h.store.CreateItem(ctx, item); err != nil {
		return fmt.Errorf("enqueue submission %s: %w", item.ID, err)
	}

	h.log.Info("submission enqueued",
		"item_id", item.ID,
		"content_group_id", item.ContentGroupID,
		"creator_id", item.CreatorID,
	)
	return nil
}
