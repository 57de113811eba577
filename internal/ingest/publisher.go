package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backoffice/internal/moderation"
)

// RecordProducer publishes one record to a topic.
type RecordProducer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// approvedMessage is the wire form of one approved moderation item.
type approvedMessage struct {
	ItemID         string    `json:"item_id"`
	ContentGroupID string    `json:"content_group_id"`
	CreatorID      string    `json:"creator_id"`
	Name           string    `json:"name"`
	Symbol         string    `json:"symbol"`
	ApprovedBy     string    `json:"approved_by"`
	ApprovedAt     time.Time `json:"approved_at"`
}

// ApprovedPublisher announces approved items on the approved topic, keyed by
// content group so downstream consumers see group decisions in order.
type ApprovedPublisher struct {
	producer RecordProducer
	topic    string
}

// NewApprovedPublisher constructs a publisher for the given topic.
func NewApprovedPublisher(producer RecordProducer, topic string) *ApprovedPublisher {
	return &ApprovedPublisher{producer: producer, topic: topic}
}

// PublishApproved emits one approved-item record.
func (p *ApprovedPublisher) PublishApproved(ctx context.Context, item *moderation.Item) error {
	msg := approvedMessage{
		ItemID:         item.ID,
		ContentGroupID: item.ContentGroupID,
		CreatorID:      item.CreatorID,
		Name:           item.Name,
		Symbol:         item.Symbol,
		ApprovedBy:     item.ReviewedBy,
	}
	if item.ReviewedAt != nil {
		msg.ApprovedAt = *item.ReviewedAt
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode approved item: %w", err)
	}
	return p.producer.Publish(ctx, p.topic, []byte(item.ContentGroupID), value)
}
