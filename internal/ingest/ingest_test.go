package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/moderation"
	"backoffice/internal/platform/kafka"
)

type captureStore struct {
	items []*moderation.Item
}

func (c *captureStore) CreateItem(_ context.Context, item *moderation.Item) error {
	c.items = append(c.items, item)
	return nil
}

type captureProducer struct {
	topic string
	key   []byte
	value []byte
}

func (c *captureProducer) Publish(_ context.Context, topic string, key, value []byte) error {
	c.topic = topic
	c.key = key
	c.value = value
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
}

func TestSubmissionHandlerEnqueuesPendingItem(t *testing.T) {
	store := &captureStore{}
	h := NewSubmissionHandler(store, testLogger())

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	value, err := json.Marshal(submissionMessage{
		ID:             "item-1",
		ContentGroupID: "group-1",
		CreatorID:      "creator-1",
		Name:           "Launch banner",
		Symbol:         "LB",
		Description:    "seasonal campaign",
		CreatedAt:      created,
	})
	require.NoError(t, err)

	err = h.Handle(context.Background(), &kafka.Message{Topic: "submissions", Value: value})
	require.NoError(t, err)

	require.Len(t, store.items, 1)
	item := store.items[0]
	assert.Equal(t, "item-1", item.ID)
	assert.Equal(t, moderation.StatusPending, item.Status)
	assert.Equal(t, "group-1", item.ContentGroupID)
	assert.Equal(t, created, item.CreatedAt)
}

func TestSubmissionHandlerGeneratesMissingFields(t *testing.T) {
	store := &captureStore{}
	h := NewSubmissionHandler(store, testLogger())

	value := []byte(`{"content_group_id":"group-1","creator_id":"creator-1","name":"x"}`)
	err := h.Handle(context.Background(), &kafka.Message{Value: value})
	require.NoError(t, err)

	require.Len(t, store.items, 1)
	assert.NotEmpty(t, store.items[0].ID)
	assert.False(t, store.items[0].CreatedAt.IsZero())
}

func TestSubmissionHandlerRejectsInvalidPayloads(t *testing.T) {
	store := &captureStore{}
	h := NewSubmissionHandler(store, testLogger())

	err := h.Handle(context.Background(), &kafka.Message{Value: []byte(`not json`)})
	require.Error(t, err)

	err = h.Handle(context.Background(), &kafka.Message{Value: []byte(`{"name":"orphan"}`)})
	require.Error(t, err)

	assert.Empty(t, store.items)
}

func TestApprovedPublisherKeysByGroup(t *testing.T) {
	producer := &captureProducer{}
	pub := NewApprovedPublisher(producer, "moderation.approved")

	reviewed := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	err := pub.PublishApproved(context.Background(), &moderation.Item{
		ID:             "item-1",
		ContentGroupID: "group-1",
		CreatorID:      "creator-1",
		Name:           "Launch banner",
		Symbol:         "LB",
		ReviewedBy:     "op-1",
		ReviewedAt:     &reviewed,
	})
	require.NoError(t, err)

	assert.Equal(t, "moderation.approved", producer.topic)
	assert.Equal(t, []byte("group-1"), producer.key)

	var msg approvedMessage
	require.NoError(t, json.Unmarshal(producer.value, &msg))
	assert.Equal(t, "item-1", msg.ItemID)
	assert.Equal(t, "op-1", msg.ApprovedBy)
	assert.Equal(t, reviewed, msg.ApprovedAt)
}
