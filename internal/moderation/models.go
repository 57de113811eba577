// Package moderation holds the review state machine's domain types.
package moderation

import "time"

// ItemStatus is the review state of a submitted item. Pending is the only
// non-terminal state; once decided an item never changes again.
type ItemStatus string

const (
	StatusPending  ItemStatus = "pending"
	StatusApproved ItemStatus = "approved"
	StatusRejected ItemStatus = "rejected"
)

// Action is an operator's review decision.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Item is one submitted piece of content awaiting a decision.
type Item struct {
	ID             string
	ContentGroupID string
	CreatorID      string
	Name           string
	Symbol         string
	Description    string
	Status         ItemStatus
	ReviewComment  string
	ReviewedBy     string
	ReviewedAt     *time.Time
	CreatedAt      time.Time
}

// DecideRequest carries one review decision into the engine.
type DecideRequest struct {
	ItemID       string
	Action       Action
	Comment      string
	OperatorID   string
	OperatorName string
}

// DecisionResult is the outcome of a decision: the final item snapshot and
// the sibling items removed by a rejection fan-out.
type DecisionResult struct {
	Item            *Item
	DeletedSiblings []string
}

// ListParams filters and paginates the pending review queue.
type ListParams struct {
	CreatorID string
	Symbol    string
	Name      string
	Page      int
	PageSize  int
}
