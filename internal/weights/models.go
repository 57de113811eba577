// Package weights maintains the boosted-content ledger: one active weight
// per content record, mirrored into the recommendation service.
package weights

import "time"

// Record is one ledger entry. A record is active until soft-deleted; the
// content_id uniqueness constraint means re-assigning a weight updates the
// existing row in place, reviving it if it was cancelled.
type Record struct {
	ID           string
	ContentID    string
	SourceURL    string
	Weight       float64
	OperatorID   string
	OperatorName string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// AssignRequest carries one batch weight assignment.
type AssignRequest struct {
	// PostURLs is a comma-separated list of content URLs; the content
	// identifier is the last path segment of each.
	PostURLs     string
	Weight       float64
	OperatorID   string
	OperatorName string
}

// CancelRequest soft-deletes the active records for the given content IDs.
type CancelRequest struct {
	ContentIDs   []string
	OperatorID   string
	OperatorName string
}

// CancelResult reports how a cancel batch resolved. Requested counts the
// deduplicated identifiers in the request; Updated counts the records that
// were actually active and got cancelled.
type CancelResult struct {
	Requested int `json:"requested"`
	Updated   int `json:"updated"`
}

// ListParams pages through active records, most recently updated first.
type ListParams struct {
	Page     int
	PageSize int
}
