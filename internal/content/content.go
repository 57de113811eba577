// Package content adapts the platform's content records for the moderation
// and weighting cores. The console validates and flips visibility on these
// records but does not own their lifecycle.
package content

import "context"

// Visibility is the public-facing state of a dependent content record.
type Visibility string

const (
	VisibilityDraft   Visibility = "draft"
	VisibilityVisible Visibility = "visible"
	VisibilityRemoved Visibility = "removed"
)

// DependentContent is a content record whose visibility mirrors the outcome
// of its moderation item.
type DependentContent struct {
	ID         string
	GroupID    string
	Visibility Visibility
}

// Store is the content collaborator consumed by both engines.
type Store interface {
	// Exists reports whether a content identifier is known to the platform.
	Exists(ctx context.Context, contentID string) (bool, error)

	// SetGroupVisibility flips every content record in a group and returns
	// the number of records affected. Groups with no dependent content are
	// a no-op, not an error.
	SetGroupVisibility(ctx context.Context, groupID string, v Visibility) (int, error)
}
