// Package accounts manages operator actions on platform user accounts:
// banning, unbanning, and the ban history behind them.
package accounts

import "time"

// UserStatus is the account state maintained by ban operations.
type UserStatus string

const (
	UserStatusActive UserStatus = "active"
	UserStatusBanned UserStatus = "banned"
)

// User is the slice of a platform account this console manipulates.
type User struct {
	ID        string
	Status    UserStatus
	UpdatedAt time.Time
}

// BanRecord is one entry in a user's ban history. A record is active while
// RevokedAt is nil and EndsAt is nil (permanent) or in the future.
type BanRecord struct {
	ID           string
	UserID       string
	Reason       string
	EndsAt       *time.Time
	ImposedBy    string
	RevokedAt    *time.Time
	RevokedBy    string
	RevokeReason string
	CreatedAt    time.Time
}

// Active reports whether the ban is in force at the given instant.
func (b *BanRecord) Active(at time.Time) bool {
	if b.RevokedAt != nil {
		return false
	}
	return b.EndsAt == nil || b.EndsAt.After(at)
}

// BanRequest imposes a ban. A zero Duration means permanent.
type BanRequest struct {
	UserID       string
	Reason       string
	Duration     time.Duration
	OperatorID   string
	OperatorName string
}

// UnbanRequest revokes a user's active bans.
type UnbanRequest struct {
	UserID       string
	Reason       string
	OperatorID   string
	OperatorName string
}
