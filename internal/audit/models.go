package audit

import "time"

// Action types recorded by the console cores.
const (
	ActionApproveItem   = "approve_item"
	ActionRejectItem    = "reject_item"
	ActionAssignWeights = "assign_weights"
	ActionCancelWeights = "cancel_weights"
	ActionDeleteWeight  = "delete_weight"
	ActionBanUser       = "ban_user"
	ActionUnbanUser     = "unban_user"
)

// Entry is an immutable record of one operator action.
type Entry struct {
	ID         string
	OperatorID string
	ActionType string
	TargetType string
	TargetID   string
	Details    map[string]any
	CreatedAt  time.Time
}
