package events

import "github.com/go-monolith/mono/pkg/helper"

// UserStatusChangedEvent is emitted when a user's online flag flips.
// Audience is the set of users sharing at least one chat with the subject,
// computed at emission time.
type UserStatusChangedEvent struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	IsOnline bool     `json:"is_online"`
	Audience []string `json:"audience"`
}

// UserStatusChangedV1 is the event definition for presence changes.
var UserStatusChangedV1 = helper.EventDefinition[UserStatusChangedEvent](
	"presence",
	"UserStatusChanged",
	"v1",
)
