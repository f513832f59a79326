package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// UserRegisteredEvent is emitted after a new account is created.
type UserRegisteredEvent struct {
	UserID       uint      `json:"user_id"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}

// UserRegisteredV1 is the typed event definition for registrations.
// Subject: events.auth.v1.user-registered
var UserRegisteredV1 = helper.EventDefinition[UserRegisteredEvent](
	"auth", "UserRegistered", "v1",
)

// UserPromotedEvent is emitted when an account is granted the administrative flag.
type UserPromotedEvent struct {
	UserID     uint      `json:"user_id"`
	Email      string    `json:"email"`
	PromotedAt time.Time `json:"promoted_at"`
}

// UserPromotedV1 is the typed event definition for admin promotions.
// Subject: events.auth.v1.user-promoted
var UserPromotedV1 = helper.EventDefinition[UserPromotedEvent](
	"auth", "UserPromoted", "v1",
)
