package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatSession is one user's conversation against one chat widget. At most one
// active session exists per (chat, user); callers go through get-or-create.
type ChatSession struct {
	Id             uuid.UUID
	ChatConfigId   uuid.UUID
	UserId         uuid.UUID
	Active         bool
	CreatedAt      time.Time
	LastActivityAt time.Time
}
