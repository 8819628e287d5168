package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one turn within a session. Role is immutable after creation.
// Ordinal is a server-generated monotonic ULID so ordering is stable even when
// two appends land on the same timestamp.
type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	Role          string // constant.ChatMessageRole*
	Body          string
	Ordinal       string
	CreatedAt     time.Time
}
