package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatConfig is the authoring-time configuration behind one embedded chat widget.
// The chat runtime treats it as read-only input; only the authoring UI mutates it.
type ChatConfig struct {
	Id                 uuid.UUID
	PageId             uuid.UUID
	ParentId           *uuid.UUID
	SystemPrompt       *string
	ProviderId         string
	MemoryWindow       int // max prior messages recalled per send, >= 0
	CharLimit          int // max characters per user message, > 0
	StreamingEnabled   bool
	RetrievalEnabled   bool // chat-level intent; see pipeline/mode for the full gate
	Persistent         bool // server-stored history vs browser-only
	IncludePageContext bool
	CreatedAt          time.Time
	UpdatedAt          *time.Time
}
