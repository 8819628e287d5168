package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByChatSessionID struct {
	ChatSessionID uuid.UUID
}

func (s ByChatSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_session_id = ?", s.ChatSessionID)
}

type ByChatConfigID struct {
	ChatConfigID uuid.UUID
}

func (s ByChatConfigID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_config_id = ?", s.ChatConfigID)
}

type UserOwnedBy struct {
	UserID uuid.UUID
}

func (s UserOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

type ByMessageIDs struct {
	MessageIDs []uuid.UUID
}

func (s ByMessageIDs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("message_id IN ?", s.MessageIDs)
}

// BackgroundOnly selects attachments bound to the chat config rather than to a
// conversation turn.
type BackgroundOnly struct{}

func (s BackgroundOnly) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("kind = ?", "background")
}

// WithoutRetrievalRef selects attachments not yet indexed provider-side.
type WithoutRetrievalRef struct{}

func (s WithoutRetrievalRef) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("retrieval_document_id = '' OR retrieval_document_id IS NULL")
}
