package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatConfigId   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chat_user"`
	UserId         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chat_user"` // one session per (chat, user)
	Active         bool      `gorm:"not null;default:true"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	LastActivityAt time.Time `gorm:"not null"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
