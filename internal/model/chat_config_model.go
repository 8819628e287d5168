package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatConfig struct {
	Id                 uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PageId             uuid.UUID  `gorm:"type:uuid;not null;index"`
	ParentId           *uuid.UUID `gorm:"type:uuid;index"`
	SystemPrompt       *string    `gorm:"type:text"`
	ProviderId         string     `gorm:"type:varchar(64);not null"`
	MemoryWindow       int        `gorm:"not null;default:10"`
	CharLimit          int        `gorm:"not null;default:2000"`
	StreamingEnabled   bool       `gorm:"not null;default:false"`
	RetrievalEnabled   bool       `gorm:"not null;default:false"`
	Persistent         bool       `gorm:"not null;default:true"`
	IncludePageContext bool       `gorm:"not null;default:false"`
	CreatedAt          time.Time  `gorm:"autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime"`
	DeletedAt          gorm.DeletedAt `gorm:"index"`
}

func (ChatConfig) TableName() string {
	return "chat_configs"
}
