package model

import (
	"time"

	"github.com/google/uuid"
)

type Attachment struct {
	Id           uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Kind         string     `gorm:"type:varchar(16);not null;index"`
	ChatConfigId uuid.UUID  `gorm:"type:uuid;not null;index"`
	MessageId    *uuid.UUID `gorm:"type:uuid;index"`
	UserId       *uuid.UUID `gorm:"type:uuid;index"`
	BlobKey      string     `gorm:"type:varchar(512)"`
	Filename     string     `gorm:"type:varchar(255);not null"`
	MimeType     string     `gorm:"type:varchar(128);not null"`
	SizeBytes    int64      `gorm:"not null;default:0"`

	// Retrieval triple, populated once the file is indexed provider-side.
	RetrievalCollectionId string     `gorm:"type:varchar(255)"`
	RetrievalDocumentId   string     `gorm:"type:varchar(255)"`
	RetrievalUploadedAt   *time.Time `gorm:""`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Attachment) TableName() string {
	return "attachments"
}
