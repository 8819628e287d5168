package dto

import (
	"time"

	"github.com/google/uuid"
)

type AttachmentDTO struct {
	Id        uuid.UUID `json:"id"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	Indexed   bool      `json:"indexed"` // present in provider-side retrieval storage
	CreatedAt time.Time `json:"created_at"`
}

type UploadAttachmentResponse struct {
	Attachment AttachmentDTO `json:"attachment"`
}

// SyncResultDTO reports one retrieval-sync batch.
type SyncResultDTO struct {
	Uploaded int `json:"uploaded"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// PublishSyncAttachmentsMessage asks the background consumer to index a
// chat's background attachments into retrieval storage.
type PublishSyncAttachmentsMessage struct {
	ChatConfigId uuid.UUID `json:"chat_config_id"`
}
