package entity

import (
	"time"

	"github.com/google/uuid"
)

// AttachmentKind distinguishes background files (attached to the chat config
// itself) from chat uploads (attached to a single conversation turn). The kind
// is an explicit tag rather than an implicit nullable message id.
type AttachmentKind string

const (
	AttachmentKindBackground AttachmentKind = "background"
	AttachmentKindChatUpload AttachmentKind = "chat_upload"
)

// RetrievalRef records that an attachment has been pushed into provider-side
// retrieval storage: which collection, under which remote document id, and when.
type RetrievalRef struct {
	CollectionId     string
	RemoteDocumentId string
	UploadedAt       time.Time
}

// Attachment is an uploaded or background file. It is in exactly one of three
// states: blob-only (RetrievalRef nil), retrieval-only (BlobKey empty), or dual.
type Attachment struct {
	Id           uuid.UUID
	Kind         AttachmentKind
	ChatConfigId uuid.UUID
	MessageId    *uuid.UUID // set only for chat uploads
	UserId       *uuid.UUID // nil for background files
	BlobKey      string
	Filename     string
	MimeType     string
	SizeBytes    int64
	RetrievalRef *RetrievalRef
	CreatedAt    time.Time
}

// NewBackgroundAttachment builds a background file owned by the chat config.
func NewBackgroundAttachment(chatConfigId uuid.UUID, blobKey, filename, mimeType string, size int64, now time.Time) *Attachment {
	return &Attachment{
		Id:           uuid.New(),
		Kind:         AttachmentKindBackground,
		ChatConfigId: chatConfigId,
		BlobKey:      blobKey,
		Filename:     filename,
		MimeType:     mimeType,
		SizeBytes:    size,
		CreatedAt:    now,
	}
}

// NewChatUploadAttachment builds a chat-turn upload owned by a user. The message
// binding may happen later, on send, so messageId is allowed to be nil here.
func NewChatUploadAttachment(chatConfigId, userId uuid.UUID, messageId *uuid.UUID, blobKey, filename, mimeType string, size int64, now time.Time) *Attachment {
	return &Attachment{
		Id:           uuid.New(),
		Kind:         AttachmentKindChatUpload,
		ChatConfigId: chatConfigId,
		MessageId:    messageId,
		UserId:       &userId,
		BlobKey:      blobKey,
		Filename:     filename,
		MimeType:     mimeType,
		SizeBytes:    size,
		CreatedAt:    now,
	}
}

// IsBackground reports whether the attachment is chat-level reference material.
func (a *Attachment) IsBackground() bool {
	return a.Kind == AttachmentKindBackground
}

// HasRetrievalRef reports whether the attachment is indexed provider-side.
func (a *Attachment) HasRetrievalRef() bool {
	return a.RetrievalRef != nil && a.RetrievalRef.RemoteDocumentId != ""
}
