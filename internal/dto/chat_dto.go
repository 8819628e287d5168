package dto

import (
	"time"

	"github.com/google/uuid"
)

type SendMessageRequest struct {
	ChatId        uuid.UUID        `json:"chat_id" validate:"required"`
	Message       string           `json:"message" validate:"required"`
	AttachmentIds []uuid.UUID      `json:"attachment_ids,omitempty" validate:"max=10"`
	History       []HistoryItemDTO `json:"history,omitempty"` // only honored for non-persistent chats
}

// HistoryItemDTO is a client-supplied prior turn, used when the chat keeps its
// history browser-side instead of on the server.
type HistoryItemDTO struct {
	Role string `json:"role" validate:"required,oneof=user assistant"`
	Body string `json:"body" validate:"required"`
}

type SendMessageResponse struct {
	SessionId uuid.UUID   `json:"session_id"`
	Mode      string      `json:"mode"` // "inline" | "retrieval"
	Sent      *MessageDTO `json:"sent"`
	Reply     *MessageDTO `json:"reply"`
}

type MessageDTO struct {
	Id          uuid.UUID       `json:"id"`
	Role        string          `json:"role"`
	Body        string          `json:"body"`
	CreatedAt   time.Time       `json:"created_at"`
	Attachments []AttachmentDTO `json:"attachments,omitempty"`
}

type GetHistoryResponse struct {
	SessionId uuid.UUID    `json:"session_id"`
	Messages  []MessageDTO `json:"messages"`
}

type ClearChatResponse struct {
	MessagesDeleted    int `json:"messages_deleted"`
	AttachmentsDeleted int `json:"attachments_deleted"`
}
