package unitofwork

import (
	"context"

	"ai-chatwidget-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChatConfigRepository() contract.ChatConfigRepository
	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
	AttachmentRepository() contract.AttachmentRepository
}
