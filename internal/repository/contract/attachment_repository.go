package contract

import (
	"context"

	"ai-chatwidget-be/internal/entity"
	"ai-chatwidget-be/internal/repository/specification"

	"github.com/google/uuid"
)

type AttachmentRepository interface {
	Create(ctx context.Context, att *entity.Attachment) error
	// BindToMessage attaches previously uploaded chat files to the message they
	// were sent with.
	BindToMessage(ctx context.Context, attachmentIds []uuid.UUID, messageId uuid.UUID) error
	// SetRetrievalRef records the provider-side retrieval triple.
	SetRetrievalRef(ctx context.Context, id uuid.UUID, ref *entity.RetrievalRef) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByMessageIds(ctx context.Context, messageIds []uuid.UUID) (int64, error)
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Attachment, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Attachment, error)
}
