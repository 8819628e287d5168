package contract

import (
	"context"
	"time"

	"ai-chatwidget-be/internal/entity"
	"ai-chatwidget-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatSessionRepository interface {
	// GetOrCreate returns the single session for (chat, user), creating it if
	// absent. Safe under concurrent first contact: the store upserts on the
	// unique (chat_config_id, user_id) index rather than check-then-insert.
	GetOrCreate(ctx context.Context, chatConfigId, userId uuid.UUID, now time.Time) (*entity.ChatSession, error)
	Touch(ctx context.Context, id uuid.UUID, now time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error)
}
