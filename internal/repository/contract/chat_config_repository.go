package contract

import (
	"context"

	"ai-chatwidget-be/internal/entity"
	"ai-chatwidget-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ChatConfigRepository reads widget configurations. The chat runtime never
// mutates a config; Create/Update exist for seeding and the authoring surface.
type ChatConfigRepository interface {
	Create(ctx context.Context, cfg *entity.ChatConfig) error
	Update(ctx context.Context, cfg *entity.ChatConfig) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatConfig, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatConfig, error)
}
