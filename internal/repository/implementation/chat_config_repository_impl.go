package implementation

import (
	"context"
	"errors"

	"ai-chatwidget-be/internal/entity"
	"ai-chatwidget-be/internal/mapper"
	"ai-chatwidget-be/internal/model"
	"ai-chatwidget-be/internal/repository/contract"
	"ai-chatwidget-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatConfigRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatConfigRepository(db *gorm.DB) contract.ChatConfigRepository {
	return &ChatConfigRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatConfigRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChatConfigRepositoryImpl) Create(ctx context.Context, cfg *entity.ChatConfig) error {
	m := r.mapper.ChatConfigToModel(cfg)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*cfg = *r.mapper.ChatConfigToEntity(m)
	return nil
}

func (r *ChatConfigRepositoryImpl) Update(ctx context.Context, cfg *entity.ChatConfig) error {
	m := r.mapper.ChatConfigToModel(cfg)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*cfg = *r.mapper.ChatConfigToEntity(m)
	return nil
}

func (r *ChatConfigRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.ChatConfig{}, id).Error
}

func (r *ChatConfigRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatConfig, error) {
	var m model.ChatConfig
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ChatConfigToEntity(&m), nil
}

func (r *ChatConfigRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatConfig, error) {
	var models []*model.ChatConfig
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ChatConfig, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ChatConfigToEntity(m)
	}
	return entities, nil
}
