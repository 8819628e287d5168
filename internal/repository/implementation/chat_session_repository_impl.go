package implementation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-chatwidget-be/internal/entity"
	"ai-chatwidget-be/internal/mapper"
	"ai-chatwidget-be/internal/model"
	"ai-chatwidget-be/internal/repository/contract"
	"ai-chatwidget-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatSessionRepository(db *gorm.DB) contract.ChatSessionRepository {
	return &ChatSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatSessionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChatSessionRepositoryImpl) GetOrCreate(ctx context.Context, chatConfigId, userId uuid.UUID, now time.Time) (*entity.ChatSession, error) {
	m := &model.ChatSession{
		Id:             uuid.New(),
		ChatConfigId:   chatConfigId,
		UserId:         userId,
		Active:         true,
		CreatedAt:      now,
		LastActivityAt: now,
	}

	// Insert-or-ignore on the unique (chat_config_id, user_id) index, then read
	// back whichever row won. Two concurrent first contacts both end up with the
	// same session.
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chat_config_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(m).Error
	if err != nil {
		return nil, err
	}

	var found model.ChatSession
	err = r.db.WithContext(ctx).
		Where("chat_config_id = ? AND user_id = ?", chatConfigId, userId).
		First(&found).Error
	if err != nil {
		return nil, fmt.Errorf("session upsert readback: %w", err)
	}
	return r.mapper.ChatSessionToEntity(&found), nil
}

func (r *ChatSessionRepositoryImpl) Touch(ctx context.Context, id uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.ChatSession{}).
		Where("id = ?", id).
		Update("last_activity_at", now).Error
}

func (r *ChatSessionRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.ChatSession{}, id).Error
}

func (r *ChatSessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	var m model.ChatSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ChatSessionToEntity(&m), nil
}

func (r *ChatSessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	var models []*model.ChatSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ChatSession, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ChatSessionToEntity(m)
	}
	return entities, nil
}
