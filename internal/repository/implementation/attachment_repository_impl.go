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

type AttachmentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AttachmentMapper
}

func NewAttachmentRepository(db *gorm.DB) contract.AttachmentRepository {
	return &AttachmentRepositoryImpl{
		db:     db,
		mapper: mapper.NewAttachmentMapper(),
	}
}

func (r *AttachmentRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *AttachmentRepositoryImpl) Create(ctx context.Context, att *entity.Attachment) error {
	m := r.mapper.ToModel(att)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*att = *r.mapper.ToEntity(m)
	return nil
}

func (r *AttachmentRepositoryImpl) BindToMessage(ctx context.Context, attachmentIds []uuid.UUID, messageId uuid.UUID) error {
	if len(attachmentIds) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.Attachment{}).
		Where("id IN ? AND kind = ?", attachmentIds, string(entity.AttachmentKindChatUpload)).
		Update("message_id", messageId).Error
}

func (r *AttachmentRepositoryImpl) SetRetrievalRef(ctx context.Context, id uuid.UUID, ref *entity.RetrievalRef) error {
	updates := map[string]interface{}{
		"retrieval_collection_id": ref.CollectionId,
		"retrieval_document_id":   ref.RemoteDocumentId,
		"retrieval_uploaded_at":   ref.UploadedAt,
	}
	return r.db.WithContext(ctx).
		Model(&model.Attachment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *AttachmentRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Attachment{}, id).Error
}

func (r *AttachmentRepositoryImpl) DeleteByMessageIds(ctx context.Context, messageIds []uuid.UUID) (int64, error) {
	if len(messageIds) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("message_id IN ?", messageIds).
		Delete(&model.Attachment{})
	return res.RowsAffected, res.Error
}

func (r *AttachmentRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Attachment, error) {
	var m model.Attachment
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *AttachmentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Attachment, error) {
	var models []*model.Attachment
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
