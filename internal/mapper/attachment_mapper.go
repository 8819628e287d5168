package mapper

import (
	"ai-chatwidget-be/internal/entity"
	"ai-chatwidget-be/internal/model"
)

type AttachmentMapper struct{}

func NewAttachmentMapper() *AttachmentMapper {
	return &AttachmentMapper{}
}

func (m *AttachmentMapper) ToEntity(a *model.Attachment) *entity.Attachment {
	if a == nil {
		return nil
	}
	out := &entity.Attachment{
		Id:           a.Id,
		Kind:         entity.AttachmentKind(a.Kind),
		ChatConfigId: a.ChatConfigId,
		MessageId:    a.MessageId,
		UserId:       a.UserId,
		BlobKey:      a.BlobKey,
		Filename:     a.Filename,
		MimeType:     a.MimeType,
		SizeBytes:    a.SizeBytes,
		CreatedAt:    a.CreatedAt,
	}
	if a.RetrievalDocumentId != "" && a.RetrievalUploadedAt != nil {
		out.RetrievalRef = &entity.RetrievalRef{
			CollectionId:     a.RetrievalCollectionId,
			RemoteDocumentId: a.RetrievalDocumentId,
			UploadedAt:       *a.RetrievalUploadedAt,
		}
	}
	return out
}

func (m *AttachmentMapper) ToModel(a *entity.Attachment) *model.Attachment {
	if a == nil {
		return nil
	}
	out := &model.Attachment{
		Id:           a.Id,
		Kind:         string(a.Kind),
		ChatConfigId: a.ChatConfigId,
		MessageId:    a.MessageId,
		UserId:       a.UserId,
		BlobKey:      a.BlobKey,
		Filename:     a.Filename,
		MimeType:     a.MimeType,
		SizeBytes:    a.SizeBytes,
		CreatedAt:    a.CreatedAt,
	}
	if a.RetrievalRef != nil {
		out.RetrievalCollectionId = a.RetrievalRef.CollectionId
		out.RetrievalDocumentId = a.RetrievalRef.RemoteDocumentId
		t := a.RetrievalRef.UploadedAt
		out.RetrievalUploadedAt = &t
	}
	return out
}

func (m *AttachmentMapper) ToEntities(models []*model.Attachment) []*entity.Attachment {
	entities := make([]*entity.Attachment, len(models))
	for i, a := range models {
		entities[i] = m.ToEntity(a)
	}
	return entities
}
