package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-chatwidget-be/internal/dto"
	"ai-chatwidget-be/internal/entity"
	"ai-chatwidget-be/internal/pkg/apperror"
	"ai-chatwidget-be/internal/pkg/logger"
	"ai-chatwidget-be/internal/repository/specification"
	"ai-chatwidget-be/internal/repository/unitofwork"
	"ai-chatwidget-be/pkg/blob"
	"ai-chatwidget-be/pkg/content"
	"ai-chatwidget-be/pkg/provider/registry"

	"github.com/google/uuid"
)

type IAttachmentService interface {
	Upload(ctx context.Context, userId uuid.UUID, chatId uuid.UUID, filename, mimeType string, data []byte, background bool) (*dto.UploadAttachmentResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, attachmentId uuid.UUID) error
	// RequestSync queues background-attachment indexing for a chat; the
	// consumer service performs the actual uploads.
	RequestSync(ctx context.Context, chatId uuid.UUID) error
}

type attachmentService struct {
	uowFactory unitofwork.RepositoryFactory
	blobs      blob.Store
	providers  *registry.Registry
	publisher  IPublisherService
	logger     logger.ILogger
}

func NewAttachmentService(
	uowFactory unitofwork.RepositoryFactory,
	blobs blob.Store,
	providers *registry.Registry,
	publisher IPublisherService,
	log logger.ILogger,
) IAttachmentService {
	return &attachmentService{
		uowFactory: uowFactory,
		blobs:      blobs,
		providers:  providers,
		publisher:  publisher,
		logger:     log,
	}
}

// Upload stores the file bytes and the attachment row. Unsupported file types
// are rejected up front so they never reach conversion.
func (as *attachmentService) Upload(ctx context.Context, userId uuid.UUID, chatId uuid.UUID, filename, mimeType string, data []byte, background bool) (*dto.UploadAttachmentResponse, error) {
	if len(data) == 0 {
		return nil, apperror.New(apperror.KindValidation, "empty file")
	}
	if content.DetectFamily(mimeType, filename) == content.FamilyUnknown {
		return nil, apperror.New(apperror.KindUnsupportedFileType, fmt.Sprintf("unsupported file type: %s", filename))
	}

	uow := as.uowFactory.NewUnitOfWork(ctx)

	chatConfig, err := uow.ChatConfigRepository().FindOne(ctx, specification.ByID{ID: chatId})
	if err != nil {
		return nil, apperror.Wrap(apperror.KindSessionError, "load chat config", err)
	}
	if chatConfig == nil {
		return nil, apperror.New(apperror.KindConfigNotFound, fmt.Sprintf("chat %s not found", chatId))
	}

	key, err := as.blobs.Put(ctx, data, filename)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindSessionError, "store file", err)
	}

	now := time.Now()
	var att *entity.Attachment
	if background {
		att = entity.NewBackgroundAttachment(chatId, key, filename, mimeType, int64(len(data)), now)
	} else {
		att = entity.NewChatUploadAttachment(chatId, userId, nil, key, filename, mimeType, int64(len(data)), now)
	}

	if err := uow.AttachmentRepository().Create(ctx, att); err != nil {
		// The row is the source of truth; without it the blob is garbage.
		if delErr := as.blobs.Delete(ctx, key); delErr != nil {
			as.logger.Warn("AttachmentService", "orphan blob cleanup failed", map[string]interface{}{
				"blob_key": key,
				"error":    delErr.Error(),
			})
		}
		return nil, apperror.Wrap(apperror.KindSessionError, "create attachment", err)
	}

	return &dto.UploadAttachmentResponse{
		Attachment: dto.AttachmentDTO{
			Id:        att.Id,
			Filename:  att.Filename,
			MimeType:  att.MimeType,
			SizeBytes: att.SizeBytes,
			Indexed:   false,
			CreatedAt: att.CreatedAt,
		},
	}, nil
}

// Delete removes the attachment row, its blob, and (when indexed) its
// provider-side retrieval document.
func (as *attachmentService) Delete(ctx context.Context, userId uuid.UUID, attachmentId uuid.UUID) error {
	uow := as.uowFactory.NewUnitOfWork(ctx)

	att, err := uow.AttachmentRepository().FindOne(ctx, specification.ByID{ID: attachmentId})
	if err != nil {
		return apperror.Wrap(apperror.KindSessionError, "load attachment", err)
	}
	if att == nil {
		return apperror.New(apperror.KindAttachmentNotFound, fmt.Sprintf("attachment %s not found", attachmentId))
	}
	if !att.IsBackground() && (att.UserId == nil || *att.UserId != userId) {
		return apperror.New(apperror.KindAttachmentNotFound, fmt.Sprintf("attachment %s not found", attachmentId))
	}

	if att.HasRetrievalRef() {
		chatConfig, err := uow.ChatConfigRepository().FindOne(ctx, specification.ByID{ID: att.ChatConfigId})
		if err == nil && chatConfig != nil {
			if prov, err := as.providers.Resolve(chatConfig.ProviderId); err == nil {
				if err := prov.DeleteDocument(ctx, att.RetrievalRef.RemoteDocumentId, att.ChatConfigId.String()); err != nil {
					as.logger.Warn("AttachmentService", "retrieval document delete failed", map[string]interface{}{
						"attachment_id": att.Id.String(),
						"error":         err.Error(),
					})
				}
			}
		}
	}

	if att.BlobKey != "" {
		if err := as.blobs.Delete(ctx, att.BlobKey); err != nil {
			as.logger.Warn("AttachmentService", "blob delete failed", map[string]interface{}{
				"attachment_id": att.Id.String(),
				"error":         err.Error(),
			})
		}
	}

	return uow.AttachmentRepository().Delete(ctx, attachmentId)
}

func (as *attachmentService) RequestSync(ctx context.Context, chatId uuid.UUID) error {
	payload := dto.PublishSyncAttachmentsMessage{ChatConfigId: chatId}
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	as.logger.Info("AttachmentService", "sync requested", map[string]interface{}{
		"chat_config_id": chatId.String(),
		"requested_at":   time.Now().Format(time.RFC3339),
	})
	return as.publisher.Publish(ctx, payloadJson)
}
