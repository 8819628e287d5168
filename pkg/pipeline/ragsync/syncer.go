package ragsync

import (
	"context"
	"time"

	"ai-chatwidget-be/internal/entity"
	"ai-chatwidget-be/internal/pkg/apperror"
	"ai-chatwidget-be/internal/pkg/logger"
	"ai-chatwidget-be/internal/repository/contract"
	"ai-chatwidget-be/pkg/blob"
	"ai-chatwidget-be/pkg/content"
	"ai-chatwidget-be/pkg/provider"
)

// Result counts the outcome of one sync batch.
type Result struct {
	Uploaded int
	Skipped  int
	Errors   int
}

// DocumentUploader is the slice of the provider surface sync needs.
type DocumentUploader interface {
	UploadDocument(ctx context.Context, data []byte, filename string, entityId string) (*provider.UploadResult, error)
}

// Syncer pushes retrieval-compatible attachments into a provider's document
// index so they are searchable on the next retrieval send. One attachment
// failing never aborts the batch.
type Syncer struct {
	blobs         blob.Store
	attachments   contract.AttachmentRepository
	uploadTimeout time.Duration
	logger        logger.ILogger
}

func NewSyncer(blobs blob.Store, attachments contract.AttachmentRepository, uploadTimeout time.Duration, log logger.ILogger) *Syncer {
	if uploadTimeout <= 0 {
		uploadTimeout = 60 * time.Second
	}
	return &Syncer{
		blobs:         blobs,
		attachments:   attachments,
		uploadTimeout: uploadTimeout,
		logger:        log,
	}
}

// Sync uploads every candidate that is retrieval-compatible and not yet
// indexed. Images are never candidates; attachments that already carry a
// retrieval triple count as skipped.
func (s *Syncer) Sync(ctx context.Context, uploader DocumentUploader, candidates []*entity.Attachment, entityId string) Result {
	var result Result

	for _, att := range candidates {
		if att.HasRetrievalRef() {
			result.Skipped++
			continue
		}
		if !content.RetrievalCompatible(content.DetectFamily(att.MimeType, att.Filename)) {
			result.Skipped++
			continue
		}

		if err := s.syncOne(ctx, uploader, att, entityId); err != nil {
			result.Errors++
			s.logger.Warn("RagSyncer", "attachment sync failed", map[string]interface{}{
				"attachment_id": att.Id.String(),
				"filename":      att.Filename,
				"error":         err.Error(),
			})
			continue
		}
		result.Uploaded++
	}

	if result.Uploaded > 0 || result.Errors > 0 {
		s.logger.Info("RagSyncer", "sync batch complete", map[string]interface{}{
			"entity_id": entityId,
			"uploaded":  result.Uploaded,
			"skipped":   result.Skipped,
			"errors":    result.Errors,
		})
	}
	return result
}

func (s *Syncer) syncOne(ctx context.Context, uploader DocumentUploader, att *entity.Attachment, entityId string) error {
	data, err := s.blobs.Get(ctx, att.BlobKey)
	if err != nil {
		return err
	}

	uploadCtx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	uploaded, err := uploader.UploadDocument(uploadCtx, data, att.Filename, entityId)
	if err != nil {
		return apperror.Wrap(apperror.KindRetrievalUploadFailure, "upload retrieval document", err)
	}

	ref := &entity.RetrievalRef{
		CollectionId:     uploaded.CollectionId,
		RemoteDocumentId: uploaded.RemoteDocumentId,
		UploadedAt:       time.Now(),
	}
	if err := s.attachments.SetRetrievalRef(ctx, att.Id, ref); err != nil {
		return err
	}
	att.RetrievalRef = ref
	return nil
}
