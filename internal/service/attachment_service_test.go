package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ai-chatwidget-be/internal/dto"
	"ai-chatwidget-be/internal/entity"
	"ai-chatwidget-be/internal/pkg/apperror"
	"ai-chatwidget-be/pkg/provider/registry"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	payloads [][]byte
}

func (p *capturingPublisher) Publish(_ context.Context, payload []byte) error {
	p.payloads = append(p.payloads, payload)
	return nil
}

type attachmentFixture struct {
	service   IAttachmentService
	uow       *memUnitOfWork
	blobs     *fakeBlobStore
	prov      *fakeProvider
	publisher *capturingPublisher
}

func newAttachmentFixture(t *testing.T) *attachmentFixture {
	t.Helper()

	chat := newChatFixture(t, inlineProvider())
	publisher := &capturingPublisher{}
	providers := registry.New()
	require.NoError(t, providers.Register(chat.prov))

	svc := NewAttachmentService(
		&memFactory{uow: chat.uow},
		chat.blobs,
		providers,
		publisher,
		noopLogger{},
	)
	return &attachmentFixture{
		service:   svc,
		uow:       chat.uow,
		blobs:     chat.blobs,
		prov:      chat.prov,
		publisher: publisher,
	}
}

func (f *attachmentFixture) addConfig() *entity.ChatConfig {
	cfg := &entity.ChatConfig{Id: uuid.New(), ProviderId: f.prov.id, Persistent: true}
	f.uow.configs.configs[cfg.Id] = cfg
	return cfg
}

func TestUploadChatAttachment(t *testing.T) {
	fix := newAttachmentFixture(t)
	cfg := fix.addConfig()
	userId := uuid.New()

	resp, err := fix.service.Upload(context.Background(), userId, cfg.Id, "notes.txt", "text/plain", []byte("my notes"), false)
	require.NoError(t, err)

	assert.Equal(t, "notes.txt", resp.Attachment.Filename)
	assert.Equal(t, int64(8), resp.Attachment.SizeBytes)
	assert.False(t, resp.Attachment.Indexed)

	stored := fix.uow.attachments.attachments[resp.Attachment.Id]
	require.NotNil(t, stored)
	assert.Equal(t, entity.AttachmentKindChatUpload, stored.Kind)
	require.NotNil(t, stored.UserId)
	assert.Equal(t, userId, *stored.UserId)
	assert.Contains(t, fix.blobs.files, stored.BlobKey)
}

func TestUploadBackgroundAttachment(t *testing.T) {
	fix := newAttachmentFixture(t)
	cfg := fix.addConfig()

	resp, err := fix.service.Upload(context.Background(), uuid.New(), cfg.Id, "syllabus.pdf", "application/pdf", []byte("%PDF-1.7"), true)
	require.NoError(t, err)

	stored := fix.uow.attachments.attachments[resp.Attachment.Id]
	require.NotNil(t, stored)
	assert.Equal(t, entity.AttachmentKindBackground, stored.Kind)
	assert.Nil(t, stored.UserId)
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	fix := newAttachmentFixture(t)
	cfg := fix.addConfig()

	_, err := fix.service.Upload(context.Background(), uuid.New(), cfg.Id, "empty.txt", "text/plain", nil, false)
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	fix := newAttachmentFixture(t)
	cfg := fix.addConfig()

	_, err := fix.service.Upload(context.Background(), uuid.New(), cfg.Id, "tool.exe", "application/octet-stream", []byte{0x4D, 0x5A}, false)
	require.Error(t, err)
	assert.Equal(t, apperror.KindUnsupportedFileType, apperror.KindOf(err))
	assert.Empty(t, fix.blobs.files)
}

func TestUploadUnknownChat(t *testing.T) {
	fix := newAttachmentFixture(t)

	_, err := fix.service.Upload(context.Background(), uuid.New(), uuid.New(), "notes.txt", "text/plain", []byte("x"), false)
	require.Error(t, err)
	assert.Equal(t, apperror.KindConfigNotFound, apperror.KindOf(err))
}

func TestDeleteChatAttachmentOwnership(t *testing.T) {
	fix := newAttachmentFixture(t)
	cfg := fix.addConfig()
	owner := uuid.New()

	resp, err := fix.service.Upload(context.Background(), owner, cfg.Id, "notes.txt", "text/plain", []byte("x"), false)
	require.NoError(t, err)

	// Someone else cannot delete it.
	err = fix.service.Delete(context.Background(), uuid.New(), resp.Attachment.Id)
	require.Error(t, err)
	assert.Equal(t, apperror.KindAttachmentNotFound, apperror.KindOf(err))

	// The owner can.
	require.NoError(t, fix.service.Delete(context.Background(), owner, resp.Attachment.Id))
	assert.Empty(t, fix.uow.attachments.attachments)
	assert.Empty(t, fix.blobs.files)
}

func TestDeleteIndexedAttachmentRemovesRetrievalDocument(t *testing.T) {
	fix := newAttachmentFixture(t)
	cfg := fix.addConfig()

	resp, err := fix.service.Upload(context.Background(), uuid.New(), cfg.Id, "handbook.pdf", "application/pdf", []byte("%PDF-1.7"), true)
	require.NoError(t, err)

	stored := fix.uow.attachments.attachments[resp.Attachment.Id]
	stored.RetrievalRef = &entity.RetrievalRef{
		CollectionId:     "coll-1",
		RemoteDocumentId: "doc-handbook.pdf",
		UploadedAt:       time.Now(),
	}

	require.NoError(t, fix.service.Delete(context.Background(), uuid.New(), resp.Attachment.Id))
	assert.Equal(t, []string{"doc-handbook.pdf"}, fix.prov.deletedDocs)
}

func TestDeleteMissingAttachment(t *testing.T) {
	fix := newAttachmentFixture(t)

	err := fix.service.Delete(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperror.KindAttachmentNotFound, apperror.KindOf(err))
}

func TestRequestSyncPublishesChatId(t *testing.T) {
	fix := newAttachmentFixture(t)
	chatId := uuid.New()

	require.NoError(t, fix.service.RequestSync(context.Background(), chatId))

	require.Len(t, fix.publisher.payloads, 1)
	var msg dto.PublishSyncAttachmentsMessage
	require.NoError(t, json.Unmarshal(fix.publisher.payloads[0], &msg))
	assert.Equal(t, chatId, msg.ChatConfigId)
}
