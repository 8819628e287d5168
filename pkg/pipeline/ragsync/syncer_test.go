package ragsync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ai-chatwidget-be/internal/entity"
	"ai-chatwidget-be/internal/repository/specification"
	"ai-chatwidget-be/pkg/provider"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlobStore struct {
	files map[string][]byte
}

func (f *fakeBlobStore) Put(_ context.Context, data []byte, filename string) (string, error) {
	key := "key-" + filename
	f.files[key] = data
	return key, nil
}

func (f *fakeBlobStore) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := f.files[key]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", key)
	}
	return data, nil
}

func (f *fakeBlobStore) Delete(_ context.Context, key string) error {
	delete(f.files, key)
	return nil
}

type fakeAttachmentRepo struct {
	refs map[uuid.UUID]*entity.RetrievalRef
}

func (f *fakeAttachmentRepo) Create(context.Context, *entity.Attachment) error { return nil }

func (f *fakeAttachmentRepo) BindToMessage(context.Context, []uuid.UUID, uuid.UUID) error {
	return nil
}

func (f *fakeAttachmentRepo) SetRetrievalRef(_ context.Context, id uuid.UUID, ref *entity.RetrievalRef) error {
	f.refs[id] = ref
	return nil
}

func (f *fakeAttachmentRepo) Delete(context.Context, uuid.UUID) error { return nil }
func (f *fakeAttachmentRepo) DeleteByMessageIds(context.Context, []uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeAttachmentRepo) FindOne(context.Context, ...specification.Specification) (*entity.Attachment, error) {
	return nil, nil
}

func (f *fakeAttachmentRepo) FindAll(context.Context, ...specification.Specification) ([]*entity.Attachment, error) {
	return nil, nil
}

type fakeUploader struct {
	uploads []string
	fail    map[string]error
}

func (f *fakeUploader) UploadDocument(_ context.Context, _ []byte, filename string, entityId string) (*provider.UploadResult, error) {
	if err, ok := f.fail[filename]; ok {
		return nil, err
	}
	f.uploads = append(f.uploads, filename)
	return &provider.UploadResult{
		CollectionId:     "coll-" + entityId,
		RemoteDocumentId: "doc-" + filename,
	}, nil
}

type noopLogger struct{}

func (noopLogger) Debug(string, string, map[string]interface{}) {}
func (noopLogger) Info(string, string, map[string]interface{})  {}
func (noopLogger) Warn(string, string, map[string]interface{})  {}
func (noopLogger) Error(string, string, map[string]interface{}) {}
func (noopLogger) Sync() error                                  { return nil }

func storedAttachment(t *testing.T, blobs *fakeBlobStore, filename, mimeType string) *entity.Attachment {
	t.Helper()
	key, err := blobs.Put(context.Background(), []byte("file body"), filename)
	require.NoError(t, err)
	return &entity.Attachment{Id: uuid.New(), BlobKey: key, Filename: filename, MimeType: mimeType}
}

func TestSyncUploadsCompatibleAttachments(t *testing.T) {
	blobs := &fakeBlobStore{files: map[string][]byte{}}
	repo := &fakeAttachmentRepo{refs: map[uuid.UUID]*entity.RetrievalRef{}}
	uploader := &fakeUploader{}
	syncer := NewSyncer(blobs, repo, time.Minute, noopLogger{})

	doc := storedAttachment(t, blobs, "handbook.pdf", "application/pdf")
	notes := storedAttachment(t, blobs, "notes.txt", "text/plain")

	result := syncer.Sync(context.Background(), uploader, []*entity.Attachment{doc, notes}, "cfg-1")

	assert.Equal(t, Result{Uploaded: 2}, result)
	assert.ElementsMatch(t, []string{"handbook.pdf", "notes.txt"}, uploader.uploads)

	require.NotNil(t, doc.RetrievalRef)
	assert.Equal(t, "coll-cfg-1", doc.RetrievalRef.CollectionId)
	assert.Equal(t, "doc-handbook.pdf", doc.RetrievalRef.RemoteDocumentId)
	assert.Contains(t, repo.refs, doc.Id)
	assert.Contains(t, repo.refs, notes.Id)
}

func TestSyncSkipsAlreadyIndexed(t *testing.T) {
	blobs := &fakeBlobStore{files: map[string][]byte{}}
	repo := &fakeAttachmentRepo{refs: map[uuid.UUID]*entity.RetrievalRef{}}
	uploader := &fakeUploader{}
	syncer := NewSyncer(blobs, repo, time.Minute, noopLogger{})

	doc := storedAttachment(t, blobs, "handbook.pdf", "application/pdf")
	doc.RetrievalRef = &entity.RetrievalRef{CollectionId: "c", RemoteDocumentId: "d", UploadedAt: time.Now()}

	result := syncer.Sync(context.Background(), uploader, []*entity.Attachment{doc}, "cfg-1")

	assert.Equal(t, Result{Skipped: 1}, result)
	assert.Empty(t, uploader.uploads)
}

func TestSyncSkipsImages(t *testing.T) {
	blobs := &fakeBlobStore{files: map[string][]byte{}}
	repo := &fakeAttachmentRepo{refs: map[uuid.UUID]*entity.RetrievalRef{}}
	uploader := &fakeUploader{}
	syncer := NewSyncer(blobs, repo, time.Minute, noopLogger{})

	pic := storedAttachment(t, blobs, "diagram.png", "image/png")

	result := syncer.Sync(context.Background(), uploader, []*entity.Attachment{pic}, "cfg-1")

	assert.Equal(t, Result{Skipped: 1}, result)
	assert.Empty(t, uploader.uploads)
	assert.Nil(t, pic.RetrievalRef)
}

func TestSyncToleratesPerItemFailures(t *testing.T) {
	blobs := &fakeBlobStore{files: map[string][]byte{}}
	repo := &fakeAttachmentRepo{refs: map[uuid.UUID]*entity.RetrievalRef{}}
	uploader := &fakeUploader{fail: map[string]error{
		"broken.pdf": errors.New("upstream 500"),
	}}
	syncer := NewSyncer(blobs, repo, time.Minute, noopLogger{})

	broken := storedAttachment(t, blobs, "broken.pdf", "application/pdf")
	fine := storedAttachment(t, blobs, "fine.txt", "text/plain")

	result := syncer.Sync(context.Background(), uploader, []*entity.Attachment{broken, fine}, "cfg-1")

	assert.Equal(t, Result{Uploaded: 1, Errors: 1}, result)
	assert.Nil(t, broken.RetrievalRef)
	require.NotNil(t, fine.RetrievalRef)
}

func TestSyncMissingBlobCountsAsError(t *testing.T) {
	blobs := &fakeBlobStore{files: map[string][]byte{}}
	repo := &fakeAttachmentRepo{refs: map[uuid.UUID]*entity.RetrievalRef{}}
	uploader := &fakeUploader{}
	syncer := NewSyncer(blobs, repo, time.Minute, noopLogger{})

	ghost := &entity.Attachment{Id: uuid.New(), BlobKey: "gone", Filename: "gone.txt", MimeType: "text/plain"}

	result := syncer.Sync(context.Background(), uploader, []*entity.Attachment{ghost}, "cfg-1")

	assert.Equal(t, Result{Errors: 1}, result)
	assert.Empty(t, uploader.uploads)
}
