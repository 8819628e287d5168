package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"ai-chatwidget-be/internal/config"
	"ai-chatwidget-be/internal/constant"
	"ai-chatwidget-be/internal/dto"
	"ai-chatwidget-be/internal/entity"
	"ai-chatwidget-be/internal/pkg/apperror"
	"ai-chatwidget-be/internal/repository/contract"
	"ai-chatwidget-be/internal/repository/specification"
	"ai-chatwidget-be/internal/repository/unitofwork"
	"ai-chatwidget-be/pkg/content"
	"ai-chatwidget-be/pkg/pipeline/contextual"
	"ai-chatwidget-be/pkg/pipeline/conversation"
	"ai-chatwidget-be/pkg/pipeline/mode"
	"ai-chatwidget-be/pkg/pipeline/ragsync"
	"ai-chatwidget-be/pkg/provider"
	"ai-chatwidget-be/pkg/provider/registry"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- in-memory repositories -------------------------------------------------

type memConfigRepo struct {
	configs map[uuid.UUID]*entity.ChatConfig
}

func (r *memConfigRepo) Create(_ context.Context, cfg *entity.ChatConfig) error {
	r.configs[cfg.Id] = cfg
	return nil
}

func (r *memConfigRepo) Update(_ context.Context, cfg *entity.ChatConfig) error {
	r.configs[cfg.Id] = cfg
	return nil
}

func (r *memConfigRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.configs, id)
	return nil
}

func (r *memConfigRepo) FindOne(_ context.Context, specs ...specification.Specification) (*entity.ChatConfig, error) {
	for _, spec := range specs {
		if byId, ok := spec.(specification.ByID); ok {
			return r.configs[byId.ID], nil
		}
	}
	return nil, nil
}

func (r *memConfigRepo) FindAll(context.Context, ...specification.Specification) ([]*entity.ChatConfig, error) {
	out := make([]*entity.ChatConfig, 0, len(r.configs))
	for _, cfg := range r.configs {
		out = append(out, cfg)
	}
	return out, nil
}

type memSessionRepo struct {
	sessions map[uuid.UUID]*entity.ChatSession
}

func (r *memSessionRepo) GetOrCreate(_ context.Context, chatConfigId, userId uuid.UUID, now time.Time) (*entity.ChatSession, error) {
	for _, s := range r.sessions {
		if s.ChatConfigId == chatConfigId && s.UserId == userId {
			return s, nil
		}
	}
	s := &entity.ChatSession{
		Id:             uuid.New(),
		ChatConfigId:   chatConfigId,
		UserId:         userId,
		Active:         true,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	r.sessions[s.Id] = s
	return s, nil
}

func (r *memSessionRepo) Touch(_ context.Context, id uuid.UUID, now time.Time) error {
	if s, ok := r.sessions[id]; ok {
		s.LastActivityAt = now
	}
	return nil
}

func (r *memSessionRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.sessions, id)
	return nil
}

func (r *memSessionRepo) FindOne(_ context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	for _, s := range r.sessions {
		if sessionMatches(s, specs) {
			return s, nil
		}
	}
	return nil, nil
}

func (r *memSessionRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	var out []*entity.ChatSession
	for _, s := range r.sessions {
		if sessionMatches(s, specs) {
			out = append(out, s)
		}
	}
	return out, nil
}

func sessionMatches(s *entity.ChatSession, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch v := spec.(type) {
		case specification.ByChatConfigID:
			if s.ChatConfigId != v.ChatConfigID {
				return false
			}
		case specification.UserOwnedBy:
			if s.UserId != v.UserID {
				return false
			}
		}
	}
	return true
}

type memMessageRepo struct {
	messages []*entity.ChatMessage
	seq      int
}

func (r *memMessageRepo) Append(_ context.Context, msg *entity.ChatMessage) error {
	r.seq++
	msg.Ordinal = fmt.Sprintf("%08d", r.seq)
	r.messages = append(r.messages, msg)
	return nil
}

func (r *memMessageRepo) DeleteByChatSessionId(_ context.Context, sessionId uuid.UUID) (int64, error) {
	var kept []*entity.ChatMessage
	var deleted int64
	for _, msg := range r.messages {
		if msg.ChatSessionId == sessionId {
			deleted++
			continue
		}
		kept = append(kept, msg)
	}
	r.messages = kept
	return deleted, nil
}

func (r *memMessageRepo) FindOne(_ context.Context, specs ...specification.Specification) (*entity.ChatMessage, error) {
	for _, msg := range r.messages {
		if messageMatches(msg, specs) {
			return msg, nil
		}
	}
	return nil, nil
}

func (r *memMessageRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	var out []*entity.ChatMessage
	for _, msg := range r.messages {
		if messageMatches(msg, specs) {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out, nil
}

func (r *memMessageRepo) FindRecent(_ context.Context, sessionId uuid.UUID, limit int) ([]*entity.ChatMessage, error) {
	all, _ := r.FindAll(context.Background(), specification.ByChatSessionID{ChatSessionID: sessionId})
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (r *memMessageRepo) Count(_ context.Context, specs ...specification.Specification) (int64, error) {
	found, _ := r.FindAll(context.Background(), specs...)
	return int64(len(found)), nil
}

func messageMatches(msg *entity.ChatMessage, specs []specification.Specification) bool {
	for _, spec := range specs {
		if bySession, ok := spec.(specification.ByChatSessionID); ok {
			if msg.ChatSessionId != bySession.ChatSessionID {
				return false
			}
		}
	}
	return true
}

type memAttachmentRepo struct {
	attachments map[uuid.UUID]*entity.Attachment
}

func (r *memAttachmentRepo) Create(_ context.Context, att *entity.Attachment) error {
	r.attachments[att.Id] = att
	return nil
}

func (r *memAttachmentRepo) BindToMessage(_ context.Context, ids []uuid.UUID, messageId uuid.UUID) error {
	for _, id := range ids {
		if att, ok := r.attachments[id]; ok {
			msgId := messageId
			att.MessageId = &msgId
		}
	}
	return nil
}

func (r *memAttachmentRepo) SetRetrievalRef(_ context.Context, id uuid.UUID, ref *entity.RetrievalRef) error {
	att, ok := r.attachments[id]
	if !ok {
		return fmt.Errorf("attachment %s not found", id)
	}
	att.RetrievalRef = ref
	return nil
}

func (r *memAttachmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.attachments, id)
	return nil
}

func (r *memAttachmentRepo) DeleteByMessageIds(_ context.Context, messageIds []uuid.UUID) (int64, error) {
	inSet := make(map[uuid.UUID]bool, len(messageIds))
	for _, id := range messageIds {
		inSet[id] = true
	}
	var deleted int64
	for id, att := range r.attachments {
		if att.MessageId != nil && inSet[*att.MessageId] {
			delete(r.attachments, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *memAttachmentRepo) FindOne(_ context.Context, specs ...specification.Specification) (*entity.Attachment, error) {
	for _, att := range r.attachments {
		if attachmentMatches(att, specs) {
			return att, nil
		}
	}
	return nil, nil
}

func (r *memAttachmentRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.Attachment, error) {
	var out []*entity.Attachment
	for _, att := range r.attachments {
		if attachmentMatches(att, specs) {
			out = append(out, att)
		}
	}
	return out, nil
}

func attachmentMatches(att *entity.Attachment, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch v := spec.(type) {
		case specification.ByID:
			if att.Id != v.ID {
				return false
			}
		case specification.ByIDs:
			found := false
			for _, id := range v.IDs {
				if att.Id == id {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case specification.ByChatConfigID:
			if att.ChatConfigId != v.ChatConfigID {
				return false
			}
		case specification.ByMessageIDs:
			if att.MessageId == nil {
				return false
			}
			found := false
			for _, id := range v.MessageIDs {
				if *att.MessageId == id {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case specification.BackgroundOnly:
			if att.Kind != entity.AttachmentKindBackground {
				return false
			}
		case specification.WithoutRetrievalRef:
			if att.HasRetrievalRef() {
				return false
			}
		}
	}
	return true
}

// ---- unit of work -----------------------------------------------------------

type memUnitOfWork struct {
	configs     *memConfigRepo
	sessions    *memSessionRepo
	messages    *memMessageRepo
	attachments *memAttachmentRepo
}

func (u *memUnitOfWork) Begin(context.Context) error { return nil }

func (u *memUnitOfWork) Commit() error { return nil }

func (u *memUnitOfWork) Rollback() error { return nil }

func (u *memUnitOfWork) ChatConfigRepository() contract.ChatConfigRepository { return u.configs }

func (u *memUnitOfWork) ChatSessionRepository() contract.ChatSessionRepository { return u.sessions }

func (u *memUnitOfWork) ChatMessageRepository() contract.ChatMessageRepository { return u.messages }

func (u *memUnitOfWork) AttachmentRepository() contract.AttachmentRepository { return u.attachments }

type memFactory struct {
	uow *memUnitOfWork
}

func (f *memFactory) NewUnitOfWork(context.Context) unitofwork.UnitOfWork { return f.uow }

// ---- provider and pipeline fakes --------------------------------------------

type fakeProvider struct {
	id   string
	caps provider.Capabilities

	reply     string
	sendErr   error
	uploadErr error
	streamEvs []provider.StreamEvent

	directCalls    [][]provider.Message
	retrievalCalls [][]string
	deletedDocs    []string
}

func (p *fakeProvider) ID() string { return p.id }

func (p *fakeProvider) Capabilities() provider.Capabilities { return p.caps }

func (p *fakeProvider) SendDirect(_ context.Context, messages []provider.Message, _ ...provider.Option) (string, error) {
	p.directCalls = append(p.directCalls, messages)
	return p.reply, p.sendErr
}

func (p *fakeProvider) SendRetrieval(_ context.Context, messages []provider.Message, collectionIds []string, _ ...provider.Option) (string, error) {
	p.directCalls = append(p.directCalls, messages)
	p.retrievalCalls = append(p.retrievalCalls, collectionIds)
	return p.reply, p.sendErr
}

func (p *fakeProvider) SendDirectStream(_ context.Context, messages []provider.Message, _ ...provider.Option) (<-chan provider.StreamEvent, error) {
	p.directCalls = append(p.directCalls, messages)
	if p.sendErr != nil {
		return nil, p.sendErr
	}
	ch := make(chan provider.StreamEvent, len(p.streamEvs))
	for _, ev := range p.streamEvs {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (p *fakeProvider) UploadDocument(_ context.Context, _ []byte, filename string, entityId string) (*provider.UploadResult, error) {
	if p.uploadErr != nil {
		return nil, p.uploadErr
	}
	return &provider.UploadResult{
		CollectionId:     "coll-" + entityId,
		RemoteDocumentId: "doc-" + filename,
	}, nil
}

func (p *fakeProvider) DeleteDocument(_ context.Context, remoteDocumentId string, _ string) error {
	p.deletedDocs = append(p.deletedDocs, remoteDocumentId)
	return nil
}

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

// passthroughConverter renders every attachment as a one-line text block.
type passthroughConverter struct{}

func (passthroughConverter) Convert(_ context.Context, att *entity.Attachment, m mode.Mode, _ config.Policy, _ *content.BudgetTracker) ([]content.Block, error) {
	if m == mode.Retrieval {
		return nil, nil
	}
	return []content.Block{content.TextBlock(att.Filename, "File: "+att.Filename)}, nil
}

// leakyConverter ignores the delivery mode and always emits inline image
// content, the shape a retrieval send must never carry.
type leakyConverter struct{}

func (leakyConverter) Convert(_ context.Context, _ *entity.Attachment, _ mode.Mode, _ config.Policy, _ *content.BudgetTracker) ([]content.Block, error) {
	return []content.Block{content.ImageBlock("image/png", []byte{0x89, 0x50})}, nil
}

type fakePages struct{}

func (fakePages) PageText(context.Context, string) string { return "" }

type noopLogger struct{}

func (noopLogger) Debug(string, string, map[string]interface{}) {}
func (noopLogger) Info(string, string, map[string]interface{})  {}
func (noopLogger) Warn(string, string, map[string]interface{})  {}
func (noopLogger) Error(string, string, map[string]interface{}) {}
func (noopLogger) Sync() error                                  { return nil }

// ---- fixture ----------------------------------------------------------------

type chatFixture struct {
	service IChatService
	uow     *memUnitOfWork
	blobs   *fakeBlobStore
	prov    *fakeProvider
}

func newChatFixture(t *testing.T, prov *fakeProvider) *chatFixture {
	t.Helper()
	return newChatFixtureConv(t, prov, passthroughConverter{})
}

func newChatFixtureConv(t *testing.T, prov *fakeProvider, conv conversation.BlockConverter) *chatFixture {
	t.Helper()

	uow := &memUnitOfWork{
		configs:     &memConfigRepo{configs: map[uuid.UUID]*entity.ChatConfig{}},
		sessions:    &memSessionRepo{sessions: map[uuid.UUID]*entity.ChatSession{}},
		messages:    &memMessageRepo{},
		attachments: &memAttachmentRepo{attachments: map[uuid.UUID]*entity.Attachment{}},
	}
	blobs := &fakeBlobStore{files: map[string][]byte{}}

	providers := registry.New()
	require.NoError(t, providers.Register(prov))

	cfg := &config.Config{
		Ai: config.AIConfig{
			FileHandlingEnabled: true,
			RetrievalProviders:  []string{prov.id},
		},
		Limits: config.LimitsConfig{
			MaxInlineImageBytes: 15 * 1024 * 1024,
			MaxImageItemBytes:   5 * 1024 * 1024,
			MaxImagesPerMessage: 20,
			MaxPDFPages:         20,
			MaxImageDimension:   1024,
			JPEGQuality:         80,
		},
	}

	svc := NewChatService(
		&memFactory{uow: uow},
		cfg,
		providers,
		blobs,
		contextual.NewAssembler(conv, fakePages{}, noopLogger{}),
		conversation.NewAssembler(conv, noopLogger{}),
		ragsync.NewSyncer(blobs, uow.attachments, time.Minute, noopLogger{}),
		nil,
		noopLogger{},
	)

	return &chatFixture{service: svc, uow: uow, blobs: blobs, prov: prov}
}

func (f *chatFixture) addConfig(cfg *entity.ChatConfig) *entity.ChatConfig {
	if cfg.Id == uuid.Nil {
		cfg.Id = uuid.New()
	}
	if cfg.ProviderId == "" {
		cfg.ProviderId = f.prov.id
	}
	f.uow.configs.configs[cfg.Id] = cfg
	return cfg
}

func inlineProvider() *fakeProvider {
	return &fakeProvider{
		id:    "fake",
		caps:  provider.Capabilities{InlineMultimodal: true},
		reply: "the answer",
	}
}

// ---- tests ------------------------------------------------------------------

func TestSendMessagePersistentHappyPath(t *testing.T) {
	fix := newChatFixture(t, inlineProvider())
	cfg := fix.addConfig(&entity.ChatConfig{Persistent: true})
	userId := uuid.New()

	resp, err := fix.service.SendMessage(context.Background(), userId, &dto.SendMessageRequest{
		ChatId:  cfg.Id,
		Message: "what is photosynthesis?",
	})
	require.NoError(t, err)

	assert.Equal(t, string(mode.Inline), resp.Mode)
	require.NotNil(t, resp.Sent)
	assert.Equal(t, "what is photosynthesis?", resp.Sent.Body)
	require.NotNil(t, resp.Reply)
	assert.Equal(t, "the answer", resp.Reply.Body)
	assert.NotEqual(t, uuid.Nil, resp.SessionId)

	// Both turns persisted, in order.
	require.Len(t, fix.uow.messages.messages, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, fix.uow.messages.messages[0].Role)
	assert.Equal(t, constant.ChatMessageRoleAssistant, fix.uow.messages.messages[1].Role)

	// Provider saw the user's message as the last turn.
	require.Len(t, fix.prov.directCalls, 1)
	sent := fix.prov.directCalls[0]
	require.NotEmpty(t, sent)
	assert.Equal(t, "what is photosynthesis?", sent[len(sent)-1].Text())
}

func TestSendMessageIncludesSystemPrompt(t *testing.T) {
	fix := newChatFixture(t, inlineProvider())
	prompt := "You are a strict tutor."
	cfg := fix.addConfig(&entity.ChatConfig{Persistent: true, SystemPrompt: &prompt})

	_, err := fix.service.SendMessage(context.Background(), uuid.New(), &dto.SendMessageRequest{
		ChatId:  cfg.Id,
		Message: "hi",
	})
	require.NoError(t, err)

	sent := fix.prov.directCalls[0]
	require.NotEmpty(t, sent)
	assert.Equal(t, constant.ChatMessageRoleSystem, sent[0].Role)
	assert.Equal(t, prompt, sent[0].Text())
}

func TestSendMessageUnknownConfig(t *testing.T) {
	fix := newChatFixture(t, inlineProvider())

	_, err := fix.service.SendMessage(context.Background(), uuid.New(), &dto.SendMessageRequest{
		ChatId:  uuid.New(),
		Message: "hello",
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindConfigNotFound, apperror.KindOf(err))
}

func TestSendMessageCharLimit(t *testing.T) {
	fix := newChatFixture(t, inlineProvider())
	cfg := fix.addConfig(&entity.ChatConfig{Persistent: true, CharLimit: 10})

	_, err := fix.service.SendMessage(context.Background(), uuid.New(), &dto.SendMessageRequest{
		ChatId:  cfg.Id,
		Message: strings.Repeat("x", 11),
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Empty(t, fix.uow.messages.messages)
}

func TestSendMessageCharLimitCountsRunes(t *testing.T) {
	fix := newChatFixture(t, inlineProvider())
	cfg := fix.addConfig(&entity.ChatConfig{Persistent: true, CharLimit: 10})

	// 10 multibyte runes are within a 10-character limit.
	_, err := fix.service.SendMessage(context.Background(), uuid.New(), &dto.SendMessageRequest{
		ChatId:  cfg.Id,
		Message: strings.Repeat("ü", 10),
	})
	require.NoError(t, err)
}

func TestSendMessageProviderFailureKeepsUserTurn(t *testing.T) {
	prov := inlineProvider()
	prov.sendErr = errors.New("model overloaded")
	fix := newChatFixture(t, prov)
	cfg := fix.addConfig(&entity.ChatConfig{Persistent: true})

	_, err := fix.service.SendMessage(context.Background(), uuid.New(), &dto.SendMessageRequest{
		ChatId:  cfg.Id,
		Message: "hello",
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindProviderCallFailure, apperror.KindOf(err))

	// The user's turn was committed before the provider call and stays.
	require.Len(t, fix.uow.messages.messages, 1)
	assert.Equal(t, constant.ChatMessageRoleUser, fix.uow.messages.messages[0].Role)
}

func TestSendMessageNonPersistentUsesClientHistory(t *testing.T) {
	fix := newChatFixture(t, inlineProvider())
	cfg := fix.addConfig(&entity.ChatConfig{Persistent: false})

	resp, err := fix.service.SendMessage(context.Background(), uuid.New(), &dto.SendMessageRequest{
		ChatId:  cfg.Id,
		Message: "and then?",
		History: []dto.HistoryItemDTO{
			{Role: constant.ChatMessageRoleUser, Body: "tell me a story"},
			{Role: constant.ChatMessageRoleAssistant, Body: "once upon a time"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, uuid.Nil, resp.SessionId)
	assert.Nil(t, resp.Sent)
	assert.Equal(t, "the answer", resp.Reply.Body)

	// Nothing touches the server stores.
	assert.Empty(t, fix.uow.messages.messages)
	assert.Empty(t, fix.uow.sessions.sessions)

	sent := fix.prov.directCalls[0]
	require.Len(t, sent, 3)
	assert.Equal(t, "tell me a story", sent[0].Text())
	assert.Equal(t, "once upon a time", sent[1].Text())
	assert.Equal(t, "and then?", sent[2].Text())
}

func TestSendMessageRetrievalSyncsAndRoutes(t *testing.T) {
	prov := inlineProvider()
	prov.caps.Retrieval = true
	fix := newChatFixture(t, prov)
	cfg := fix.addConfig(&entity.ChatConfig{Persistent: true, RetrievalEnabled: true})

	// One background document not yet indexed.
	key, err := fix.blobs.Put(context.Background(), []byte("handbook body"), "handbook.pdf")
	require.NoError(t, err)
	bg := entity.NewBackgroundAttachment(cfg.Id, key, "handbook.pdf", "application/pdf", 13, time.Now())
	require.NoError(t, fix.uow.attachments.Create(context.Background(), bg))

	resp, err := fix.service.SendMessage(context.Background(), uuid.New(), &dto.SendMessageRequest{
		ChatId:  cfg.Id,
		Message: "summarize the handbook",
	})
	require.NoError(t, err)
	assert.Equal(t, string(mode.Retrieval), resp.Mode)

	// The document got indexed and its collection rode along on the call.
	require.True(t, bg.HasRetrievalRef())
	require.Len(t, fix.prov.retrievalCalls, 1)
	assert.Equal(t, []string{"coll-" + cfg.Id.String()}, fix.prov.retrievalCalls[0])
}

func TestSendMessageRetrievalRequiresChatOptIn(t *testing.T) {
	prov := inlineProvider()
	prov.caps.Retrieval = true
	fix := newChatFixture(t, prov)
	cfg := fix.addConfig(&entity.ChatConfig{Persistent: true, RetrievalEnabled: false})

	resp, err := fix.service.SendMessage(context.Background(), uuid.New(), &dto.SendMessageRequest{
		ChatId:  cfg.Id,
		Message: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, string(mode.Inline), resp.Mode)
	assert.Empty(t, fix.prov.retrievalCalls)
}

func TestSendMessageRetrievalUploadFailureFailsTurn(t *testing.T) {
	prov := inlineProvider()
	prov.caps.Retrieval = true
	prov.uploadErr = errors.New("index unavailable")
	fix := newChatFixture(t, prov)
	cfg := fix.addConfig(&entity.ChatConfig{Persistent: true, RetrievalEnabled: true})
	userId := uuid.New()

	key, err := fix.blobs.Put(context.Background(), []byte("essay body"), "essay.pdf")
	require.NoError(t, err)
	att := entity.NewChatUploadAttachment(cfg.Id, userId, nil, key, "essay.pdf", "application/pdf", 10, time.Now())
	require.NoError(t, fix.uow.attachments.Create(context.Background(), att))

	// In retrieval mode the document's content only reaches the model through
	// the index, so a failed upload has to fail the send.
	_, err = fix.service.SendMessage(context.Background(), userId, &dto.SendMessageRequest{
		ChatId:        cfg.Id,
		Message:       "grade my essay",
		AttachmentIds: []uuid.UUID{att.Id},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindRetrievalUploadFailure, apperror.KindOf(err))

	// The provider was never called; the user's turn stays committed.
	assert.Empty(t, fix.prov.retrievalCalls)
	assert.Empty(t, fix.prov.directCalls)
	require.Len(t, fix.uow.messages.messages, 1)
	assert.Equal(t, constant.ChatMessageRoleUser, fix.uow.messages.messages[0].Role)
}

func TestSendMessageToleratesBackgroundUploadFailure(t *testing.T) {
	prov := inlineProvider()
	prov.caps.Retrieval = true
	prov.uploadErr = errors.New("index unavailable")
	fix := newChatFixture(t, prov)
	cfg := fix.addConfig(&entity.ChatConfig{Persistent: true, RetrievalEnabled: true})

	key, err := fix.blobs.Put(context.Background(), []byte("handbook body"), "handbook.pdf")
	require.NoError(t, err)
	bg := entity.NewBackgroundAttachment(cfg.Id, key, "handbook.pdf", "application/pdf", 13, time.Now())
	require.NoError(t, fix.uow.attachments.Create(context.Background(), bg))

	resp, err := fix.service.SendMessage(context.Background(), uuid.New(), &dto.SendMessageRequest{
		ChatId:  cfg.Id,
		Message: "summarize the handbook",
	})
	require.NoError(t, err)
	assert.Equal(t, string(mode.Retrieval), resp.Mode)

	// Nothing got indexed, so the call went out without collections.
	assert.False(t, bg.HasRetrievalRef())
	assert.Empty(t, fix.prov.retrievalCalls)
	require.Len(t, fix.prov.directCalls, 1)
}

func TestSendMessageRejectsImagesInRetrievalSend(t *testing.T) {
	prov := inlineProvider()
	prov.caps.Retrieval = true
	fix := newChatFixtureConv(t, prov, leakyConverter{})
	cfg := fix.addConfig(&entity.ChatConfig{Persistent: true, RetrievalEnabled: true})
	userId := uuid.New()

	// A background document keeps the collection set non-empty.
	bgKey, err := fix.blobs.Put(context.Background(), []byte("handbook body"), "handbook.pdf")
	require.NoError(t, err)
	bg := entity.NewBackgroundAttachment(cfg.Id, bgKey, "handbook.pdf", "application/pdf", 13, time.Now())
	require.NoError(t, fix.uow.attachments.Create(context.Background(), bg))

	imgKey, err := fix.blobs.Put(context.Background(), []byte{0x89, 0x50}, "diagram.png")
	require.NoError(t, err)
	img := entity.NewChatUploadAttachment(cfg.Id, userId, nil, imgKey, "diagram.png", "image/png", 2, time.Now())
	require.NoError(t, fix.uow.attachments.Create(context.Background(), img))

	_, err = fix.service.SendMessage(context.Background(), userId, &dto.SendMessageRequest{
		ChatId:        cfg.Id,
		Message:       "what does the diagram show?",
		AttachmentIds: []uuid.UUID{img.Id},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindModeConflict, apperror.KindOf(err))
	assert.Empty(t, fix.prov.retrievalCalls)
}

func TestSendMessageStreamDeltas(t *testing.T) {
	prov := inlineProvider()
	prov.caps.Streaming = true
	prov.streamEvs = []provider.StreamEvent{
		{Delta: "the "},
		{Delta: "answer"},
		{Done: true, FinalText: "the answer"},
	}
	fix := newChatFixture(t, prov)
	cfg := fix.addConfig(&entity.ChatConfig{Persistent: true, StreamingEnabled: true})

	var deltas []string
	resp, err := fix.service.SendMessageStream(context.Background(), uuid.New(), &dto.SendMessageRequest{
		ChatId:  cfg.Id,
		Message: "hi",
	}, func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"the ", "answer"}, deltas)
	assert.Equal(t, "the answer", resp.Reply.Body)

	// Only the final text is persisted.
	require.Len(t, fix.uow.messages.messages, 2)
	assert.Equal(t, "the answer", fix.uow.messages.messages[1].Body)
}

func TestSendMessageStreamFallsBackToSingleShot(t *testing.T) {
	prov := inlineProvider() // no streaming capability
	fix := newChatFixture(t, prov)
	cfg := fix.addConfig(&entity.ChatConfig{Persistent: true, StreamingEnabled: true})

	var deltas []string
	resp, err := fix.service.SendMessageStream(context.Background(), uuid.New(), &dto.SendMessageRequest{
		ChatId:  cfg.Id,
		Message: "hi",
	}, func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"the answer"}, deltas)
	assert.Equal(t, "the answer", resp.Reply.Body)
}

func TestSendMessageStreamErrorPersistsNothingAssistant(t *testing.T) {
	prov := inlineProvider()
	prov.caps.Streaming = true
	prov.streamEvs = []provider.StreamEvent{
		{Delta: "partial "},
		{Err: errors.New("connection reset")},
	}
	fix := newChatFixture(t, prov)
	cfg := fix.addConfig(&entity.ChatConfig{Persistent: true, StreamingEnabled: true})

	_, err := fix.service.SendMessageStream(context.Background(), uuid.New(), &dto.SendMessageRequest{
		ChatId:  cfg.Id,
		Message: "hi",
	}, func(string) error { return nil })
	require.Error(t, err)

	// User turn persisted, assistant turn not.
	require.Len(t, fix.uow.messages.messages, 1)
	assert.Equal(t, constant.ChatMessageRoleUser, fix.uow.messages.messages[0].Role)
}

func TestSendMessageStreamCancelledMidStream(t *testing.T) {
	prov := inlineProvider()
	prov.caps.Streaming = true
	// The stream dies after one delta, the way a dropped connection looks.
	prov.streamEvs = []provider.StreamEvent{{Delta: "partial "}}
	fix := newChatFixture(t, prov)
	cfg := fix.addConfig(&entity.ChatConfig{Persistent: true, StreamingEnabled: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := fix.service.SendMessageStream(ctx, uuid.New(), &dto.SendMessageRequest{
		ChatId:  cfg.Id,
		Message: "hi",
	}, func(string) error {
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	// The user's turn stays; no assistant message is written.
	require.Len(t, fix.uow.messages.messages, 1)
	assert.Equal(t, constant.ChatMessageRoleUser, fix.uow.messages.messages[0].Role)
}

func TestGetHistoryOrdersChronologically(t *testing.T) {
	fix := newChatFixture(t, inlineProvider())
	cfg := fix.addConfig(&entity.ChatConfig{Persistent: true})
	userId := uuid.New()

	for _, body := range []string{"first", "second"} {
		_, err := fix.service.SendMessage(context.Background(), userId, &dto.SendMessageRequest{
			ChatId:  cfg.Id,
			Message: body,
		})
		require.NoError(t, err)
	}

	resp, err := fix.service.GetHistory(context.Background(), userId, cfg.Id)
	require.NoError(t, err)

	require.Len(t, resp.Messages, 4)
	assert.Equal(t, "first", resp.Messages[0].Body)
	assert.Equal(t, "the answer", resp.Messages[1].Body)
	assert.Equal(t, "second", resp.Messages[2].Body)
	assert.Equal(t, "the answer", resp.Messages[3].Body)
}

func TestGetHistoryNonPersistentEmpty(t *testing.T) {
	fix := newChatFixture(t, inlineProvider())
	cfg := fix.addConfig(&entity.ChatConfig{Persistent: false})

	resp, err := fix.service.GetHistory(context.Background(), uuid.New(), cfg.Id)
	require.NoError(t, err)
	assert.Empty(t, resp.Messages)
	assert.Equal(t, uuid.Nil, resp.SessionId)
}

func TestClearChatCascades(t *testing.T) {
	prov := inlineProvider()
	prov.caps.Retrieval = true
	fix := newChatFixture(t, prov)
	cfg := fix.addConfig(&entity.ChatConfig{Persistent: true, RetrievalEnabled: true})
	userId := uuid.New()

	// Upload a chat attachment, then send referencing it.
	key, err := fix.blobs.Put(context.Background(), []byte("notes"), "notes.txt")
	require.NoError(t, err)
	att := entity.NewChatUploadAttachment(cfg.Id, userId, nil, key, "notes.txt", "text/plain", 5, time.Now())
	require.NoError(t, fix.uow.attachments.Create(context.Background(), att))

	_, err = fix.service.SendMessage(context.Background(), userId, &dto.SendMessageRequest{
		ChatId:        cfg.Id,
		Message:       "read my notes",
		AttachmentIds: []uuid.UUID{att.Id},
	})
	require.NoError(t, err)
	require.True(t, att.HasRetrievalRef())

	resp, err := fix.service.ClearChat(context.Background(), userId, cfg.Id)
	require.NoError(t, err)

	assert.Equal(t, 2, resp.MessagesDeleted)
	assert.Equal(t, 1, resp.AttachmentsDeleted)
	assert.Empty(t, fix.uow.messages.messages)
	assert.Empty(t, fix.uow.sessions.sessions)
	assert.Empty(t, fix.uow.attachments.attachments)

	// External state cleaned up too.
	assert.Equal(t, []string{"doc-notes.txt"}, fix.prov.deletedDocs)
	assert.NotContains(t, fix.blobs.files, key)
}

func TestClearChatWithoutSessionIsNoop(t *testing.T) {
	fix := newChatFixture(t, inlineProvider())
	cfg := fix.addConfig(&entity.ChatConfig{Persistent: true})

	resp, err := fix.service.ClearChat(context.Background(), uuid.New(), cfg.Id)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.MessagesDeleted)
	assert.Equal(t, 0, resp.AttachmentsDeleted)
}

func TestClearChatOtherUserUntouched(t *testing.T) {
	fix := newChatFixture(t, inlineProvider())
	cfg := fix.addConfig(&entity.ChatConfig{Persistent: true})
	alice := uuid.New()
	bob := uuid.New()

	for _, userId := range []uuid.UUID{alice, bob} {
		_, err := fix.service.SendMessage(context.Background(), userId, &dto.SendMessageRequest{
			ChatId:  cfg.Id,
			Message: "hello",
		})
		require.NoError(t, err)
	}

	resp, err := fix.service.ClearChat(context.Background(), alice, cfg.Id)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.MessagesDeleted)

	// Bob's transcript survives.
	history, err := fix.service.GetHistory(context.Background(), bob, cfg.Id)
	require.NoError(t, err)
	assert.Len(t, history.Messages, 2)
}
