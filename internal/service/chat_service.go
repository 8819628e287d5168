package service

import (
	"context"
	"fmt"
	"time"

	"ai-chatwidget-be/internal/config"
	"ai-chatwidget-be/internal/constant"
	"ai-chatwidget-be/internal/dto"
	"ai-chatwidget-be/internal/entity"
	"ai-chatwidget-be/internal/pkg/apperror"
	"ai-chatwidget-be/internal/pkg/logger"
	"ai-chatwidget-be/internal/repository/specification"
	"ai-chatwidget-be/internal/repository/unitofwork"
	"ai-chatwidget-be/pkg/blob"
	"ai-chatwidget-be/pkg/content"
	"ai-chatwidget-be/pkg/events"
	"ai-chatwidget-be/pkg/nats"
	"ai-chatwidget-be/pkg/pipeline/contextual"
	"ai-chatwidget-be/pkg/pipeline/conversation"
	"ai-chatwidget-be/pkg/pipeline/mode"
	"ai-chatwidget-be/pkg/pipeline/ragsync"
	"ai-chatwidget-be/pkg/provider"
	"ai-chatwidget-be/pkg/provider/registry"

	"github.com/google/uuid"
)

// DeltaFunc receives streamed reply fragments as they arrive.
type DeltaFunc func(delta string) error

// IChatService defines the chat service interface
type IChatService interface {
	SendMessage(ctx context.Context, userId uuid.UUID, request *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
	SendMessageStream(ctx context.Context, userId uuid.UUID, request *dto.SendMessageRequest, emit DeltaFunc) (*dto.SendMessageResponse, error)
	GetHistory(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*dto.GetHistoryResponse, error)
	ClearChat(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*dto.ClearChatResponse, error)
}

// chatService drives one send end to end: load config, resolve mode, sync
// retrieval documents, assemble context and history, call the provider,
// persist the reply.
type chatService struct {
	uowFactory unitofwork.RepositoryFactory
	cfg        *config.Config
	providers  *registry.Registry
	blobs      blob.Store
	contextAsm *contextual.Assembler
	conversAsm *conversation.Assembler
	syncer     *ragsync.Syncer
	natsPub    *nats.Publisher
	logger     logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	cfg *config.Config,
	providers *registry.Registry,
	blobs blob.Store,
	contextAsm *contextual.Assembler,
	conversAsm *conversation.Assembler,
	syncer *ragsync.Syncer,
	natsPub *nats.Publisher,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory: uowFactory,
		cfg:        cfg,
		providers:  providers,
		blobs:      blobs,
		contextAsm: contextAsm,
		conversAsm: conversAsm,
		syncer:     syncer,
		natsPub:    natsPub,
		logger:     log,
	}
}

// turnContext carries the state built up across one send.
type turnContext struct {
	policy        config.Policy
	chatConfig    *entity.ChatConfig
	session       *entity.ChatSession
	userMessage   *entity.ChatMessage
	attachments   []*entity.Attachment
	prov          provider.Provider
	mode          mode.Mode
	collectionIds []string
	messages      []provider.Message
}

func (cs *chatService) SendMessage(ctx context.Context, userId uuid.UUID, request *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	turn, err := cs.prepareTurn(ctx, userId, request)
	if err != nil {
		return nil, err
	}

	reply, err := cs.callProvider(ctx, turn)
	if err != nil {
		return nil, err
	}

	return cs.finishTurn(ctx, userId, turn, reply)
}

// callProvider routes the assembled messages to the provider for the resolved
// mode. Retrieval sends must be text-only; an image block reaching this point
// means the pipeline shaped the wrong mode, so the send fails loudly instead
// of mixing deliveries.
func (cs *chatService) callProvider(ctx context.Context, turn *turnContext) (string, error) {
	var reply string
	var err error
	if turn.mode == mode.Retrieval && len(turn.collectionIds) > 0 {
		for _, msg := range turn.messages {
			if len(msg.Images()) > 0 {
				return "", apperror.New(apperror.KindModeConflict, "image content in a retrieval send")
			}
		}
		reply, err = turn.prov.SendRetrieval(ctx, turn.messages, turn.collectionIds)
	} else {
		reply, err = turn.prov.SendDirect(ctx, turn.messages)
	}
	if err != nil {
		return "", apperror.Wrap(apperror.KindProviderCallFailure, "provider call failed", err)
	}
	return reply, nil
}

// SendMessageStream behaves like SendMessage but forwards reply deltas as
// they arrive. Only the final full text is persisted; a cancelled stream
// persists no assistant message.
func (cs *chatService) SendMessageStream(ctx context.Context, userId uuid.UUID, request *dto.SendMessageRequest, emit DeltaFunc) (*dto.SendMessageResponse, error) {
	turn, err := cs.prepareTurn(ctx, userId, request)
	if err != nil {
		return nil, err
	}

	caps := turn.prov.Capabilities()
	streamable := caps.Streaming && turn.chatConfig.StreamingEnabled && turn.mode == mode.Inline
	if !streamable {
		// Retrieval sends and non-streaming providers deliver in one piece.
		reply, err := cs.callProvider(ctx, turn)
		if err != nil {
			return nil, err
		}
		if err := emit(reply); err != nil {
			return nil, err
		}
		return cs.finishTurn(ctx, userId, turn, reply)
	}

	eventsCh, err := turn.prov.SendDirectStream(ctx, turn.messages)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindProviderCallFailure, "provider stream failed", err)
	}

	var finalText string
	completed := false
	for ev := range eventsCh {
		if ev.Err != nil {
			return nil, apperror.Wrap(apperror.KindProviderCallFailure, "provider stream failed", ev.Err)
		}
		if ev.Done {
			finalText = ev.FinalText
			completed = true
			break
		}
		if err := emit(ev.Delta); err != nil {
			return nil, err
		}
	}
	if !completed {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperror.New(apperror.KindProviderCallFailure, "provider stream ended without completion")
	}

	return cs.finishTurn(ctx, userId, turn, finalText)
}

// prepareTurn runs every step up to (but not including) the provider call:
// config load, session get-or-create, user-message append, mode resolution,
// retrieval sync, and message assembly.
func (cs *chatService) prepareTurn(ctx context.Context, userId uuid.UUID, request *dto.SendMessageRequest) (*turnContext, error) {
	policy := cs.cfg.PolicyFor()
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatConfig, err := uow.ChatConfigRepository().FindOne(ctx, specification.ByID{ID: request.ChatId})
	if err != nil {
		return nil, apperror.Wrap(apperror.KindSessionError, "load chat config", err)
	}
	if chatConfig == nil {
		return nil, apperror.New(apperror.KindConfigNotFound, fmt.Sprintf("chat %s not found", request.ChatId))
	}
	if chatConfig.CharLimit > 0 && len([]rune(request.Message)) > chatConfig.CharLimit {
		return nil, apperror.New(apperror.KindValidation,
			fmt.Sprintf("message exceeds the %d character limit", chatConfig.CharLimit))
	}

	prov, err := cs.providers.Resolve(chatConfig.ProviderId)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindProviderCallFailure, "resolve provider", err)
	}

	turn := &turnContext{
		policy:     policy,
		chatConfig: chatConfig,
		prov:       prov,
		mode:       mode.Resolve(chatConfig, prov.Capabilities(), policy),
	}

	if chatConfig.Persistent {
		if err := cs.persistUserTurn(ctx, userId, request, turn); err != nil {
			return nil, err
		}
	} else if len(request.AttachmentIds) > 0 {
		atts, err := cs.loadOwnedAttachments(ctx, uow, userId, request.AttachmentIds)
		if err != nil {
			return nil, err
		}
		turn.attachments = atts
	}

	if turn.mode == mode.Retrieval {
		if err := cs.syncForTurn(ctx, uow, turn); err != nil {
			return nil, err
		}
	}

	if err := cs.assembleMessages(ctx, uow, userId, request, turn); err != nil {
		return nil, err
	}
	return turn, nil
}

// persistUserTurn commits the session and the user's message in their own
// transaction before the provider is called. A later failure never removes
// the user's turn.
func (cs *chatService) persistUserTurn(ctx context.Context, userId uuid.UUID, request *dto.SendMessageRequest, turn *turnContext) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	now := time.Now()

	if err := uow.Begin(ctx); err != nil {
		return apperror.Wrap(apperror.KindSessionError, "begin transaction", err)
	}
	defer uow.Rollback()

	session, err := uow.ChatSessionRepository().GetOrCreate(ctx, turn.chatConfig.Id, userId, now)
	if err != nil {
		return apperror.Wrap(apperror.KindSessionError, "get or create session", err)
	}

	userMessage := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: session.Id,
		Role:          constant.ChatMessageRoleUser,
		Body:          request.Message,
		CreatedAt:     now,
	}
	if err := uow.ChatMessageRepository().Append(ctx, userMessage); err != nil {
		return apperror.Wrap(apperror.KindSessionError, "append user message", err)
	}

	if len(request.AttachmentIds) > 0 {
		atts, err := cs.loadOwnedAttachments(ctx, uow, userId, request.AttachmentIds)
		if err != nil {
			return err
		}
		if err := uow.AttachmentRepository().BindToMessage(ctx, request.AttachmentIds, userMessage.Id); err != nil {
			return apperror.Wrap(apperror.KindSessionError, "bind attachments", err)
		}
		for _, att := range atts {
			att.MessageId = &userMessage.Id
		}
		turn.attachments = atts
	}

	if err := uow.ChatSessionRepository().Touch(ctx, session.Id, now); err != nil {
		return apperror.Wrap(apperror.KindSessionError, "touch session", err)
	}
	if err := uow.Commit(); err != nil {
		return apperror.Wrap(apperror.KindSessionError, "commit user turn", err)
	}

	turn.session = session
	turn.userMessage = userMessage
	return nil
}

// loadOwnedAttachments resolves the client-supplied attachment ids, rejecting
// ids that do not exist or belong to someone else.
func (cs *chatService) loadOwnedAttachments(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, ids []uuid.UUID) ([]*entity.Attachment, error) {
	atts, err := uow.AttachmentRepository().FindAll(ctx, specification.ByIDs{IDs: ids})
	if err != nil {
		return nil, apperror.Wrap(apperror.KindSessionError, "load attachments", err)
	}
	byId := make(map[uuid.UUID]*entity.Attachment, len(atts))
	for _, att := range atts {
		byId[att.Id] = att
	}

	ordered := make([]*entity.Attachment, 0, len(ids))
	for _, id := range ids {
		att, ok := byId[id]
		if !ok {
			return nil, apperror.New(apperror.KindAttachmentNotFound, fmt.Sprintf("attachment %s not found", id))
		}
		if att.UserId == nil || *att.UserId != userId {
			return nil, apperror.New(apperror.KindAttachmentNotFound, fmt.Sprintf("attachment %s not found", id))
		}
		ordered = append(ordered, att)
	}
	return ordered, nil
}

// syncForTurn pushes not-yet-indexed documents into the provider's retrieval
// storage and collects the collection ids for this send. Background-file
// failures only shrink the collection set, but a document the user sent with
// this very turn must actually be retrievable: in retrieval mode its content
// never rides inline, so proceeding without the upload would silently answer
// as if the file had not been sent.
func (cs *chatService) syncForTurn(ctx context.Context, uow unitofwork.UnitOfWork, turn *turnContext) error {
	background, err := uow.AttachmentRepository().FindAll(ctx,
		specification.ByChatConfigID{ChatConfigID: turn.chatConfig.Id},
		specification.BackgroundOnly{},
	)
	if err != nil {
		cs.logger.Warn("ChatService", "load background attachments failed", map[string]interface{}{
			"chat_config_id": turn.chatConfig.Id.String(),
			"error":          err.Error(),
		})
		background = nil
	}

	entityId := turn.chatConfig.Id.String()
	candidates := make([]*entity.Attachment, 0, len(background)+len(turn.attachments))
	candidates = append(candidates, background...)
	candidates = append(candidates, turn.attachments...)
	cs.syncer.Sync(ctx, turn.prov, candidates, entityId)

	for _, att := range turn.attachments {
		if att.HasRetrievalRef() {
			continue
		}
		if !content.RetrievalCompatible(content.DetectFamily(att.MimeType, att.Filename)) {
			continue
		}
		return apperror.New(apperror.KindRetrievalUploadFailure,
			fmt.Sprintf("attachment %s could not be indexed for retrieval", att.Filename))
	}

	seen := make(map[string]bool)
	for _, att := range candidates {
		if att.HasRetrievalRef() && !seen[att.RetrievalRef.CollectionId] {
			seen[att.RetrievalRef.CollectionId] = true
			turn.collectionIds = append(turn.collectionIds, att.RetrievalRef.CollectionId)
		}
	}
	return nil
}

// assembleMessages builds the final provider message list: background context
// first, then history shaped by the memory window and delivery mode.
func (cs *chatService) assembleMessages(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, request *dto.SendMessageRequest, turn *turnContext) error {
	budget := content.NewBudgetTracker(turn.policy)

	background, err := uow.AttachmentRepository().FindAll(ctx,
		specification.ByChatConfigID{ChatConfigID: turn.chatConfig.Id},
		specification.BackgroundOnly{},
	)
	if err != nil {
		return apperror.Wrap(apperror.KindSessionError, "load background attachments", err)
	}
	bg := cs.contextAsm.Assemble(ctx, turn.chatConfig, background, turn.mode, turn.policy, budget)

	var history []conversation.HistoryMessage
	if turn.chatConfig.Persistent {
		history, err = cs.loadHistory(ctx, uow, turn)
		if err != nil {
			return err
		}
	} else {
		history = cs.clientHistory(request, turn)
	}

	turn.messages = cs.conversAsm.Assemble(ctx, turn.chatConfig, bg, history, turn.mode, turn.policy, budget)
	return nil
}

// loadHistory fetches the windowed message history including the just-appended
// user turn, with each message's attachments.
func (cs *chatService) loadHistory(ctx context.Context, uow unitofwork.UnitOfWork, turn *turnContext) ([]conversation.HistoryMessage, error) {
	limit := turn.chatConfig.MemoryWindow
	messages, err := uow.ChatMessageRepository().FindRecent(ctx, turn.session.Id, limit)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindSessionError, "load history", err)
	}

	messageIds := make([]uuid.UUID, len(messages))
	for i, msg := range messages {
		messageIds[i] = msg.Id
	}
	attsByMsg := make(map[uuid.UUID][]*entity.Attachment)
	if len(messageIds) > 0 {
		atts, err := uow.AttachmentRepository().FindAll(ctx, specification.ByMessageIDs{MessageIDs: messageIds})
		if err != nil {
			return nil, apperror.Wrap(apperror.KindSessionError, "load message attachments", err)
		}
		for _, att := range atts {
			if att.MessageId != nil {
				attsByMsg[*att.MessageId] = append(attsByMsg[*att.MessageId], att)
			}
		}
	}

	history := make([]conversation.HistoryMessage, len(messages))
	for i, msg := range messages {
		history[i] = conversation.HistoryMessage{
			Message:     msg,
			Attachments: attsByMsg[msg.Id],
		}
	}
	return history, nil
}

// clientHistory builds the history for a non-persistent chat from the turns
// the browser sent along, with the new user message last.
func (cs *chatService) clientHistory(request *dto.SendMessageRequest, turn *turnContext) []conversation.HistoryMessage {
	history := make([]conversation.HistoryMessage, 0, len(request.History)+1)
	for _, item := range request.History {
		history = append(history, conversation.HistoryMessage{
			Message: &entity.ChatMessage{
				Role: item.Role,
				Body: item.Body,
			},
		})
	}
	history = append(history, conversation.HistoryMessage{
		Message: &entity.ChatMessage{
			Id:   uuid.New(),
			Role: constant.ChatMessageRoleUser,
			Body: request.Message,
		},
		Attachments: turn.attachments,
	})
	return history
}

// finishTurn persists the assistant reply (for persistent chats), publishes
// the usage event, and shapes the response.
func (cs *chatService) finishTurn(ctx context.Context, userId uuid.UUID, turn *turnContext, reply string) (*dto.SendMessageResponse, error) {
	now := time.Now()
	response := &dto.SendMessageResponse{
		Mode: string(turn.mode),
		Reply: &dto.MessageDTO{
			Id:        uuid.New(),
			Role:      constant.ChatMessageRoleAssistant,
			Body:      reply,
			CreatedAt: now,
		},
	}

	if turn.chatConfig.Persistent {
		uow := cs.uowFactory.NewUnitOfWork(ctx)
		if err := uow.Begin(ctx); err != nil {
			return nil, apperror.Wrap(apperror.KindSessionError, "begin transaction", err)
		}
		defer uow.Rollback()

		assistantMessage := &entity.ChatMessage{
			Id:            response.Reply.Id,
			ChatSessionId: turn.session.Id,
			Role:          constant.ChatMessageRoleAssistant,
			Body:          reply,
			CreatedAt:     now,
		}
		if err := uow.ChatMessageRepository().Append(ctx, assistantMessage); err != nil {
			return nil, apperror.Wrap(apperror.KindSessionError, "append assistant message", err)
		}
		if err := uow.ChatSessionRepository().Touch(ctx, turn.session.Id, now); err != nil {
			return nil, apperror.Wrap(apperror.KindSessionError, "touch session", err)
		}
		if err := uow.Commit(); err != nil {
			return nil, apperror.Wrap(apperror.KindSessionError, "commit assistant turn", err)
		}

		response.SessionId = turn.session.Id
		response.Sent = &dto.MessageDTO{
			Id:          turn.userMessage.Id,
			Role:        turn.userMessage.Role,
			Body:        turn.userMessage.Body,
			CreatedAt:   turn.userMessage.CreatedAt,
			Attachments: mapAttachmentDTOs(turn.attachments),
		}
	}

	cs.publishTurnCompleted(ctx, userId, turn, reply)
	return response, nil
}

// publishTurnCompleted emits the usage event; a missing or failing bus is
// logged and ignored.
func (cs *chatService) publishTurnCompleted(ctx context.Context, userId uuid.UUID, turn *turnContext, reply string) {
	if cs.natsPub == nil {
		return
	}
	sessionId := uuid.Nil
	if turn.session != nil {
		sessionId = turn.session.Id
	}
	promptChars := 0
	for _, msg := range turn.messages {
		promptChars += len(msg.Text())
	}
	event := events.NewTurnCompletedEvent(
		turn.chatConfig.Id, sessionId, userId,
		turn.prov.ID(), string(turn.mode),
		promptChars, len(reply),
	)
	if err := cs.natsPub.Publish(ctx, event); err != nil {
		cs.logger.Warn("ChatService", "publish turn event failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// GetHistory returns the caller's full session transcript, creating the
// session lazily on first load.
func (cs *chatService) GetHistory(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*dto.GetHistoryResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatConfig, err := uow.ChatConfigRepository().FindOne(ctx, specification.ByID{ID: chatId})
	if err != nil {
		return nil, apperror.Wrap(apperror.KindSessionError, "load chat config", err)
	}
	if chatConfig == nil {
		return nil, apperror.New(apperror.KindConfigNotFound, fmt.Sprintf("chat %s not found", chatId))
	}
	if !chatConfig.Persistent {
		// Browser-side history; the server has nothing to return.
		return &dto.GetHistoryResponse{Messages: []dto.MessageDTO{}}, nil
	}

	session, err := uow.ChatSessionRepository().GetOrCreate(ctx, chatConfig.Id, userId, time.Now())
	if err != nil {
		return nil, apperror.Wrap(apperror.KindSessionError, "get or create session", err)
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: session.Id},
		specification.OrderBy{Field: "ordinal", Desc: false},
	)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindSessionError, "load history", err)
	}

	messageIds := make([]uuid.UUID, len(messages))
	for i, msg := range messages {
		messageIds[i] = msg.Id
	}
	attsByMsg := make(map[uuid.UUID][]*entity.Attachment)
	if len(messageIds) > 0 {
		atts, err := uow.AttachmentRepository().FindAll(ctx, specification.ByMessageIDs{MessageIDs: messageIds})
		if err != nil {
			return nil, apperror.Wrap(apperror.KindSessionError, "load message attachments", err)
		}
		for _, att := range atts {
			if att.MessageId != nil {
				attsByMsg[*att.MessageId] = append(attsByMsg[*att.MessageId], att)
			}
		}
	}

	out := make([]dto.MessageDTO, 0, len(messages))
	for _, msg := range messages {
		out = append(out, dto.MessageDTO{
			Id:          msg.Id,
			Role:        msg.Role,
			Body:        msg.Body,
			CreatedAt:   msg.CreatedAt,
			Attachments: mapAttachmentDTOs(attsByMsg[msg.Id]),
		})
	}

	return &dto.GetHistoryResponse{
		SessionId: session.Id,
		Messages:  out,
	}, nil
}

// ClearChat wipes the caller's session: messages, their chat-upload
// attachments (blobs and retrieval documents included), and the session row.
// Clearing a chat with no session is a no-op, not an error.
func (cs *chatService) ClearChat(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*dto.ClearChatResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatConfig, err := uow.ChatConfigRepository().FindOne(ctx, specification.ByID{ID: chatId})
	if err != nil {
		return nil, apperror.Wrap(apperror.KindSessionError, "load chat config", err)
	}
	if chatConfig == nil {
		return nil, apperror.New(apperror.KindConfigNotFound, fmt.Sprintf("chat %s not found", chatId))
	}

	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByChatConfigID{ChatConfigID: chatId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindSessionError, "load session", err)
	}
	if session == nil {
		return &dto.ClearChatResponse{}, nil
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: session.Id},
	)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindSessionError, "load messages", err)
	}
	messageIds := make([]uuid.UUID, len(messages))
	for i, msg := range messages {
		messageIds[i] = msg.Id
	}

	var atts []*entity.Attachment
	if len(messageIds) > 0 {
		atts, err = uow.AttachmentRepository().FindAll(ctx, specification.ByMessageIDs{MessageIDs: messageIds})
		if err != nil {
			return nil, apperror.Wrap(apperror.KindSessionError, "load attachments", err)
		}
	}

	// External cleanup is best-effort and happens before the row deletes; a
	// failed remote delete leaves an orphan document, not a broken session.
	cs.cleanupAttachmentExternals(ctx, chatConfig, atts)

	if err := uow.Begin(ctx); err != nil {
		return nil, apperror.Wrap(apperror.KindSessionError, "begin transaction", err)
	}
	defer uow.Rollback()

	messagesDeleted, err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, session.Id)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindSessionError, "delete messages", err)
	}
	var attachmentsDeleted int64
	if len(messageIds) > 0 {
		attachmentsDeleted, err = uow.AttachmentRepository().DeleteByMessageIds(ctx, messageIds)
		if err != nil {
			return nil, apperror.Wrap(apperror.KindSessionError, "delete attachments", err)
		}
	}
	if err := uow.ChatSessionRepository().Delete(ctx, session.Id); err != nil {
		return nil, apperror.Wrap(apperror.KindSessionError, "delete session", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, apperror.Wrap(apperror.KindSessionError, "commit clear", err)
	}

	return &dto.ClearChatResponse{
		MessagesDeleted:    int(messagesDeleted),
		AttachmentsDeleted: int(attachmentsDeleted),
	}, nil
}

func (cs *chatService) cleanupAttachmentExternals(ctx context.Context, chatConfig *entity.ChatConfig, atts []*entity.Attachment) {
	var prov provider.Provider
	if p, err := cs.providers.Resolve(chatConfig.ProviderId); err == nil {
		prov = p
	}
	for _, att := range atts {
		if att.HasRetrievalRef() && prov != nil {
			if err := prov.DeleteDocument(ctx, att.RetrievalRef.RemoteDocumentId, chatConfig.Id.String()); err != nil {
				cs.logger.Warn("ChatService", "retrieval document delete failed", map[string]interface{}{
					"attachment_id": att.Id.String(),
					"error":         err.Error(),
				})
			}
		}
		if att.BlobKey != "" {
			if err := cs.blobs.Delete(ctx, att.BlobKey); err != nil {
				cs.logger.Warn("ChatService", "blob delete failed", map[string]interface{}{
					"attachment_id": att.Id.String(),
					"error":         err.Error(),
				})
			}
		}
	}
}

func mapAttachmentDTOs(atts []*entity.Attachment) []dto.AttachmentDTO {
	if len(atts) == 0 {
		return nil
	}
	out := make([]dto.AttachmentDTO, len(atts))
	for i, att := range atts {
		out[i] = dto.AttachmentDTO{
			Id:        att.Id,
			Filename:  att.Filename,
			MimeType:  att.MimeType,
			SizeBytes: att.SizeBytes,
			Indexed:   att.HasRetrievalRef(),
			CreatedAt: att.CreatedAt,
		}
	}
	return out
}
