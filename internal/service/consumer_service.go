package service

import (
	"context"
	"encoding/json"
	"log"

	"ai-chatwidget-be/internal/dto"
	"ai-chatwidget-be/internal/repository/specification"
	"ai-chatwidget-be/internal/repository/unitofwork"
	"ai-chatwidget-be/pkg/pipeline/ragsync"
	"ai-chatwidget-be/pkg/provider/registry"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService indexes a chat's background attachments into retrieval
// storage off the request path, triggered by sync messages.
type consumerService struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	providers  *registry.Registry
	syncer     *ragsync.Syncer
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	providers *registry.Registry,
	syncer *ragsync.Syncer,
) IConsumerService {
	return &consumerService{
		pubSub:     pubSub,
		topicName:  topicName,
		uowFactory: uowFactory,
		providers:  providers,
		syncer:     syncer,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishSyncAttachmentsMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal sync message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Syncing background attachments for chat %s", payload.ChatConfigId)

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatConfig, err := uow.ChatConfigRepository().FindOne(ctx, specification.ByID{ID: payload.ChatConfigId})
	if err != nil {
		log.Printf("[ERROR] Failed to load chat config %s: %v", payload.ChatConfigId, err)
		msg.Nack() // Nack for retriable errors
		return
	}
	if chatConfig == nil {
		log.Printf("[ERROR] Chat config not found: %s", payload.ChatConfigId)
		msg.Ack() // Config deleted? Ack.
		return
	}

	prov, err := cs.providers.Resolve(chatConfig.ProviderId)
	if err != nil {
		log.Printf("[ERROR] Unknown provider %s for chat %s: %v", chatConfig.ProviderId, payload.ChatConfigId, err)
		msg.Ack() // Misconfiguration, retrying won't help.
		return
	}
	if !prov.Capabilities().Retrieval {
		log.Printf("[INFO] Provider %s has no retrieval support, nothing to sync", prov.ID())
		msg.Ack()
		return
	}

	candidates, err := uow.AttachmentRepository().FindAll(ctx,
		specification.ByChatConfigID{ChatConfigID: payload.ChatConfigId},
		specification.BackgroundOnly{},
		specification.WithoutRetrievalRef{},
	)
	if err != nil {
		log.Printf("[ERROR] Failed to load background attachments: %v", err)
		msg.Nack()
		return
	}

	result := cs.syncer.Sync(ctx, prov, candidates, payload.ChatConfigId.String())
	log.Printf("[INFO] Sync complete for chat %s: uploaded=%d skipped=%d errors=%d",
		payload.ChatConfigId, result.Uploaded, result.Skipped, result.Errors)

	msg.Ack()
}
