package bootstrap

import (
	"context"
	"log"
	"time"

	"ai-chatwidget-be/internal/config"
	"ai-chatwidget-be/internal/constant"
	"ai-chatwidget-be/internal/controller"
	"ai-chatwidget-be/internal/handler"
	"ai-chatwidget-be/internal/pkg/logger"
	"ai-chatwidget-be/internal/repository/implementation"
	"ai-chatwidget-be/internal/repository/memory"
	"ai-chatwidget-be/internal/repository/unitofwork"
	"ai-chatwidget-be/internal/service"
	"ai-chatwidget-be/internal/websocket"
	"ai-chatwidget-be/pkg/blob"
	"ai-chatwidget-be/pkg/content"
	"ai-chatwidget-be/pkg/content/imaging"
	"ai-chatwidget-be/pkg/content/raster"
	"ai-chatwidget-be/pkg/pagecontext"
	"ai-chatwidget-be/pkg/pipeline/contextual"
	"ai-chatwidget-be/pkg/pipeline/conversation"
	"ai-chatwidget-be/pkg/pipeline/ragsync"
	"ai-chatwidget-be/pkg/provider/ollama"
	"ai-chatwidget-be/pkg/provider/openwebui"
	"ai-chatwidget-be/pkg/provider/registry"

	pktNats "ai-chatwidget-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController       controller.IChatController
	AttachmentController controller.IAttachmentController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	ChatWsHandler *handler.ChatWsHandler
	WebSocketHub  *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	blobs, err := blob.NewLocalStore(cfg.App.BlobDir)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize blob store: %v", err)
	}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Providers
	requestTimeout := time.Duration(cfg.Ai.RequestTimeoutSecs) * time.Second
	providers := registry.New()
	if err := providers.Register(ollama.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel, requestTimeout, sysLogger)); err != nil {
		log.Fatalf("[FATAL] Failed to register ollama provider: %v", err)
	}
	if err := providers.Register(openwebui.NewOpenWebUIProvider(cfg.Ai.OpenWebUIBaseURL, cfg.Ai.OpenWebUIAPIKey, cfg.Ai.OpenWebUIModel, requestTimeout, sysLogger)); err != nil {
		log.Fatalf("[FATAL] Failed to register openwebui provider: %v", err)
	}
	log.Printf("[INFO] Registered providers: %v", providers.IDs())

	// 4. Content pipeline
	var rasterizer content.Rasterizer
	if cfg.Ai.RasterizerURL != "" {
		rasterizer = raster.NewHTTPRasterizer(cfg.Ai.RasterizerURL)
		log.Printf("[INFO] PDF rasterizer at %s", cfg.Ai.RasterizerURL)
	} else {
		rasterizer = raster.NewUnavailable()
		log.Printf("[INFO] PDF rasterizer not configured, PDFs stay retrieval-only")
	}
	converter := content.NewConverter(blobs, rasterizer, imaging.NewRecompressor(), sysLogger)

	pageCache := memory.NewPageContextCache()
	pageFetcher := pagecontext.NewFetcher(cfg.App.LMSBaseURL, pageCache, sysLogger)

	contextAsm := contextual.NewAssembler(converter, pageFetcher, sysLogger)
	conversAsm := conversation.NewAssembler(converter, sysLogger)

	attachmentRepo := implementation.NewAttachmentRepository(db)
	uploadTimeout := time.Duration(cfg.Ai.UploadTimeoutSecs) * time.Second
	syncer := ragsync.NewSyncer(blobs, attachmentRepo, uploadTimeout, sysLogger)

	// 5. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/chat_ws.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 6. Services
	publisherService := service.NewPublisherService(constant.SyncAttachmentsTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		constant.SyncAttachmentsTopic,
		uowFactory,
		providers,
		syncer,
	)

	chatService := service.NewChatService(
		uowFactory,
		cfg,
		providers,
		blobs,
		contextAsm,
		conversAsm,
		syncer,
		natsPub,
		sysLogger,
	)
	attachmentService := service.NewAttachmentService(
		uowFactory,
		blobs,
		providers,
		publisherService,
		sysLogger,
	)

	chatWsHandler := handler.NewChatWsHandler(chatService, wsHub, wsLogger)

	// 7. Controllers
	return &Container{
		ChatController:       controller.NewChatController(chatService),
		AttachmentController: controller.NewAttachmentController(attachmentService),

		ConsumerService: consumerService,

		ChatWsHandler: chatWsHandler,
		WebSocketHub:  wsHub,
	}
}
