package bootstrap

import (
	"context"
	"log"

	"ai-research-chat-be/internal/config"
	"ai-research-chat-be/internal/controller"
	"ai-research-chat-be/internal/handler"
	"ai-research-chat-be/internal/pkg/logger"
	"ai-research-chat-be/internal/pkg/mailer"
	"ai-research-chat-be/internal/repository/unitofwork"
	"ai-research-chat-be/internal/service"
	"ai-research-chat-be/internal/websocket"
	"ai-research-chat-be/pkg/agent"
	"ai-research-chat-be/pkg/events"
	"ai-research-chat-be/pkg/fetch"
	"ai-research-chat-be/pkg/llm/factory"
	"ai-research-chat-be/pkg/search"
	"ai-research-chat-be/pkg/tool"

	pktNats "ai-research-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController     controller.IChatController
	FeedbackController controller.IFeedbackController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets & Streaming
	StreamHandler *handler.StreamHandler
	WebSocketHub  *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
		cfg.SMTP.SenderName,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// Initialize LLM Provider based on Config
	llmProvider, err := factory.NewProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
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
	wsLogger := logger.NewIsolatedLogger("logs/stream.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 3. Research Toolchain
	searchManager := search.NewManager("tavily")
	searchManager.Register(search.NewTavily(cfg.Keys.Tavily))
	if cfg.Keys.Exa != "" {
		searchManager.Register(search.NewExa(cfg.Keys.Exa))
	}

	fetcher := fetch.NewFetcher()

	// Stateless tools only; the researcher adds run-scoped todo tools with
	// a fresh plan store on every run.
	registry := tool.NewRegistry()
	registry.Register(search.NewSearchTool(searchManager))
	registry.Register(fetch.NewFetchTool(fetcher))
	registry.Register(tool.NewQuestionTool())

	researcher := agent.NewResearcher(llmProvider, registry)

	// 4. Services
	publisherService := service.NewPublisherService(cfg.Keys.TitleTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Keys.TitleTopic,
		uowFactory,
		llmProvider,
		wsHub,
	)

	chatService := service.NewChatService(
		uowFactory,
		researcher,
		publisherService,
		wsHub,
		natsPub,
		sysLogger,
	)
	feedbackService := service.NewFeedbackService(
		uowFactory,
		emailService,
		cfg.App.AdminEmail,
		sysLogger,
	)

	// Audit trail for chat lifecycle events published to the bus
	if natsSub != nil {
		if err := natsSub.Subscribe("events.>", "chat-event-log", func(_ context.Context, ev events.Event) error {
			sysLogger.Info("Events", "Received", map[string]interface{}{
				"type":    ev.EventType(),
				"payload": ev.Payload(),
			})
			return nil
		}); err != nil {
			log.Printf("[WARN] Failed to subscribe to event stream: %v", err)
		}
	}

	// Streaming endpoint
	streamHandler := handler.NewStreamHandler(chatService, wsHub, wsLogger)

	// 5. Controllers
	return &Container{
		StreamHandler:      streamHandler,
		WebSocketHub:       wsHub,
		ChatController:     controller.NewChatController(chatService),
		FeedbackController: controller.NewFeedbackController(feedbackService),

		ConsumerService: consumerService,
	}
}
