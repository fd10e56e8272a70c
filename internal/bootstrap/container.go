package bootstrap

import (
	"context"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/legex/CAI-Webex/internal/config"
	"github.com/legex/CAI-Webex/internal/controller"
	"github.com/legex/CAI-Webex/internal/pkg/logger"
	"github.com/legex/CAI-Webex/internal/repository/memory"
	"github.com/legex/CAI-Webex/internal/repository/unitofwork"
	"github.com/legex/CAI-Webex/internal/service"
	"github.com/legex/CAI-Webex/pkg/embedding"
	"github.com/legex/CAI-Webex/pkg/llm/factory"
	pktNats "github.com/legex/CAI-Webex/pkg/nats"
	"github.com/legex/CAI-Webex/pkg/rag/evidence"
	"github.com/legex/CAI-Webex/pkg/rag/history"
	"github.com/legex/CAI-Webex/pkg/rag/intent"
	"github.com/legex/CAI-Webex/pkg/rag/prompt"
	"github.com/legex/CAI-Webex/pkg/rag/response"
	"github.com/legex/CAI-Webex/pkg/rag/retrieval"
	"github.com/legex/CAI-Webex/pkg/webex"
	"github.com/legex/CAI-Webex/pkg/websearch"
)

const telemetryTopic = "PIPELINE_TELEMETRY"

type Container struct {
	// Controllers
	WebhookController controller.IWebhookController
	ChatController    controller.IChatController

	// Background Services (Exposed for main.go to run)
	TelemetryService service.ITelemetryService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Providers
	embeddingProvider := embedding.NewOllamaProvider(
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.EmbeddingModel,
	)
	log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}

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

	sessionCache := memory.NewSessionCache()
	dedupeRepo := memory.NewDedupeRepository(rdb, 0)

	// 5. Pipeline components
	classifier := intent.NewClassifier(llmProvider, cfg.Ai.ClassifierModel, sysLogger)

	knowledgeRetriever := retrieval.NewKnowledgeRetriever(
		uowFactory,
		embeddingProvider,
		cfg.Pipeline.SimilarityThreshold,
	)

	var webRetriever retrieval.Retriever
	if cfg.Search.TavilyAPIKey != "" {
		webRetriever = retrieval.NewWebRetriever(
			websearch.NewTavilyClient(cfg.Search.TavilyAPIKey, cfg.Search.IncludeDomains),
		)
		log.Printf("[INFO] Web search enabled (domains: %v)", cfg.Search.IncludeDomains)
	} else {
		log.Printf("[WARN] TAVILY_API_KEY not set, running knowledge-only retrieval")
	}

	fanOut := retrieval.NewFanOut(knowledgeRetriever, webRetriever, cfg.Pipeline.RetrievalTimeout, sysLogger)
	fuser := evidence.NewFuser(cfg.Pipeline.ContextCharBudget)
	promptBuilder := prompt.NewBuilder()
	generator := response.NewGenerator(llmProvider, cfg.Ai.LLMModel, cfg.Pipeline.GenerationMaxRetries, sysLogger)
	historyLoader := history.NewLoader(uowFactory)

	// 6. Services
	publisherService := service.NewPublisherService(telemetryTopic, pubSub)
	telemetryService := service.NewTelemetryService(pubSub, telemetryTopic, natsPub, sysLogger)

	chatService := service.NewChatService(
		uowFactory,
		sessionCache,
		classifier,
		fanOut,
		fuser,
		promptBuilder,
		generator,
		historyLoader,
		publisherService,
		cfg.Pipeline,
		sysLogger,
	)
	historyService := service.NewHistoryService(uowFactory)

	webexClient := webex.NewClient(cfg.Webex.Token)

	// 7. Controllers
	return &Container{
		WebhookController: controller.NewWebhookController(
			chatService,
			webexClient,
			dedupeRepo,
			cfg.Webex.BotEmail,
			sysLogger,
		),
		ChatController: controller.NewChatController(chatService, historyService),

		TelemetryService: telemetryService,
	}
}
