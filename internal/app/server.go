// internal/app/server.go
package app

import (
	"context"
	"fmt"

	"otodealer-service/internal/ai"
	"otodealer-service/internal/config"
	"otodealer-service/internal/db"
	"otodealer-service/internal/gateway"
	crmHandler "otodealer-service/internal/handlers/crm"
	webhookHandler "otodealer-service/internal/handlers/webhook"
	wsHandler "otodealer-service/internal/handlers/websocket"
	"otodealer-service/internal/middleware"
	"otodealer-service/internal/pkg/turnstate"
	"otodealer-service/internal/repository/postgres"
	"otodealer-service/internal/service/chat"
	"otodealer-service/internal/service/command"
	"otodealer-service/internal/service/leadgate"
	"otodealer-service/internal/service/pipeline"
	"otodealer-service/internal/service/staffdir"
	"otodealer-service/internal/ws"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	s.logger = logger

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(ctx, s.cfg.DBURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       0,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to Redis", zap.String("addr", s.cfg.RedisAddr))

	// ----- Repositories -----
	conversationRepo := postgres.NewConversationRepository(pool)
	messageRepo := postgres.NewMessageRepository(pool)
	leadRepo := postgres.NewLeadRepository(pool)
	staffRepo := postgres.NewStaffRepository(pool)
	commandLogRepo := postgres.NewCommandLogRepository(pool)
	vehicleRepo := postgres.NewVehicleRepository(pool)

	// ----- Turn state (dedup window + staff flows) -----
	state := turnstate.NewRedisStore(redisClient)

	// ----- Services -----
	resolver := staffdir.NewResolver(staffRepo, logger)
	commandSvc := command.NewHandler(vehicleRepo, commandLogRepo, state, logger)
	gate := leadgate.NewGate(leadRepo, resolver, logger)

	var assistant ai.Assistant = ai.OpenAICompatAssistant{
		BaseURL: s.cfg.AssistantBaseURL,
		Model:   s.cfg.AssistantModel,
		APIKey:  s.cfg.AssistantAPIKey,
	}
	if s.cfg.AssistantBaseURL == "" {
		logger.Warn("ASSISTANT_BASE_URL not set, using canned replies")
		assistant = &ai.MockAssistant{}
	}
	responder := chat.NewResponder(assistant, messageRepo, vehicleRepo, chat.Personality{
		AgentName:  s.cfg.AgentName,
		DealerName: s.cfg.DealerName,
		Tone:       s.cfg.AgentTone,
		Knowledge:  s.cfg.DealerKnowledge,
	}, s.cfg.HistoryTurns, logger)

	messenger := &gateway.HTTPGateway{
		BaseURL: s.cfg.GatewayBaseURL,
		Token:   s.cfg.GatewayToken,
	}

	// ----- Live event feed -----
	hub := ws.NewHub(logger)
	go hub.Run(ctx)

	// ----- Pipeline -----
	pipe := pipeline.New(
		pipeline.Config{
			BotPhone:         s.cfg.BotPhone,
			DuplicateWindow:  s.cfg.DuplicateWindow,
			AssistantTimeout: s.cfg.AssistantTimeout,
			SendTimeout:      s.cfg.SendTimeout,
		},
		conversationRepo,
		messageRepo,
		resolver,
		commandSvc,
		responder,
		gate,
		vehicleRepo,
		messenger,
		state,
		hub,
		logger,
	)

	// ----- Handlers -----
	webhookInst := webhookHandler.NewWebhookHandler(pipe, logger)
	crmInst := crmHandler.NewCRMHandler(conversationRepo, messageRepo, leadRepo, vehicleRepo, logger)
	wsInst := wsHandler.NewWebSocketHandler(hub, s.cfg.DashboardToken, logger)

	// ----- Middlewares -----
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
	)

	// ----- Router -----
	handlers := &Handlers{
		WebhookHandler: webhookInst,
		CRMHandler:     crmInst,
		WSHandler:      wsInst,
		WebhookToken:   s.cfg.WebhookToken,
		DashboardToken: s.cfg.DashboardToken,
	}
	SetupRouter(s.engine, logger, handlers)

	logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
	return s.engine.Run(s.cfg.HTTPAddr)
}
