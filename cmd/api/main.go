package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/briefdesk/brief-service/internal/api/http"
	"github.com/briefdesk/brief-service/internal/api/http/handlers"
	"github.com/briefdesk/brief-service/internal/auth"
	"github.com/briefdesk/brief-service/internal/config"
	"github.com/briefdesk/brief-service/internal/email"
	"github.com/briefdesk/brief-service/internal/events"
	"github.com/briefdesk/brief-service/internal/llm"
	"github.com/briefdesk/brief-service/internal/observability"
	"github.com/briefdesk/brief-service/internal/persistence"
	"github.com/briefdesk/brief-service/internal/prompts"
	"github.com/briefdesk/brief-service/internal/repository"
	"github.com/briefdesk/brief-service/internal/service"
	"github.com/briefdesk/brief-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()
	health := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics)

	store, closeStore := openStore(ctx, cfg, logger, health)
	defer closeStore()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()
	if redis.Handle() != nil {
		health.Observe("redis", redis)
	}

	broker := events.NewBroker(cfg.Events, logger)
	dispatcher := events.NewBrokerDispatcher(events.NewInMemoryDispatcher(), broker, cfg.Events.Producer)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	brokerDone := worker.StartNotificationWorker(ctx, notificationService, broker, logger)

	renderer, err := email.NewRenderer(cfg.App.PublicURL)
	if err != nil {
		logger.Fatal("failed to parse email templates", zap.Error(err))
	}
	transport, transportErr := email.NewTransport(ctx, cfg.Email, cfg.Azure, logger)
	if transportErr != nil {
		logger.Warn("email transport unavailable; sends will fail", zap.Error(transportErr))
	}
	emailDispatcher := email.NewDispatcher(email.DispatcherDependencies{
		Transport:    transport,
		TransportErr: transportErr,
		Renderer:     renderer,
		Sender:       cfg.Email.SenderAddress,
		Policy:       email.RetryPolicyFromConfig(cfg.Email),
		Logger:       logger,
	})

	promptSet, err := prompts.Load(cfg.OpenAI.PromptsPath)
	if err != nil {
		logger.Fatal("failed to load prompts", zap.Error(err))
	}
	chatDeps := service.ChatDependencies{Prompts: promptSet, Logger: logger}
	if llmClient, err := llm.NewClient(ctx, cfg.OpenAI, cfg.Azure); err != nil {
		logger.Warn("chat model unavailable", zap.Error(err))
	} else {
		chatDeps.Client = llmClient
	}
	chatService := service.NewChatService(chatDeps)

	var (
		conversationService *service.ConversationService
		trackingService     *service.EmailTrackingService
		intakeService       *service.IntakeService
	)
	if store != nil {
		deliveryLock := service.NewGuard(redis.Handle(), cfg.Redis.SaveLockTTL(), logger)
		conversationService = service.NewConversationService(service.ConversationDependencies{
			Store:  store,
			Logger: logger,
		})
		trackingService = service.NewEmailTrackingService(service.EmailTrackingDependencies{
			Store:         store,
			Conversations: conversationService,
			Sender:        emailDispatcher,
			Locker:        deliveryLock,
			Dispatcher:    dispatcher,
			Metrics:       metrics,
			Logger:        logger,
		})
		intakeService = service.NewIntakeService(service.IntakeDependencies{
			Conversations: conversationService,
			Tracking:      trackingService,
			Locker:        deliveryLock,
			Dispatcher:    dispatcher,
			Logger:        logger,
		})
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	operatorService := service.NewOperatorService(cfg.Auth, tokens)
	authMiddleware := auth.NewAuthMiddleware(tokens, cfg.Auth.OperatorAuthEnabled())
	if !authMiddleware.Enabled() {
		logger.Warn("operator credentials not configured; operator routes are open")
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:        cfg.App.RequestTimeout(),
		AllowedOrigins: cfg.App.AllowedOrigins,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         health,
		Chat:           handlers.NewChatHandler(chatService, cfg.OpenAI.StreamTimeout(), logger),
		Intake:         handlers.NewIntakeHandler(intakeService, conversationService),
		Briefs:         handlers.NewBriefHandler(conversationService, renderer, logger),
		Email:          handlers.NewEmailHandler(trackingService),
		Operator:       handlers.NewOperatorHandler(operatorService, conversationService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	cancel()
	<-brokerDone
}

// openStore connects the configured document store. It returns a nil store
// when the database is not configured; data routes then answer 503.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, health *handlers.HealthHandler) (*repository.Store, func()) {
	switch cfg.Storage.Driver {
	case config.StorageDriverSQLite:
		db, err := persistence.NewSQLite(ctx, cfg.Storage, logger)
		if err != nil {
			logger.Fatal("failed to open sqlite", zap.Error(err))
		}
		health.Require("sqlite", db)
		return repository.NewSQLiteStore(db.DB), db.Close
	default:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		health.Require("postgres", pg)
		if pg.PoolHandle() == nil {
			return nil, pg.Close
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), os.DirFS("migrations"), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		return repository.NewPostgresStore(pg.PoolHandle()), pg.Close
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
