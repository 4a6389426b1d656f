package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/jb-platform/maintenance-service/internal/api/http"
	"github.com/jb-platform/maintenance-service/internal/api/http/handlers"
	"github.com/jb-platform/maintenance-service/internal/auth"
	"github.com/jb-platform/maintenance-service/internal/config"
	"github.com/jb-platform/maintenance-service/internal/domain"
	"github.com/jb-platform/maintenance-service/internal/events"
	"github.com/jb-platform/maintenance-service/internal/notify"
	"github.com/jb-platform/maintenance-service/internal/observability"
	"github.com/jb-platform/maintenance-service/internal/persistence"
	"github.com/jb-platform/maintenance-service/internal/repository"
	"github.com/jb-platform/maintenance-service/internal/repository/memory"
	"github.com/jb-platform/maintenance-service/internal/service"
	"github.com/jb-platform/maintenance-service/internal/worker"
	"github.com/jb-platform/maintenance-service/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var store repository.Store
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewPostgresStore(pg.Pool)
	} else {
		store = memory.NewStore()
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: dispatcher,
		Store:      store,
		Sender:     notify.NewRouterFromConfig(cfg.Notification, logger),
		Metrics:    metrics,
		Logger:     logger,
	})
	worker.StartNotificationWorker(notificationService, logger)

	engine := workflow.NewEngine(workflow.Agency{Name: cfg.Agency.Name, Phone: cfg.Agency.Phone})
	workflowService := service.NewWorkflowService(service.WorkflowDependencies{
		Store:      store,
		Engine:     engine,
		Dispatcher: dispatcher,
		ManagerInbox: domain.Contact{
			Name:  cfg.Agency.Name,
			Email: cfg.Notification.ManagerEmail,
			Phone: cfg.Notification.ManagerPhone,
		},
		Metrics: metrics,
		Logger:  logger,
	})
	numbers := service.NewRedisTicketNumbers(redis.Client, cfg.Redis.TicketSequenceKey, logger)
	if highest, err := store.Repos().Tickets.MaxSequence(ctx); err != nil {
		logger.Warn("failed to read highest ticket number", zap.Error(err))
	} else if err := numbers.Seed(ctx, highest); err != nil {
		logger.Warn("failed to seed ticket sequence", zap.Error(err))
	}
	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:    store,
		Workflow: workflowService,
		Numbers:  numbers,
	})
	partyService := service.NewPartyService(store)

	authService := service.NewAuthService(cfg.Auth, store, logger)
	if err := authService.BootstrapAdmin(ctx, cfg.Bootstrap); err != nil {
		logger.Fatal("failed to bootstrap admin", zap.Error(err))
	}
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), store.Repos().Users)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Users:          handlers.NewUsersHandler(authService),
		Parties:        handlers.NewPartiesHandler(partyService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Workflow:       handlers.NewWorkflowHandler(workflowService),
		Communications: handlers.NewCommunicationsHandler(notificationService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
