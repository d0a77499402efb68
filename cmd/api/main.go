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

	httptransport "github.com/spec-kit/ticketdesk/internal/api/http"
	"github.com/spec-kit/ticketdesk/internal/api/http/handlers"
	"github.com/spec-kit/ticketdesk/internal/auth"
	"github.com/spec-kit/ticketdesk/internal/catalog"
	"github.com/spec-kit/ticketdesk/internal/config"
	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/events"
	"github.com/spec-kit/ticketdesk/internal/observability"
	"github.com/spec-kit/ticketdesk/internal/persistence"
	"github.com/spec-kit/ticketdesk/internal/repository"
	"github.com/spec-kit/ticketdesk/internal/service"
	"github.com/spec-kit/ticketdesk/internal/worker"
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Redis only backs id sequences and event fan-out.
	var redis *persistence.Redis
	if cfg.Tickets.Sequences == "redis" || cfg.Notification.RedisChannel != "" {
		redis, err = persistence.NewRedis(ctx, cfg.Redis, true, logger)
		if err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redis.Close()
	}

	ticketRepo, adminRepo := buildRepositories(cfg, pg)
	sequences := buildSequenceStore(cfg, pg, redis)

	cat := catalog.Default()
	if cfg.Tickets.CatalogPath != "" {
		if cat, err = catalog.Load(cfg.Tickets.CatalogPath); err != nil {
			logger.Fatal("failed to load category catalog", zap.Error(err))
		}
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	ticketService := service.NewTicketService(cfg.Tickets, service.TicketDependencies{
		TicketRepo: ticketRepo,
		Sequences:  sequences,
		Catalog:    cat,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	adminService := service.NewAdminService(*cfg, service.AdminDependencies{AdminRepo: adminRepo, Logger: logger})
	if err := adminService.SeedAdmins(ctx, cfg.Admins); err != nil {
		logger.Fatal("failed to seed admins", zap.Error(err))
	}
	authService := service.NewAuthService(*cfg, service.AuthDependencies{AdminRepo: adminRepo})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), adminRepo)

	service.NewNotificationService(dispatcher, logger, cfg.Notification, redis).RegisterHandlers()

	if cfg.Scheduler.Enabled {
		scheduler, err := worker.NewMaintenanceScheduler(cfg.Scheduler, ticketService, logger)
		if err != nil {
			logger.Fatal("failed to build scheduler", zap.Error(err))
		}
		go func() {
			if err := scheduler.Run(ctx); err != nil {
				logger.Error("maintenance scheduler", zap.Error(err))
			}
		}()
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, time.Duration(cfg.App.RequestTimeoutSeconds)*time.Second)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Incidents:      handlers.NewTicketsHandler(domain.KindIncident, ticketService),
		Changes:        handlers.NewTicketsHandler(domain.KindChangeRequest, ticketService),
		Maintenance:    handlers.NewTicketsHandler(domain.KindMaintenanceTask, ticketService),
		Admins:         handlers.NewAdminHandler(authService, adminService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func buildRepositories(cfg *config.Config, pg *persistence.Postgres) (repository.TicketRepository, repository.AdminRepository) {
	if cfg.Tickets.Storage == "postgres" {
		pool := pg.PoolHandle()
		return repository.NewPostgresTicketRepository(pool), repository.NewAdminRepository(pool)
	}
	return repository.NewMemoryTicketRepository(), repository.NewMemoryAdminRepository()
}

func buildSequenceStore(cfg *config.Config, pg *persistence.Postgres, redis *persistence.Redis) repository.SequenceStore {
	switch cfg.Tickets.Sequences {
	case "redis":
		return repository.NewRedisSequenceStore(redis.Client, cfg.Tickets.RedisKeyPrefix)
	case "postgres":
		return repository.NewPostgresSequenceStore(pg.PoolHandle())
	default:
		return repository.NewMemorySequenceStore()
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
