package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/account-console/internal/api/http"
	"github.com/spec-kit/account-console/internal/api/http/handlers"
	"github.com/spec-kit/account-console/internal/audit"
	"github.com/spec-kit/account-console/internal/auth"
	"github.com/spec-kit/account-console/internal/config"
	"github.com/spec-kit/account-console/internal/events"
	"github.com/spec-kit/account-console/internal/notify"
	"github.com/spec-kit/account-console/internal/observability"
	"github.com/spec-kit/account-console/internal/persistence"
	"github.com/spec-kit/account-console/internal/repository"
	"github.com/spec-kit/account-console/internal/service"
	"github.com/spec-kit/account-console/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	pool := pg.PoolHandle()
	accountRepo := repository.NewAccountRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	auditLogRepo := repository.NewAuditLogRepository(pool)
	tokenRepo := repository.NewVerificationTokenRepository(pool)
	locker := repository.NewAccountLocker(redis.Client, cfg.Console.LockTTL())
	recorder := audit.NewRecorder(auditLogRepo)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		AccountRepo: accountRepo,
		AdminRepo:   adminRepo,
	})
	accountService := service.NewAccountService(*cfg, service.AccountDependencies{
		AccountRepo:           accountRepo,
		VerificationTokenRepo: tokenRepo,
		AuditLogRepo:          auditLogRepo,
		Locker:                locker,
		Recorder:              recorder,
		Dispatcher:            dispatcher,
		Metrics:               metrics,
		Logger:                logger,
	})
	consoleService := service.NewAdminConsoleService(cfg.Console, service.AdminConsoleDependencies{
		AccountRepo:  accountRepo,
		AuditLogRepo: auditLogRepo,
		Locker:       locker,
		Recorder:     recorder,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})

	notificationWorker := worker.NewNotificationWorker(notify.NewSender(cfg.Notification, logger), cfg.Notification, logger)
	notificationWorker.Start(ctx)
	notificationService := service.NewNotificationService(dispatcher, notificationWorker, logger, cfg.Notification)
	notificationService.RegisterHandlers()

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), accountRepo, adminRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Users:          handlers.NewUsersHandler(accountService, authService),
		Admin:          handlers.NewAdminHandler(consoleService, authService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	cancel()
	notificationWorker.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
