package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/calculation-service/internal/api/http"
	"github.com/spec-kit/calculation-service/internal/api/http/handlers"
	"github.com/spec-kit/calculation-service/internal/auth"
	"github.com/spec-kit/calculation-service/internal/config"
	"github.com/spec-kit/calculation-service/internal/events"
	"github.com/spec-kit/calculation-service/internal/observability"
	"github.com/spec-kit/calculation-service/internal/persistence"
	"github.com/spec-kit/calculation-service/internal/repository"
	"github.com/spec-kit/calculation-service/internal/service"
	"github.com/spec-kit/calculation-service/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	calcRepo := repository.NewCalculationRepository(pool)

	blacklist := auth.NewBlacklist(redis.Client)
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:   userRepo,
		Revoker:    blacklist,
		Dispatcher: dispatcher,
	})
	calcService := service.NewCalculationService(calcRepo, dispatcher)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	resolver := auth.NewResolver(authService.TokenManager(), userRepo, blacklist)
	authMiddleware := auth.NewMiddleware(resolver)

	metrics := observability.NewMetrics()

	engine := html.New(cfg.App.TemplatesDir, ".html")
	app := fiber.New(fiber.Config{Views: engine})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	authHandler := handlers.NewAuthHandler(authService)
	calcHandler := handlers.NewCalculationsHandler(calcService)
	pagesHandler := handlers.NewPagesHandler(calcService, cfg.App.Name)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Auth:           authHandler,
		Calculations:   calcHandler,
		Pages:          pagesHandler,
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
