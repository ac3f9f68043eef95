package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/kursadbilgin/push-relay/internal/config"
	"github.com/kursadbilgin/push-relay/internal/handler"
	"github.com/kursadbilgin/push-relay/internal/infra/postgresql"
	"github.com/kursadbilgin/push-relay/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/push-relay/internal/infra/redis"
	"github.com/kursadbilgin/push-relay/internal/observability"
	"github.com/kursadbilgin/push-relay/internal/push"
	"github.com/kursadbilgin/push-relay/internal/ratelimit"
	"github.com/kursadbilgin/push-relay/internal/repository"
	"github.com/kursadbilgin/push-relay/internal/service"
	"github.com/kursadbilgin/push-relay/internal/transport"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	// Redis is optional; without it delivery runs with an unbounded local
	// rate limiter.
	var rdb *goredis.Client
	var limiter ratelimit.RateLimiter = ratelimit.Noop{}
	if cfg.RedisURL != "" {
		rdb, err = infraredis.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis initialization failed", zap.Error(err))
		}
		defer rdb.Close()

		limiter, err = infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
		if err != nil {
			logger.Fatal("rate limiter initialization failed", zap.Error(err))
		}
	}

	pushTransport := push.NewWebPushTransport(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject)
	if !pushTransport.IsConfigured() {
		logger.Warn("vapid keys are not configured, pending jobs will be dead-lettered")
	}

	jobRepo := repository.NewGormJobRepo(db)
	endpointRepo := repository.NewGormEndpointRepo(db)
	metrics := observability.NewMetrics()

	deliverySvc, err := service.NewDeliveryService(jobRepo, endpointRepo, pushTransport, limiter, cfg.BatchSize, logger)
	if err != nil {
		logger.Fatal("delivery service initialization failed", zap.Error(err))
	}
	deliverySvc.SetMetrics(metrics)

	dispatcher, err := service.NewDispatcher(deliverySvc, cfg.PollInterval(), logger)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}

	notificationSvc, err := service.NewNotificationService(jobRepo, logger)
	if err != nil {
		logger.Fatal("notification service initialization failed", zap.Error(err))
	}
	subscriptionSvc, err := service.NewSubscriptionService(endpointRepo, logger)
	if err != nil {
		logger.Fatal("subscription service initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          transport.ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	app.Use(metrics.HTTPMiddleware())

	api := app.Group("/api")
	if err := handler.RegisterNotificationRoutes(api, notificationSvc); err != nil {
		logger.Fatal("failed to register notification routes", zap.Error(err))
	}
	if err := handler.RegisterSubscriptionRoutes(api, subscriptionSvc, pushTransport); err != nil {
		logger.Fatal("failed to register subscription routes", zap.Error(err))
	}
	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return dispatcher.Start(gctx)
	})

	g.Go(func() error {
		logger.Info("push-relay api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Fatal("push-relay terminated", zap.Error(err))
	}

	logger.Info("push-relay stopped")
}
