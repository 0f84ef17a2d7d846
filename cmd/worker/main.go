package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/wayfarer-backend/internal/cron"
	"github.com/angelmondragon/wayfarer-backend/internal/notifications"
	"github.com/angelmondragon/wayfarer-backend/internal/payments"
	"github.com/angelmondragon/wayfarer-backend/pkg/config"
	"github.com/angelmondragon/wayfarer-backend/pkg/db"
	"github.com/angelmondragon/wayfarer-backend/pkg/instance"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
	"github.com/angelmondragon/wayfarer-backend/pkg/mailer"
	"github.com/angelmondragon/wayfarer-backend/pkg/metrics"
	"github.com/angelmondragon/wayfarer-backend/pkg/outbox"
	"github.com/angelmondragon/wayfarer-backend/pkg/pubsub"
	"github.com/angelmondragon/wayfarer-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	sender, err := mailer.New(cfg.SMTP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mailer", err)
		os.Exit(1)
	}
	notifier, err := notifications.NewService(sender, cfg.Booking.PaymentLinkBaseURL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}
	consumer, err := notifications.NewConsumer(notifier, pubsubClient.BookingSubscription(), redisClient, cfg.Booking.IdempotencyTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create confirmation consumer", err)
		os.Exit(1)
	}

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outbox.NewRepository(dbClient.DB()),
		MinAttempts: cfg.Outbox.MaxAttempts,
		DLQ:         outbox.NewDLQRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}
	sweep, err := cron.NewPaymentSweepJob(cron.PaymentSweepJobParams{
		Logger:     logg,
		Repository: payments.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment sweep job", err)
		os.Exit(1)
	}
	lock, err := redis.NewLock(redisClient, redisClient.LockKey("maintenance"), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create maintenance lock", err)
		os.Exit(1)
	}
	registry := prometheus.NewRegistry()
	scheduler, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweep, retention),
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(registry),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create maintenance scheduler", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Logger:               logg,
		DB:                   dbClient,
		Redis:                redisClient,
		PubSub:               pubsubClient,
		ConfirmationConsumer: consumer,
		MaintenanceScheduler: scheduler,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "worker",
		"instance":    instance.ID(),
	})
	logg.Info(ctx, "starting worker")

	if cfg.App.MetricsPort != "" {
		go func() {
			if err := metrics.Serve(ctx, ":"+cfg.App.MetricsPort, registry, logg); err != nil {
				logg.Error(ctx, "metrics listener stopped", err)
			}
		}()
	}

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "worker shutting down gracefully")
}
