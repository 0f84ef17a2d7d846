package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wayfarer-backend/api/controllers"
	"github.com/angelmondragon/wayfarer-backend/api/routes"
	"github.com/angelmondragon/wayfarer-backend/internal/assistant"
	"github.com/angelmondragon/wayfarer-backend/internal/booking"
	"github.com/angelmondragon/wayfarer-backend/internal/chat"
	"github.com/angelmondragon/wayfarer-backend/internal/communities"
	"github.com/angelmondragon/wayfarer-backend/internal/exports"
	"github.com/angelmondragon/wayfarer-backend/internal/notifications"
	"github.com/angelmondragon/wayfarer-backend/internal/payments"
	"github.com/angelmondragon/wayfarer-backend/internal/places"
	"github.com/angelmondragon/wayfarer-backend/internal/pricing"
	"github.com/angelmondragon/wayfarer-backend/internal/trips"
	"github.com/angelmondragon/wayfarer-backend/internal/wallet"
	"github.com/angelmondragon/wayfarer-backend/pkg/ai"
	"github.com/angelmondragon/wayfarer-backend/pkg/config"
	"github.com/angelmondragon/wayfarer-backend/pkg/db"
	"github.com/angelmondragon/wayfarer-backend/pkg/docstore"
	"github.com/angelmondragon/wayfarer-backend/pkg/images"
	"github.com/angelmondragon/wayfarer-backend/pkg/instance"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
	"github.com/angelmondragon/wayfarer-backend/pkg/mailer"
	"github.com/angelmondragon/wayfarer-backend/pkg/maps"
	"github.com/angelmondragon/wayfarer-backend/pkg/metrics"
	"github.com/angelmondragon/wayfarer-backend/pkg/migrate"
	"github.com/angelmondragon/wayfarer-backend/pkg/outbox"
	"github.com/angelmondragon/wayfarer-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	decimal.MarshalJSONWithoutQuotes = true

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

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	mongoStore, err := docstore.Connect(context.Background(), cfg.Mongo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap mongo", err)
		os.Exit(1)
	}
	defer func() {
		if err := mongoStore.Close(context.Background()); err != nil {
			logg.Error(context.Background(), "error closing mongo", err)
		}
	}()

	if err := docstore.EnsureIndexes(context.Background(), mongoStore,
		trips.Indexes, chat.Indexes, communities.Indexes, assistant.Indexes,
	); err != nil {
		logg.Error(context.Background(), "failed to ensure mongo indexes", err)
		os.Exit(1)
	}

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

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tripParams := trips.ServiceParams{
		Repo:   trips.NewRepository(mongoStore),
		Logger: logg,
	}
	var model *ai.Client
	if cfg.AI.APIKey != "" {
		model, err = ai.NewClient(cfg.AI.APIKey,
			ai.WithBaseURL(cfg.AI.BaseURL),
			ai.WithModel(cfg.AI.Model),
			ai.WithTimeout(cfg.AI.Timeout),
		)
		if err != nil {
			logg.Error(context.Background(), "failed to create ai client", err)
			os.Exit(1)
		}
		generator, err := trips.NewAIGenerator(model, cfg.AI.DefaultCurrency)
		if err != nil {
			logg.Error(context.Background(), "failed to create itinerary generator", err)
			os.Exit(1)
		}
		tripParams.Generator = generator
	} else {
		logg.Warn(context.Background(), "ai api key not set; itinerary generation and assistant disabled")
	}
	if cfg.Images.AccessKey != "" {
		covers, err := images.NewClient(cfg.Images.AccessKey, images.WithBaseURL(cfg.Images.BaseURL))
		if err != nil {
			logg.Error(context.Background(), "failed to create image search client", err)
			os.Exit(1)
		}
		tripParams.Covers = covers
	}
	tripService, err := trips.NewService(tripParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create trip service", err)
		os.Exit(1)
	}

	walletService, err := wallet.NewService(wallet.NewRepository(dbClient.DB()), cfg.Booking.OpeningBalance(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		Repo:    payments.NewRepository(dbClient.DB()),
		Gateway: payments.NewSimulatedGateway(cfg.Booking.PaymentDelay),
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

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

	bookingService, err := booking.NewService(booking.ServiceParams{
		Trips:    tripService,
		Sessions: booking.NewRedisSessionStore(redisClient, cfg.Booking.SessionTTL),
		Wallet:   walletService,
		Payments: paymentService,
		Promos:   pricing.NewStaticPromo(cfg.Booking.PromoCode, cfg.Booking.PromoRate()),
		Events:   outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Tx:       dbClient,
		Notifier: notifier,
		Metrics:  metrics.NewBookingMetrics(registry),
		Logger:   logg,
		PayLocks: booking.NewRedisPayLocks(redisClient, cfg.Booking.PaymentLockTTL),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create booking service", err)
		os.Exit(1)
	}

	exportService, err := exports.NewService(tripService, paymentService, exports.NewRenderer(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create export service", err)
		os.Exit(1)
	}

	var assistantService *assistant.Service
	if model != nil {
		assistantService, err = assistant.NewService(model, mongoStore, tripService, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create assistant service", err)
			os.Exit(1)
		}
	}

	communityService, err := communities.NewService(communities.ServiceParams{
		Repo:   communities.NewRepository(mongoStore),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create community service", err)
		os.Exit(1)
	}

	chatService, err := chat.NewService(mongoStore, communityService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create chat service", err)
		os.Exit(1)
	}

	var placeService places.Service
	if cfg.Places.APIKey != "" {
		placesClient, err := maps.NewClient(cfg.Places.APIKey, maps.WithBaseURL(cfg.Places.BaseURL))
		if err != nil {
			logg.Error(context.Background(), "failed to create places client", err)
			os.Exit(1)
		}
		placeService, err = places.NewService(placesClient, redisClient, cfg.Places.CacheTTL, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create destination service", err)
			os.Exit(1)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
	})

	router := routes.NewRouter(routes.Params{
		Config: cfg,
		Logger: logg,
		Pingers: map[string]controllers.Pinger{
			"postgres": dbClient,
			"redis":    redisClient,
			"mongo":    mongoStore,
		},
		Redis:       redisClient,
		Metrics:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Trips:       tripService,
		Exports:     exportService,
		Booking:     bookingService,
		Wallet:      walletService,
		Payments:    paymentService,
		Assistant:   assistantService,
		Communities: communityService,
		Chat:        chatService,
		Places:      placeService,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
