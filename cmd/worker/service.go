package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/wayfarer-backend/internal/cron"
	"github.com/angelmondragon/wayfarer-backend/internal/notifications"
	"github.com/angelmondragon/wayfarer-backend/pkg/db"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
	"github.com/angelmondragon/wayfarer-backend/pkg/pubsub"
	"github.com/angelmondragon/wayfarer-backend/pkg/redis"
)

type ServiceParams struct {
	Logger               *logger.Logger
	DB                   *db.Client
	Redis                *redis.Client
	PubSub               *pubsub.Client
	ConfirmationConsumer *notifications.Consumer
	MaintenanceScheduler *cron.Service
}

type Service struct {
	logg        *logger.Logger
	db          *db.Client
	redis       *redis.Client
	pubsub      *pubsub.Client
	consumer    *notifications.Consumer
	maintenance *cron.Service
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Redis == nil:
		return nil, errors.New("redis client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.ConfirmationConsumer == nil:
		return nil, errors.New("confirmation consumer is required")
	case params.MaintenanceScheduler == nil:
		return nil, errors.New("maintenance scheduler is required")
	}
	return &Service{
		logg:        params.Logger,
		db:          params.DB,
		redis:       params.Redis,
		pubsub:      params.PubSub,
		consumer:    params.ConfirmationConsumer,
		maintenance: params.MaintenanceScheduler,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "pubsub", s.pubsub.Ping); err != nil {
		return err
	}
	if err := s.pubsub.EnsureBookingSubscription(ctx); err != nil {
		s.logg.Error(ctx, "booking subscription missing", err)
		return err
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

// Run blocks until ctx ends or either loop exits with an error.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- s.consumer.Run(ctx)
	}()
	go func() {
		errCh <- s.maintenance.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		s.logg.Info(ctx, "worker context canceled")
		return ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logg.Error(ctx, "worker loop stopped unexpectedly", err)
		}
		return err
	}
}
