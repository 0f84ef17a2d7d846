package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
)

const (
	outboxRetention   = 30 * 24 * time.Hour
	dlqRetention      = 90 * 24 * time.Hour
	outboxMinAttempts = 10
)

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxRetentionRepo
	Retention  time.Duration
	// MinAttempts marks rows the publisher gave up on; they are purged too.
	MinAttempts int
	// DLQ is optional; dead letters outlive their source rows by DLQRetention.
	DLQ          dlqRetentionRepo
	DLQRetention time.Duration
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type dlqRetentionRepo interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob purges booking events the publisher is done with.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.DB == nil:
		return nil, fmt.Errorf("db runner required")
	case params.Repository == nil:
		return nil, fmt.Errorf("outbox repository required")
	}
	if params.Retention <= 0 {
		params.Retention = outboxRetention
	}
	if params.MinAttempts <= 0 {
		params.MinAttempts = outboxMinAttempts
	}
	if params.DLQRetention <= 0 {
		params.DLQRetention = dlqRetention
	}
	return &outboxRetentionJob{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		retention:    params.Retention,
		minAttempts:  params.MinAttempts,
		dlq:          params.DLQ,
		dlqRetention: params.DLQRetention,
		now:          time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg         *logger.Logger
	db           txRunner
	repo         outboxRetentionRepo
	retention    time.Duration
	minAttempts  int
	dlq          dlqRetentionRepo
	dlqRetention time.Duration
	now          func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.retention)
	var deleted, dlqDeleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeletePublishedBefore(ctx, tx, cutoff, j.minAttempts)
		if err != nil {
			return err
		}
		deleted = rows
		if j.dlq == nil {
			return nil
		}
		dlqDeleted, err = j.dlq.DeleteFailedBefore(ctx, tx, now.Add(-j.dlqRetention))
		return err
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":           cutoff,
		"min_attempts":     j.minAttempts,
		"rows_deleted":     deleted,
		"dlq_rows_deleted": dlqDeleted,
	}), "outbox retention cleanup complete")
	return nil
}
