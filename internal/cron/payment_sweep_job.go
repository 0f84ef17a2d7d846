package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
)

const (
	defaultPaymentStaleAfter = 15 * time.Minute
	abandonedPaymentReason   = "abandoned before the gateway answered"
)

type pendingPaymentSweeper interface {
	FailPendingBefore(ctx context.Context, cutoff time.Time, reason string) (int64, error)
}

type PaymentSweepJobParams struct {
	Logger     *logger.Logger
	Repository pendingPaymentSweeper
	StaleAfter time.Duration
}

// NewPaymentSweepJob fails payment attempts left pending by a request that
// died mid-charge, so the payment history stops showing them as in flight.
func NewPaymentSweepJob(params PaymentSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if params.StaleAfter <= 0 {
		params.StaleAfter = defaultPaymentStaleAfter
	}
	return &paymentSweepJob{
		logg:       params.Logger,
		repo:       params.Repository,
		staleAfter: params.StaleAfter,
		now:        time.Now,
	}, nil
}

type paymentSweepJob struct {
	logg       *logger.Logger
	repo       pendingPaymentSweeper
	staleAfter time.Duration
	now        func() time.Time
}

func (j *paymentSweepJob) Name() string { return "payment-sweep" }

func (j *paymentSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.staleAfter)
	swept, err := j.repo.FailPendingBefore(ctx, cutoff, abandonedPaymentReason)
	if err != nil {
		return fmt.Errorf("payment sweep: %w", err)
	}
	if swept > 0 {
		j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
			"cutoff":     cutoff,
			"rows_swept": swept,
		}), "failed abandoned payment attempts")
	}
	return nil
}
