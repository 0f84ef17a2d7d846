package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
)

type fakeSweeper struct {
	cutoff time.Time
	reason string
	swept  int64
	err    error
}

func (f *fakeSweeper) FailPendingBefore(_ context.Context, cutoff time.Time, reason string) (int64, error) {
	f.cutoff = cutoff
	f.reason = reason
	return f.swept, f.err
}

func TestPaymentSweepJobUsesStaleCutoff(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeSweeper{swept: 2}
	job, err := NewPaymentSweepJob(PaymentSweepJobParams{Logger: logger.Nop(), Repository: repo, StaleAfter: 30 * time.Minute})
	require.NoError(t, err)
	job.(*paymentSweepJob).now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.Add(-30*time.Minute), repo.cutoff)
	assert.Equal(t, abandonedPaymentReason, repo.reason)
}

func TestPaymentSweepJobWrapsError(t *testing.T) {
	job, err := NewPaymentSweepJob(PaymentSweepJobParams{Logger: logger.Nop(), Repository: &fakeSweeper{err: errors.New("db down")}})
	require.NoError(t, err)
	assert.ErrorContains(t, job.Run(context.Background()), "payment sweep")
}
