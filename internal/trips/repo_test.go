package trips

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/wayfarer-backend/pkg/docstore"
)

func TestRepositoryRoundTripsDecimals(t *testing.T) {
	repo := NewRepository(docstore.NewMemory())
	it := sampleItinerary()
	it.CurrencyAmounts = []decimal.Decimal{decimal.RequireFromString("83.25")}
	it.Days[0].Activities[0].EstimatedCost = decimal.RequireFromString("999.99")
	it.RecomputeTotal()

	trip := SavedTrip{
		ID:          uuid.NewString(),
		OwnerID:     "user-1",
		Itinerary:   it,
		Preferences: samplePreferences(),
		Version:     1,
		CreatedAt:   time.UnixMilli(1_700_000_000_000).UTC(),
	}
	require.NoError(t, repo.Create(context.Background(), trip))

	got, err := repo.Get(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.True(t, got.Itinerary.Days[0].Activities[0].EstimatedCost.Equal(decimal.RequireFromString("999.99")))
	assert.True(t, got.Itinerary.TotalEstimatedCost.Equal(decimal.RequireFromString("2999.99")))
	assert.True(t, got.Itinerary.CurrencyAmounts[0].Equal(decimal.RequireFromString("83.25")))
	assert.Equal(t, trip.Preferences.Destination, got.Preferences.Destination)

	_, err = repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryReplaceChecksVersion(t *testing.T) {
	repo := NewRepository(docstore.NewMemory())
	trip := SavedTrip{ID: uuid.NewString(), OwnerID: "user-1", Itinerary: sampleItinerary(), Version: 1}
	require.NoError(t, repo.Create(context.Background(), trip))

	next := trip
	next.Version = 2
	next.IsBooked = true
	ok, err := repo.Replace(context.Background(), next, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Replace(context.Background(), next, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.Get(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.True(t, got.IsBooked)
	assert.Equal(t, int64(2), got.Version)
}

func TestRepositoryRejectsUnstorableAmounts(t *testing.T) {
	repo := NewRepository(docstore.NewMemory())
	it := sampleItinerary()
	it.Days[0].Activities[0].EstimatedCost = decimal.RequireFromString("12345678901234567890123456789012345.7")
	trip := SavedTrip{ID: uuid.NewString(), OwnerID: "user-1", Itinerary: it, Version: 1}

	err := repo.Create(context.Background(), trip)
	require.ErrorIs(t, err, ErrUnstorableAmount)
	_, err = repo.Get(context.Background(), trip.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = toDecimal128(decimal.RequireFromString("0.12345678901234567890123456789012345678901"))
	assert.ErrorIs(t, err, ErrUnstorableAmount)
}
