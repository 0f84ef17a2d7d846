package trips

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/wayfarer-backend/pkg/docstore"
	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
	"github.com/angelmondragon/wayfarer-backend/pkg/pagination"
)

type flakyRepo struct {
	Repository
	replaceFailures int
	replaceCalls    int
}

func (f *flakyRepo) Replace(ctx context.Context, trip SavedTrip, expectedVersion int64) (bool, error) {
	f.replaceCalls++
	if f.replaceCalls <= f.replaceFailures {
		return false, errors.New("socket closed")
	}
	return f.Repository.Replace(ctx, trip, expectedVersion)
}

func newTestService(t *testing.T, repo Repository, gen Generator, covers CoverFinder) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:      repo,
		Generator: gen,
		Covers:    covers,
		Now:       fixedClock(time.Date(2024, 11, 1, 9, 0, 0, 0, time.UTC)),
		Backoff: func() retry.Backoff {
			return retry.WithMaxRetries(2, retry.NewConstant(time.Millisecond))
		},
	})
	require.NoError(t, err)
	return svc
}

func generateTrip(t *testing.T, svc Service, owner string) *SavedTrip {
	t.Helper()
	trip, err := svc.Generate(context.Background(), owner, samplePreferences())
	require.NoError(t, err)
	return trip
}

func TestNewServiceRequiresRepo(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestGeneratePersistsTripWithCover(t *testing.T) {
	it := sampleItinerary()
	it.TotalEstimatedCost = decimal.NewFromInt(99)
	repo := NewRepository(docstore.NewMemory())
	svc := newTestService(t, repo, stubGenerator{it: &it}, stubCovers{url: "https://img.test/goa.jpg"})

	trip := generateTrip(t, svc, "user-1")
	assert.Equal(t, int64(1), trip.Version)
	assert.Equal(t, "https://img.test/goa.jpg", trip.Itinerary.CoverImageURL)
	assert.False(t, trip.IsBooked)

	stored, err := svc.Get(context.Background(), "user-1", trip.ID)
	require.NoError(t, err)
	assert.Equal(t, "Goa Escape", stored.Itinerary.TripName)
	assert.True(t, stored.Itinerary.TotalEstimatedCost.Equal(decimal.NewFromInt(99)))
	assert.True(t, trip.CreatedAt.Equal(stored.CreatedAt))
	assert.Len(t, stored.Itinerary.Days, 2)
}

func TestGenerateIgnoresCoverFailures(t *testing.T) {
	it := sampleItinerary()
	svc := newTestService(t, NewRepository(docstore.NewMemory()), stubGenerator{it: &it}, stubCovers{err: errors.New("rate limited")})

	trip := generateTrip(t, svc, "user-1")
	assert.Empty(t, trip.Itinerary.CoverImageURL)
}

func TestGenerateErrors(t *testing.T) {
	it := sampleItinerary()
	repo := NewRepository(docstore.NewMemory())

	svc := newTestService(t, repo, nil, nil)
	_, err := svc.Generate(context.Background(), "user-1", samplePreferences())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "unconfigured generator should be a validation error: %v", err)

	svc = newTestService(t, repo, stubGenerator{err: errors.New("boom")}, nil)
	_, err = svc.Generate(context.Background(), "user-1", samplePreferences())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	svc = newTestService(t, repo, stubGenerator{it: &it}, nil)
	bad := samplePreferences()
	bad.EndDate = "2024-11-01"
	_, err = svc.Generate(context.Background(), "user-1", bad)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Generate(context.Background(), "", samplePreferences())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestGetEnforcesOwnership(t *testing.T) {
	it := sampleItinerary()
	svc := newTestService(t, NewRepository(docstore.NewMemory()), stubGenerator{it: &it}, nil)
	trip := generateTrip(t, svc, "user-1")

	_, err := svc.Get(context.Background(), "user-2", trip.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Get(context.Background(), "user-1", "missing")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDelete(t *testing.T) {
	it := sampleItinerary()
	svc := newTestService(t, NewRepository(docstore.NewMemory()), stubGenerator{it: &it}, nil)
	trip := generateTrip(t, svc, "user-1")

	err := svc.Delete(context.Background(), "user-2", trip.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	require.NoError(t, svc.Delete(context.Background(), "user-1", trip.ID))
	_, err = svc.Get(context.Background(), "user-1", trip.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListPaginatesNewestFirst(t *testing.T) {
	it := sampleItinerary()
	svc := newTestService(t, NewRepository(docstore.NewMemory()), stubGenerator{it: &it}, nil)
	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, generateTrip(t, svc, "user-1").ID)
	}
	generateTrip(t, svc, "user-2")

	page, err := svc.List(context.Background(), "user-1", pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, ids[2], page.Items[0].ID)
	assert.Equal(t, ids[1], page.Items[1].ID)
	require.NotEmpty(t, page.NextCursor)

	page, err = svc.List(context.Background(), "user-1", pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, ids[0], page.Items[0].ID)
	assert.Empty(t, page.NextCursor)

	_, err = svc.List(context.Background(), "user-1", pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCommitItineraryBumpsVersionAndRecomputesTotal(t *testing.T) {
	it := sampleItinerary()
	svc := newTestService(t, NewRepository(docstore.NewMemory()), stubGenerator{it: &it}, nil)
	trip := generateTrip(t, svc, "user-1")

	edited := trip.Itinerary.Clone()
	edited.TripName = "Goa Again"
	edited.Days[0].Activities[0].EstimatedCost = decimal.NewFromInt(1500)
	edited.TotalEstimatedCost = decimal.Zero

	committed, err := svc.CommitItinerary(context.Background(), "user-1", trip.ID, trip.Version, edited)
	require.NoError(t, err)
	assert.Equal(t, int64(2), committed.Version)
	assert.True(t, committed.Itinerary.TotalEstimatedCost.Equal(decimal.NewFromInt(3500)))

	stored, err := svc.Get(context.Background(), "user-1", trip.ID)
	require.NoError(t, err)
	assert.Equal(t, "Goa Again", stored.Itinerary.TripName)
	assert.Equal(t, int64(2), stored.Version)
}

func TestCommitItineraryRejectsStaleVersion(t *testing.T) {
	it := sampleItinerary()
	svc := newTestService(t, NewRepository(docstore.NewMemory()), stubGenerator{it: &it}, nil)
	trip := generateTrip(t, svc, "user-1")

	_, err := svc.CommitItinerary(context.Background(), "user-1", trip.ID, trip.Version, trip.Itinerary)
	require.NoError(t, err)

	_, err = svc.CommitItinerary(context.Background(), "user-1", trip.ID, trip.Version, trip.Itinerary)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Equal(t, map[string]any{"currentVersion": int64(2)}, pkgerrors.As(err).Details())
}

func TestCommitItineraryRejectsConcurrentWriteBetweenReadAndWrite(t *testing.T) {
	it := sampleItinerary()
	base := NewRepository(docstore.NewMemory())
	svc := newTestService(t, base, stubGenerator{it: &it}, nil)
	trip := generateTrip(t, svc, "user-1")

	racing := &racingRepo{Repository: base}
	raced := newTestService(t, racing, nil, nil)

	_, err := raced.CommitItinerary(context.Background(), "user-1", trip.ID, trip.Version, trip.Itinerary)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

type racingRepo struct {
	Repository
	raced bool
}

func (r *racingRepo) Replace(ctx context.Context, trip SavedTrip, expectedVersion int64) (bool, error) {
	if !r.raced {
		r.raced = true
		other := trip
		other.Version = expectedVersion + 1
		if _, err := r.Repository.Replace(ctx, other, expectedVersion); err != nil {
			return false, err
		}
	}
	return r.Repository.Replace(ctx, trip, expectedVersion)
}

func TestCommitItineraryRetriesTransientFailures(t *testing.T) {
	it := sampleItinerary()
	base := NewRepository(docstore.NewMemory())
	svc := newTestService(t, base, stubGenerator{it: &it}, nil)
	trip := generateTrip(t, svc, "user-1")

	flaky := &flakyRepo{Repository: base, replaceFailures: 2}
	svc = newTestService(t, flaky, nil, nil)
	_, err := svc.CommitItinerary(context.Background(), "user-1", trip.ID, trip.Version, trip.Itinerary)
	require.NoError(t, err)
	assert.Equal(t, 3, flaky.replaceCalls)

	flaky = &flakyRepo{Repository: base, replaceFailures: 5}
	svc = newTestService(t, flaky, nil, nil)
	_, err = svc.CommitItinerary(context.Background(), "user-1", trip.ID, 2, trip.Itinerary)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Equal(t, 3, flaky.replaceCalls)
}

func TestCommitItineraryRejectsNegativeCosts(t *testing.T) {
	it := sampleItinerary()
	svc := newTestService(t, NewRepository(docstore.NewMemory()), stubGenerator{it: &it}, nil)
	trip := generateTrip(t, svc, "user-1")

	edited := trip.Itinerary.Clone()
	edited.Days[1].Activities[0].EstimatedCost = decimal.NewFromInt(-1)
	_, err := svc.CommitItinerary(context.Background(), "user-1", trip.ID, trip.Version, edited)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCommitItineraryRejectsSubCentCosts(t *testing.T) {
	it := sampleItinerary()
	svc := newTestService(t, NewRepository(docstore.NewMemory()), stubGenerator{it: &it}, nil)
	trip := generateTrip(t, svc, "user-1")

	edited := trip.Itinerary.Clone()
	edited.Days[1].Activities[0].EstimatedCost = decimal.RequireFromString("0.12345678901234567890123456789012345678901")
	_, err := svc.CommitItinerary(context.Background(), "user-1", trip.ID, trip.Version, edited)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	got, err := svc.Get(context.Background(), "user-1", trip.ID)
	require.NoError(t, err)
	assert.Equal(t, trip.Version, got.Version)
}

func TestMarkBooked(t *testing.T) {
	it := sampleItinerary()
	svc := newTestService(t, NewRepository(docstore.NewMemory()), stubGenerator{it: &it}, nil)
	trip := generateTrip(t, svc, "user-1")

	booked, err := svc.MarkBooked(context.Background(), "user-1", trip.ID, trip.Version, trip.Itinerary, "TXN-1")
	require.NoError(t, err)
	assert.True(t, booked.IsBooked)
	assert.Equal(t, "TXN-1", booked.TransactionID)

	again, err := svc.MarkBooked(context.Background(), "user-1", trip.ID, trip.Version, trip.Itinerary, "TXN-1")
	require.NoError(t, err)
	assert.Equal(t, booked.Version, again.Version)

	_, err = svc.MarkBooked(context.Background(), "user-1", trip.ID, booked.Version, trip.Itinerary, "TXN-2")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.CommitItinerary(context.Background(), "user-1", trip.ID, booked.Version, trip.Itinerary)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.MarkBooked(context.Background(), "user-1", trip.ID, booked.Version, trip.Itinerary, " ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
