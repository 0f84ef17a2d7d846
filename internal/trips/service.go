package trips

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
	"github.com/angelmondragon/wayfarer-backend/pkg/pagination"
)

// Service manages a user's saved trips.
type Service interface {
	Generate(ctx context.Context, ownerID string, prefs TripPreferences) (*SavedTrip, error)
	List(ctx context.Context, ownerID string, params pagination.Params) (pagination.Page[SavedTrip], error)
	Get(ctx context.Context, ownerID, tripID string) (*SavedTrip, error)
	Delete(ctx context.Context, ownerID, tripID string) error
	// CommitItinerary persists an edited itinerary if the trip is still at expectedVersion.
	CommitItinerary(ctx context.Context, ownerID, tripID string, expectedVersion int64, it Itinerary) (*SavedTrip, error)
	// MarkBooked commits the itinerary and records the booking transaction.
	MarkBooked(ctx context.Context, ownerID, tripID string, expectedVersion int64, it Itinerary, transactionID string) (*SavedTrip, error)
}

// ServiceParams wires the trip service.
type ServiceParams struct {
	Repo      Repository
	Generator Generator
	Covers    CoverFinder
	Logger    *logger.Logger
	Now       func() time.Time
	// Backoff builds the retry policy for persistence writes.
	Backoff func() retry.Backoff
}

type service struct {
	repo      Repository
	generator Generator
	covers    CoverFinder
	logg      *logger.Logger
	now       func() time.Time
	backoff   func() retry.Backoff
}

var errStaleVersion = errors.New("stale trip version")

// NewService builds the trip service. Generator and Covers are optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("trip repository required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	if params.Backoff == nil {
		params.Backoff = func() retry.Backoff {
			return retry.WithMaxRetries(2, retry.NewExponential(50*time.Millisecond))
		}
	}
	return &service{
		repo:      params.Repo,
		generator: params.Generator,
		covers:    params.Covers,
		logg:      params.Logger,
		now:       params.Now,
		backoff:   params.Backoff,
	}, nil
}

func (s *service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *service) Generate(ctx context.Context, ownerID string, prefs TripPreferences) (*SavedTrip, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner id is required")
	}
	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	if s.generator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "itinerary generation is not configured")
	}

	it, err := s.generator.GenerateItinerary(ctx, prefs)
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "itinerary generation failed")
		}
		return nil, err
	}
	if s.covers != nil && it.CoverImageURL == "" {
		url, err := s.covers.CoverURL(ctx, prefs.Destination)
		if err != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"destination": prefs.Destination,
				"error":       err.Error(),
			}), "cover image lookup failed")
		} else {
			it.CoverImageURL = url
		}
	}

	now := s.timestamp()
	trip := SavedTrip{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Itinerary:   *it,
		Preferences: prefs,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, trip); err != nil {
		if errors.Is(err, ErrUnstorableAmount) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generated itinerary amount cannot be stored")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save trip")
	}
	s.logg.Info(s.logg.WithTripID(ctx, trip.ID), "trip generated")
	return &trip, nil
}

func (s *service) List(ctx context.Context, ownerID string, params pagination.Params) (pagination.Page[SavedTrip], error) {
	if strings.TrimSpace(ownerID) == "" {
		return pagination.Page[SavedTrip]{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner id is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[SavedTrip]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	items, err := s.repo.ListByOwner(ctx, ownerID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return pagination.Page[SavedTrip]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list trips")
	}
	return pagination.Trim(items, params.Limit, func(t SavedTrip) pagination.Cursor {
		id, _ := uuid.Parse(t.ID)
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: id}
	}), nil
}

func (s *service) Get(ctx context.Context, ownerID, tripID string) (*SavedTrip, error) {
	if strings.TrimSpace(tripID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "trip id is required")
	}
	trip, err := s.repo.Get(ctx, tripID)
	if errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "trip not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trip")
	}
	if trip.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "trip belongs to another user")
	}
	return trip, nil
}

func (s *service) Delete(ctx context.Context, ownerID, tripID string) error {
	if _, err := s.Get(ctx, ownerID, tripID); err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, tripID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete trip")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "trip not found")
	}
	s.logg.Info(s.logg.WithTripID(ctx, tripID), "trip deleted")
	return nil
}

func (s *service) CommitItinerary(ctx context.Context, ownerID, tripID string, expectedVersion int64, it Itinerary) (*SavedTrip, error) {
	current, err := s.Get(ctx, ownerID, tripID)
	if err != nil {
		return nil, err
	}
	if current.IsBooked {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "booked trips cannot be edited")
	}
	next, err := s.nextVersion(*current, expectedVersion, it)
	if err != nil {
		return nil, err
	}
	if err := s.replace(ctx, next, expectedVersion); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *service) MarkBooked(ctx context.Context, ownerID, tripID string, expectedVersion int64, it Itinerary, transactionID string) (*SavedTrip, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	current, err := s.Get(ctx, ownerID, tripID)
	if err != nil {
		return nil, err
	}
	if current.IsBooked {
		if current.TransactionID == transactionID {
			return current, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "trip is already booked")
	}
	next, err := s.nextVersion(*current, expectedVersion, it)
	if err != nil {
		return nil, err
	}
	next.IsBooked = true
	next.TransactionID = transactionID
	if err := s.replace(ctx, next, expectedVersion); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(s.logg.WithTripID(ctx, tripID), map[string]any{
		"transaction_id": transactionID,
	}), "trip booked")
	return &next, nil
}

func (s *service) nextVersion(current SavedTrip, expectedVersion int64, it Itinerary) (SavedTrip, error) {
	if current.Version != expectedVersion {
		return SavedTrip{}, staleError(current.Version)
	}
	for _, day := range it.Days {
		for _, a := range day.Activities {
			if err := CheckCost(a.EstimatedCost); err != nil {
				return SavedTrip{}, pkgerrors.New(pkgerrors.CodeValidation, "estimated cost "+err.Error())
			}
		}
	}
	next := current
	next.Itinerary = it.Clone()
	next.Itinerary.RecomputeTotal()
	next.Version = expectedVersion + 1
	next.UpdatedAt = s.timestamp()
	return next, nil
}

// replace writes next with a version check, retrying transient store errors.
func (s *service) replace(ctx context.Context, next SavedTrip, expectedVersion int64) error {
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		ok, err := s.repo.Replace(ctx, next, expectedVersion)
		if errors.Is(err, ErrUnstorableAmount) {
			return err
		}
		if err != nil {
			return retry.RetryableError(err)
		}
		if !ok {
			return errStaleVersion
		}
		return nil
	})
	if errors.Is(err, errStaleVersion) {
		latest, getErr := s.repo.Get(ctx, next.ID)
		if errors.Is(getErr, ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "trip not found")
		}
		if getErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, getErr, "load trip")
		}
		return staleError(latest.Version)
	}
	if errors.Is(err, ErrUnstorableAmount) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "itinerary amount cannot be stored")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save trip")
	}
	return nil
}

func staleError(currentVersion int64) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "trip was changed by another session").
		WithDetails(map[string]any{"currentVersion": currentVersion})
}
