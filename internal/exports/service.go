package exports

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wayfarer-backend/internal/pricing"
	"github.com/angelmondragon/wayfarer-backend/internal/trips"
	"github.com/angelmondragon/wayfarer-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
)

var unsafeFilename = regexp.MustCompile(`[^a-z0-9]+`)

type tripGetter interface {
	Get(ctx context.Context, ownerID, tripID string) (*trips.SavedTrip, error)
}

type paymentGetter interface {
	Get(ctx context.Context, userID, transactionID string) (*models.PaymentTransaction, error)
}

// Document is a rendered export.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Service exports a user's committed itinerary.
type Service struct {
	trips    tripGetter
	payments paymentGetter
	renderer *Renderer
	logg     *logger.Logger
}

func NewService(trips tripGetter, payments paymentGetter, renderer *Renderer, logg *logger.Logger) (*Service, error) {
	if trips == nil {
		return nil, fmt.Errorf("trip service required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment service required")
	}
	if renderer == nil {
		renderer = NewRenderer()
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{trips: trips, payments: payments, renderer: renderer, logg: logg}, nil
}

// ItineraryPDF renders the persisted itinerary, ignoring any unsaved draft.
func (s *Service) ItineraryPDF(ctx context.Context, userID, tripID string) (*Document, error) {
	trip, err := s.trips.Get(ctx, userID, tripID)
	if err != nil {
		return nil, err
	}
	b, err := s.breakdown(ctx, userID, trip)
	if err != nil {
		return nil, err
	}
	body, err := s.renderer.Render(*trip, b)
	if err != nil {
		s.logg.Error(s.logg.WithTripID(ctx, tripID), "itinerary export failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render itinerary")
	}
	return &Document{
		Filename:    filename(trip.Itinerary.TripName, trip.ID),
		ContentType: "application/pdf",
		Body:        body,
	}, nil
}

// breakdown quotes an unbooked trip without discount. A booked trip shows
// what was actually charged.
func (s *Service) breakdown(ctx context.Context, userID string, trip *trips.SavedTrip) (pricing.Breakdown, error) {
	if !trip.IsBooked || trip.TransactionID == "" {
		return pricing.Compute(trip.Itinerary, &trip.Preferences, decimal.Zero), nil
	}
	txn, err := s.payments.Get(ctx, userID, trip.TransactionID)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	return charged(trip, txn), nil
}

func charged(trip *trips.SavedTrip, txn *models.PaymentTransaction) pricing.Breakdown {
	b := pricing.Compute(trip.Itinerary, &trip.Preferences, txn.Discount)
	b.FinalTotal = txn.Amount
	b.PerPersonCost = txn.Amount.Div(decimal.NewFromInt(int64(b.TotalTravelers))).Round(0)
	return b
}

func filename(name, id string) string {
	slug := strings.Trim(unsafeFilename.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		slug = "itinerary-" + id
	}
	return slug + ".pdf"
}
