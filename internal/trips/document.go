package trips

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
)

const collection = "trips"

type activityDocument struct {
	Time          string               `bson:"time"`
	Name          string               `bson:"name"`
	Description   string               `bson:"description"`
	Location      string               `bson:"location"`
	EstimatedCost primitive.Decimal128 `bson:"estimated_cost"`
}

type dayDocument struct {
	Day        int                `bson:"day"`
	Theme      string             `bson:"theme"`
	Activities []activityDocument `bson:"activities"`
}

type itineraryDocument struct {
	TripName            string                 `bson:"trip_name"`
	DestinationOverview string                 `bson:"destination_overview"`
	Currency            string                 `bson:"currency"`
	CurrencyAmounts     []primitive.Decimal128 `bson:"currency_amounts,omitempty"`
	Days                []dayDocument          `bson:"days"`
	TotalEstimatedCost  primitive.Decimal128   `bson:"total_estimated_cost"`
	CoverImageURL       string                 `bson:"cover_image_url,omitempty"`
}

type preferencesDocument struct {
	Origin                 string                `bson:"origin"`
	Destination            string                `bson:"destination"`
	AdditionalDestinations []string              `bson:"additional_destinations,omitempty"`
	StartDate              string                `bson:"start_date"`
	EndDate                string                `bson:"end_date"`
	BudgetTier             enums.BudgetTier      `bson:"budget_tier"`
	Budget                 primitive.Decimal128  `bson:"budget"`
	TravelerType           enums.TravelerType    `bson:"traveler_type"`
	Adults                 int                   `bson:"adults"`
	Children               int                   `bson:"children"`
	Seniors                int                   `bson:"seniors"`
	Infants                int                   `bson:"infants"`
	TransportModes         []enums.TransportMode `bson:"transport_modes,omitempty"`
	HireGuide              bool                  `bson:"hire_guide"`
	Interests              []string              `bson:"interests,omitempty"`
}

type tripDocument struct {
	ID            string              `bson:"_id"`
	OwnerID       string              `bson:"owner_id"`
	Itinerary     itineraryDocument   `bson:"itinerary"`
	Preferences   preferencesDocument `bson:"preferences"`
	IsBooked      bool                `bson:"is_booked"`
	TransactionID string              `bson:"transaction_id,omitempty"`
	Version       int64               `bson:"version"`
	CreatedAt     time.Time           `bson:"created_at"`
	UpdatedAt     time.Time           `bson:"updated_at"`
}

// ErrUnstorableAmount is returned for amounts Decimal128 cannot hold exactly.
var ErrUnstorableAmount = errors.New("amount cannot be stored")

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("%w: %s", ErrUnstorableAmount, d.String())
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode stored amount %s: %w", v.String(), err)
	}
	return d, nil
}

func toItineraryDocument(it Itinerary) (itineraryDocument, error) {
	total, err := toDecimal128(it.TotalEstimatedCost)
	if err != nil {
		return itineraryDocument{}, err
	}
	doc := itineraryDocument{
		TripName:            it.TripName,
		DestinationOverview: it.DestinationOverview,
		Currency:            it.Currency,
		Days:                make([]dayDocument, 0, len(it.Days)),
		TotalEstimatedCost:  total,
		CoverImageURL:       it.CoverImageURL,
	}
	for _, amount := range it.CurrencyAmounts {
		v, err := toDecimal128(amount)
		if err != nil {
			return itineraryDocument{}, err
		}
		doc.CurrencyAmounts = append(doc.CurrencyAmounts, v)
	}
	for _, day := range it.Days {
		dd := dayDocument{Day: day.Day, Theme: day.Theme, Activities: make([]activityDocument, 0, len(day.Activities))}
		for _, a := range day.Activities {
			cost, err := toDecimal128(a.EstimatedCost)
			if err != nil {
				return itineraryDocument{}, err
			}
			dd.Activities = append(dd.Activities, activityDocument{
				Time:          a.Time,
				Name:          a.Name,
				Description:   a.Description,
				Location:      a.Location,
				EstimatedCost: cost,
			})
		}
		doc.Days = append(doc.Days, dd)
	}
	return doc, nil
}

func (doc itineraryDocument) toItinerary() (Itinerary, error) {
	total, err := fromDecimal128(doc.TotalEstimatedCost)
	if err != nil {
		return Itinerary{}, err
	}
	it := Itinerary{
		TripName:            doc.TripName,
		DestinationOverview: doc.DestinationOverview,
		Currency:            doc.Currency,
		Days:                make([]DayPlan, 0, len(doc.Days)),
		TotalEstimatedCost:  total,
		CoverImageURL:       doc.CoverImageURL,
	}
	for _, amount := range doc.CurrencyAmounts {
		v, err := fromDecimal128(amount)
		if err != nil {
			return Itinerary{}, err
		}
		it.CurrencyAmounts = append(it.CurrencyAmounts, v)
	}
	for _, dd := range doc.Days {
		day := DayPlan{Day: dd.Day, Theme: dd.Theme, Activities: make([]Activity, 0, len(dd.Activities))}
		for _, a := range dd.Activities {
			cost, err := fromDecimal128(a.EstimatedCost)
			if err != nil {
				return Itinerary{}, err
			}
			day.Activities = append(day.Activities, Activity{
				Time:          a.Time,
				Name:          a.Name,
				Description:   a.Description,
				Location:      a.Location,
				EstimatedCost: cost,
			})
		}
		it.Days = append(it.Days, day)
	}
	return it, nil
}

func toPreferencesDocument(p TripPreferences) (preferencesDocument, error) {
	budget, err := toDecimal128(p.Budget)
	if err != nil {
		return preferencesDocument{}, err
	}
	return preferencesDocument{
		Origin:                 p.Origin,
		Destination:            p.Destination,
		AdditionalDestinations: p.AdditionalDestinations,
		StartDate:              p.StartDate,
		EndDate:                p.EndDate,
		BudgetTier:             p.BudgetTier,
		Budget:                 budget,
		TravelerType:           p.TravelerType,
		Adults:                 p.Adults,
		Children:               p.Children,
		Seniors:                p.Seniors,
		Infants:                p.Infants,
		TransportModes:         p.TransportModes,
		HireGuide:              p.HireGuide,
		Interests:              p.Interests,
	}, nil
}

func (doc preferencesDocument) toPreferences() (TripPreferences, error) {
	budget, err := fromDecimal128(doc.Budget)
	if err != nil {
		return TripPreferences{}, err
	}
	return TripPreferences{
		Origin:                 doc.Origin,
		Destination:            doc.Destination,
		AdditionalDestinations: doc.AdditionalDestinations,
		StartDate:              doc.StartDate,
		EndDate:                doc.EndDate,
		BudgetTier:             doc.BudgetTier,
		Budget:                 budget,
		TravelerType:           doc.TravelerType,
		Adults:                 doc.Adults,
		Children:               doc.Children,
		Seniors:                doc.Seniors,
		Infants:                doc.Infants,
		TransportModes:         doc.TransportModes,
		HireGuide:              doc.HireGuide,
		Interests:              doc.Interests,
	}, nil
}

// toDocument fails rather than store an amount it would have to alter.
func toDocument(t SavedTrip) (tripDocument, error) {
	itinerary, err := toItineraryDocument(t.Itinerary)
	if err != nil {
		return tripDocument{}, err
	}
	prefs, err := toPreferencesDocument(t.Preferences)
	if err != nil {
		return tripDocument{}, err
	}
	return tripDocument{
		ID:            t.ID,
		OwnerID:       t.OwnerID,
		Itinerary:     itinerary,
		Preferences:   prefs,
		IsBooked:      t.IsBooked,
		TransactionID: t.TransactionID,
		Version:       t.Version,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}, nil
}

func (doc tripDocument) toTrip() (SavedTrip, error) {
	itinerary, err := doc.Itinerary.toItinerary()
	if err != nil {
		return SavedTrip{}, fmt.Errorf("trip %s: %w", doc.ID, err)
	}
	prefs, err := doc.Preferences.toPreferences()
	if err != nil {
		return SavedTrip{}, fmt.Errorf("trip %s: %w", doc.ID, err)
	}
	return SavedTrip{
		ID:            doc.ID,
		OwnerID:       doc.OwnerID,
		Itinerary:     itinerary,
		Preferences:   prefs,
		IsBooked:      doc.IsBooked,
		TransactionID: doc.TransactionID,
		Version:       doc.Version,
		CreatedAt:     doc.CreatedAt.UTC(),
		UpdatedAt:     doc.UpdatedAt.UTC(),
	}, nil
}
