package trips

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
)

func samplePreferences() TripPreferences {
	return TripPreferences{
		Origin:       "Mumbai",
		Destination:  "Goa",
		StartDate:    "2024-12-01",
		EndDate:      "2024-12-03",
		BudgetTier:   enums.BudgetTierModerate,
		TravelerType: enums.TravelerSolo,
		Adults:       1,
	}
}

func sampleItinerary() Itinerary {
	it := Itinerary{
		TripName:            "Goa Escape",
		DestinationOverview: "Beaches and forts",
		Currency:            "INR",
		Days: []DayPlan{
			{Day: 1, Theme: "Arrival", Activities: []Activity{
				{Time: "10:00", Name: "Check in", Location: "Panaji", EstimatedCost: decimal.NewFromInt(1000)},
			}},
			{Day: 2, Theme: "Beaches", Activities: []Activity{
				{Time: "09:00", Name: "Baga beach", Location: "Baga", EstimatedCost: decimal.NewFromInt(2000)},
			}},
		},
	}
	it.RecomputeTotal()
	return it
}

type stubGenerator struct {
	it  *Itinerary
	err error
}

func (g stubGenerator) GenerateItinerary(context.Context, TripPreferences) (*Itinerary, error) {
	if g.err != nil {
		return nil, g.err
	}
	out := g.it.Clone()
	return &out, nil
}

type stubCovers struct {
	url string
	err error
}

func (c stubCovers) CoverURL(context.Context, string) (string, error) {
	return c.url, c.err
}

func fixedClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}
