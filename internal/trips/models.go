package trips

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
)

const dateLayout = "2006-01-02"

// CostScale is the number of decimal places an amount keeps.
const CostScale = 2

// MaxCost is the largest single amount the payment ledger can hold.
var MaxCost = decimal.RequireFromString("999999999999.99")

// CheckCost reports why d cannot be used as an activity cost, or nil.
func CheckCost(d decimal.Decimal) error {
	switch {
	case d.IsNegative():
		return errors.New("must not be negative")
	case !d.Equal(d.Round(CostScale)):
		return fmt.Errorf("must have at most %d decimal places", CostScale)
	case d.GreaterThan(MaxCost):
		return fmt.Errorf("must not exceed %s", MaxCost.StringFixed(CostScale))
	}
	return nil
}

// Activity is one scheduled item within a day.
type Activity struct {
	Time          string          `json:"time"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Location      string          `json:"location"`
	EstimatedCost decimal.Decimal `json:"estimatedCost"`
}

// DayPlan groups the activities of a single day.
type DayPlan struct {
	Day        int        `json:"day"`
	Theme      string     `json:"theme"`
	Activities []Activity `json:"activities"`
}

// Itinerary is the generated, editable plan for a trip.
type Itinerary struct {
	TripName            string            `json:"tripName"`
	DestinationOverview string            `json:"destinationOverview"`
	Currency            string            `json:"currency"`
	CurrencyAmounts     []decimal.Decimal `json:"currencyAmounts,omitempty"`
	Days                []DayPlan         `json:"days"`
	TotalEstimatedCost  decimal.Decimal   `json:"totalEstimatedCost"`
	CoverImageURL       string            `json:"coverImageUrl,omitempty"`
}

// ActivitySum adds up every activity cost.
func (it Itinerary) ActivitySum() decimal.Decimal {
	total := decimal.Zero
	for _, day := range it.Days {
		for _, a := range day.Activities {
			total = total.Add(a.EstimatedCost)
		}
	}
	return total
}

// RecomputeTotal stores the activity sum as the total estimated cost.
func (it *Itinerary) RecomputeTotal() {
	it.TotalEstimatedCost = it.ActivitySum()
}

// Clone returns a deep copy that shares no slices with it.
func (it Itinerary) Clone() Itinerary {
	out := it
	if it.CurrencyAmounts != nil {
		out.CurrencyAmounts = append([]decimal.Decimal(nil), it.CurrencyAmounts...)
	}
	if it.Days != nil {
		out.Days = make([]DayPlan, len(it.Days))
		for i, day := range it.Days {
			out.Days[i] = day
			if day.Activities != nil {
				out.Days[i].Activities = append([]Activity(nil), day.Activities...)
			}
		}
	}
	return out
}

// TripPreferences is the traveler's input to itinerary generation.
type TripPreferences struct {
	Origin                 string                `json:"origin" validate:"required,max=120"`
	Destination            string                `json:"destination" validate:"required,max=120"`
	AdditionalDestinations []string              `json:"additionalDestinations,omitempty" validate:"max=5,dive,required,max=120"`
	StartDate              string                `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate                string                `json:"endDate" validate:"required,datetime=2006-01-02"`
	BudgetTier             enums.BudgetTier      `json:"budgetTier" validate:"required"`
	Budget                 decimal.Decimal       `json:"budget"`
	TravelerType           enums.TravelerType    `json:"travelerType" validate:"required"`
	Adults                 int                   `json:"adults" validate:"gte=0,lte=50"`
	Children               int                   `json:"children" validate:"gte=0,lte=50"`
	Seniors                int                   `json:"seniors" validate:"gte=0,lte=50"`
	Infants                int                   `json:"infants" validate:"gte=0,lte=50"`
	TransportModes         []enums.TransportMode `json:"transportModes,omitempty" validate:"max=5"`
	HireGuide              bool                  `json:"hireGuide"`
	Interests              []string              `json:"interests,omitempty" validate:"max=20,dive,required,max=60"`
}

// TotalTravelers counts paying travelers. Infants are excluded and the
// result is never below one.
func (p *TripPreferences) TotalTravelers() int {
	if p == nil {
		return 1
	}
	n := p.Adults + p.Children + p.Seniors
	if n < 1 {
		return 1
	}
	return n
}

// DurationDays is the inclusive number of days between start and end.
func (p TripPreferences) DurationDays() int {
	start, err := time.Parse(dateLayout, p.StartDate)
	if err != nil {
		return 0
	}
	end, err := time.Parse(dateLayout, p.EndDate)
	if err != nil || end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// SavedTrip is the persisted unit of a generated itinerary.
type SavedTrip struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"ownerId"`
	Itinerary     Itinerary       `json:"itinerary"`
	Preferences   TripPreferences `json:"preferences"`
	IsBooked      bool            `json:"isBooked"`
	TransactionID string          `json:"transactionId,omitempty"`
	Version       int64           `json:"version"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}
