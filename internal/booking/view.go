package booking

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wayfarer-backend/internal/pricing"
	"github.com/angelmondragon/wayfarer-backend/internal/trips"
	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
)

// View is what a client renders for a booking session.
type View struct {
	TripID        string                `json:"tripId"`
	Version       int64                 `json:"version"`
	IsBooked      bool                  `json:"isBooked"`
	TransactionID string                `json:"transactionId,omitempty"`
	Mode          enums.EditMode        `json:"mode"`
	ReadOnly      bool                  `json:"readOnly"`
	CanEdit       bool                  `json:"canEdit"`
	Itinerary     trips.Itinerary       `json:"itinerary"`
	Preferences   trips.TripPreferences `json:"preferences"`
	Breakdown     pricing.Breakdown     `json:"breakdown"`
	Checkout      CheckoutView          `json:"checkout"`
}

// CheckoutView adds derived eligibility to the checkout draft.
type CheckoutView struct {
	Checkout
	Eligibility        Eligibility     `json:"eligibility"`
	MonthlyInstallment decimal.Decimal `json:"monthlyInstallment"`
	CanPay             bool            `json:"canPay"`
	PayBlockedReason   string          `json:"payBlockedReason,omitempty"`
}

func buildView(s *Session) *View {
	b := s.Breakdown()
	checkout := CheckoutView{
		Checkout:           s.Checkout,
		Eligibility:        s.Checkout.Eligibility(b),
		MonthlyInstallment: pricing.MonthlyInstallment(b.FinalTotal, s.Checkout.EMITermMonths),
	}
	if s.Checkout.State != enums.CheckoutClosed {
		if err := s.Checkout.CanPay(b); err != nil {
			if typed := pkgerrors.As(err); typed != nil {
				checkout.PayBlockedReason = typed.Message()
			} else {
				checkout.PayBlockedReason = err.Error()
			}
		} else {
			checkout.CanPay = true
		}
	}
	return &View{
		TripID:        s.TripID,
		Version:       s.Trip.Version,
		IsBooked:      s.Trip.IsBooked,
		TransactionID: s.Trip.TransactionID,
		Mode:          s.Editor.Mode,
		ReadOnly:      s.Editor.ReadOnly,
		CanEdit:       !s.Editor.ReadOnly && !s.Trip.IsBooked,
		Itinerary:     s.Working(),
		Preferences:   s.Trip.Preferences,
		Breakdown:     b,
		Checkout:      checkout,
	}
}
