package outbox

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingConfirmedEvent is emitted once a trip is paid for and marked booked.
type BookingConfirmedEvent struct {
	TripID        string          `json:"tripId"`
	TripName      string          `json:"tripName"`
	TransactionID string          `json:"transactionId"`
	PayerName     string          `json:"payerName"`
	PayerEmail    string          `json:"payerEmail"`
	Method        string          `json:"method"`
	SubMethod     string          `json:"subMethod,omitempty"`
	EMITermMonths int             `json:"emiTermMonths,omitempty"`
	FinalTotal    decimal.Decimal `json:"finalTotal"`
	PerPerson     decimal.Decimal `json:"perPerson"`
	Travelers     int             `json:"travelers"`
	Currency      string          `json:"currency"`
	BookedAt      time.Time       `json:"bookedAt"`
}

// PaymentFailedEvent is emitted when the gateway rejects an attempt.
type PaymentFailedEvent struct {
	TripID        string          `json:"tripId"`
	TransactionID string          `json:"transactionId"`
	Method        string          `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason"`
}

// SplitLinksDispatchedEvent records which friends were sent payment links.
type SplitLinksDispatchedEvent struct {
	TripID        string   `json:"tripId"`
	TransactionID string   `json:"transactionId"`
	Recipients    []string `json:"recipients"`
	Failed        []string `json:"failed,omitempty"`
}
