package payments

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
)

// ChargeRequest is what the gateway needs to take a payment.
type ChargeRequest struct {
	TransactionID string
	UserID        string
	Method        enums.PaymentMethod
	SubMethod     enums.PaymentSubMethod
	EMITermMonths int
	Amount        decimal.Decimal
	Currency      string
}

// ChargeResult is the gateway's acknowledgement.
type ChargeResult struct {
	Reference   string
	ProcessedAt time.Time
}

// Gateway takes payments.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// SimulatedGateway approves every charge after a fixed delay unless Decline
// returns an error.
type SimulatedGateway struct {
	Delay   time.Duration
	Decline func(ChargeRequest) error
	Now     func() time.Time
}

// NewSimulatedGateway returns a gateway that approves after delay.
func NewSimulatedGateway(delay time.Duration) *SimulatedGateway {
	return &SimulatedGateway{Delay: delay, Now: time.Now}
}

func (g *SimulatedGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if g.Delay > 0 {
		timer := time.NewTimer(g.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ChargeResult{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return ChargeResult{}, err
	}
	if g.Decline != nil {
		if err := g.Decline(req); err != nil {
			return ChargeResult{}, err
		}
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return ChargeResult{Reference: "SIM-" + req.TransactionID, ProcessedAt: now().UTC()}, nil
}
