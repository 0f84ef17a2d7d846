// Package pricing computes the cost breakdown of an itinerary and the
// eligibility of each payment method. Every function here is pure.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wayfarer-backend/internal/trips"
)

var (
	// GuideChargePerTraveler is added per paying traveler when a guide is hired.
	GuideChargePerTraveler = decimal.NewFromInt(2500)
	// ServiceFeeRate and TaxRate apply to the base cost.
	ServiceFeeRate = decimal.RequireFromString("0.02")
	TaxRate        = decimal.RequireFromString("0.05")
	// EMIThreshold is the final total an EMI booking must exceed.
	EMIThreshold = decimal.NewFromInt(100000)
)

// EMITerms lists the installment plans offered, in months.
var EMITerms = []int{3, 6, 9, 12}

// Breakdown is the cost summary shown at checkout.
type Breakdown struct {
	TotalTravelers int             `json:"totalTravelers"`
	BaseCost       decimal.Decimal `json:"baseCost"`
	GuideCharges   decimal.Decimal `json:"guideCharges"`
	ServiceFee     decimal.Decimal `json:"serviceFee"`
	Taxes          decimal.Decimal `json:"taxes"`
	Discount       decimal.Decimal `json:"discount"`
	FinalTotal     decimal.Decimal `json:"finalTotal"`
	PerPersonCost  decimal.Decimal `json:"perPersonCost"`
}

// Compute derives the breakdown for it. prefs may be nil, in which case one
// traveler and no guide are assumed. A negative discount is treated as zero
// and the final total never drops below zero.
func Compute(it trips.Itinerary, prefs *trips.TripPreferences, discount decimal.Decimal) Breakdown {
	travelers := prefs.TotalTravelers()
	base := it.TotalEstimatedCost

	guide := decimal.Zero
	if prefs != nil && prefs.HireGuide {
		guide = GuideChargePerTraveler.Mul(decimal.NewFromInt(int64(travelers)))
	}
	fee := base.Mul(ServiceFeeRate).Round(0)
	taxes := base.Mul(TaxRate).Round(0)

	if discount.IsNegative() {
		discount = decimal.Zero
	}
	final := base.Add(guide).Add(fee).Add(taxes).Sub(discount)
	if final.IsNegative() {
		final = decimal.Zero
	}

	return Breakdown{
		TotalTravelers: travelers,
		BaseCost:       base,
		GuideCharges:   guide,
		ServiceFee:     fee,
		Taxes:          taxes,
		Discount:       discount,
		FinalTotal:     final,
		PerPersonCost:  final.Div(decimal.NewFromInt(int64(travelers))).Round(0),
	}
}

// EMIEligible reports whether the final total qualifies for installments.
func EMIEligible(finalTotal decimal.Decimal) bool {
	return finalTotal.GreaterThan(EMIThreshold)
}

// WalletEligible reports whether balance covers the final total.
func WalletEligible(balance, finalTotal decimal.Decimal) bool {
	return balance.GreaterThanOrEqual(finalTotal)
}

// ValidEMITerm reports whether months is an offered plan.
func ValidEMITerm(months int) bool {
	for _, term := range EMITerms {
		if term == months {
			return true
		}
	}
	return false
}

// MonthlyInstallment rounds the per-month amount up to a whole unit.
func MonthlyInstallment(finalTotal decimal.Decimal, months int) decimal.Decimal {
	if months <= 0 {
		return finalTotal
	}
	return finalTotal.Div(decimal.NewFromInt(int64(months))).Ceil()
}

// Installment is one row of the EMI plan table.
type Installment struct {
	Months  int             `json:"months"`
	Monthly decimal.Decimal `json:"monthly"`
}

// Installments lists every offered EMI plan for finalTotal.
func Installments(finalTotal decimal.Decimal) []Installment {
	out := make([]Installment, 0, len(EMITerms))
	for _, months := range EMITerms {
		out = append(out, Installment{Months: months, Monthly: MonthlyInstallment(finalTotal, months)})
	}
	return out
}
