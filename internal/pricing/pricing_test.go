package pricing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/wayfarer-backend/internal/trips"
)

func itineraryCosting(costs ...int64) trips.Itinerary {
	day := trips.DayPlan{Day: 1}
	for _, c := range costs {
		day.Activities = append(day.Activities, trips.Activity{EstimatedCost: decimal.NewFromInt(c)})
	}
	it := trips.Itinerary{Days: []trips.DayPlan{day}}
	it.RecomputeTotal()
	return it
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func assertDecimal(t *testing.T, want int64, got decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, got.Equal(dec(want)), "%s: want %d, got %s", field, want, got)
}

func TestComputeEndToEndSoloTraveler(t *testing.T) {
	prefs := &trips.TripPreferences{Adults: 1}
	b := Compute(itineraryCosting(1000, 2000), prefs, decimal.Zero)

	assert.Equal(t, 1, b.TotalTravelers)
	assertDecimal(t, 3000, b.BaseCost, "base")
	assertDecimal(t, 0, b.GuideCharges, "guide")
	assertDecimal(t, 60, b.ServiceFee, "fee")
	assertDecimal(t, 150, b.Taxes, "taxes")
	assertDecimal(t, 3210, b.FinalTotal, "final")
	assertDecimal(t, 3210, b.PerPersonCost, "per person")
}

func TestComputeGuideAndRounding(t *testing.T) {
	prefs := &trips.TripPreferences{Adults: 2, Children: 1, Infants: 1, HireGuide: true}
	b := Compute(itineraryCosting(1234, 991), prefs, dec(100))

	assert.Equal(t, 3, b.TotalTravelers)
	assertDecimal(t, 7500, b.GuideCharges, "guide")
	// 2225 * 0.02 = 44.5 rounds away from zero.
	assertDecimal(t, 45, b.ServiceFee, "fee")
	// 2225 * 0.05 = 111.25
	assertDecimal(t, 111, b.Taxes, "taxes")
	assertDecimal(t, 9781, b.FinalTotal, "final")
	assertDecimal(t, 3260, b.PerPersonCost, "per person")
}

func TestComputePerPersonRounding(t *testing.T) {
	// A 10000 final total split three ways.
	it := trips.Itinerary{TotalEstimatedCost: dec(0)}
	prefs := &trips.TripPreferences{Adults: 3}
	b := Compute(it, prefs, decimal.Zero)
	assert.Equal(t, 3, b.TotalTravelers)

	final := dec(10000)
	perPerson := final.Div(dec(int64(b.TotalTravelers))).Round(0)
	assertDecimal(t, 3333, perPerson, "per person")

	// Base 9346 gives fee 187 and taxes 467, so final is exactly 10000.
	b = Compute(itineraryCosting(9346), prefs, decimal.Zero)
	assertDecimal(t, 10000, b.FinalTotal, "final")
	assertDecimal(t, 3333, b.PerPersonCost, "per person")
}

func TestComputeNilPreferencesAndZeroTravelers(t *testing.T) {
	b := Compute(itineraryCosting(100), nil, decimal.Zero)
	assert.Equal(t, 1, b.TotalTravelers)
	assertDecimal(t, 0, b.GuideCharges, "guide")

	b = Compute(itineraryCosting(100), &trips.TripPreferences{Infants: 2, HireGuide: true}, decimal.Zero)
	assert.Equal(t, 1, b.TotalTravelers)
	assertDecimal(t, 2500, b.GuideCharges, "guide")
}

func TestComputeClampsFinalTotal(t *testing.T) {
	b := Compute(itineraryCosting(100), nil, dec(1000))
	assertDecimal(t, 0, b.FinalTotal, "final")
	assertDecimal(t, 0, b.PerPersonCost, "per person")

	b = Compute(itineraryCosting(100), nil, dec(-50))
	assertDecimal(t, 0, b.Discount, "discount")
	assertDecimal(t, 107, b.FinalTotal, "final")
}

func TestEMIEligibilityBoundary(t *testing.T) {
	assert.False(t, EMIEligible(dec(100000)))
	assert.True(t, EMIEligible(dec(100001)))
}

func TestMonthlyInstallment(t *testing.T) {
	assertDecimal(t, 40000, MonthlyInstallment(dec(120000), 3), "3 months")
	assertDecimal(t, 8334, MonthlyInstallment(dec(100001), 12), "12 months")
	assertDecimal(t, 500, MonthlyInstallment(dec(500), 0), "no term")

	plans := Installments(dec(120000))
	require.Len(t, plans, 4)
	assert.Equal(t, 6, plans[1].Months)
	assertDecimal(t, 20000, plans[1].Monthly, "6 months")

	assert.True(t, ValidEMITerm(9))
	assert.False(t, ValidEMITerm(4))
}

func TestWalletEligibility(t *testing.T) {
	balance := dec(185000)
	assert.True(t, WalletEligible(balance, dec(185000)))
	assert.False(t, WalletEligible(balance, dec(185001)))
}

func TestStaticPromo(t *testing.T) {
	promo := NewStaticPromo("TRAVEL2024", decimal.RequireFromString("0.10"))
	ctx := context.Background()

	res, err := promo.Resolve(ctx, "travel2024", dec(50000))
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, "TRAVEL2024", res.Code)
	assertDecimal(t, 5000, res.Discount, "discount")

	res, err = promo.Resolve(ctx, "SAVE50", dec(50000))
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assertDecimal(t, 0, res.Discount, "discount")
	assert.Equal(t, "Invalid promo code", res.Message)

	res, err = promo.Resolve(ctx, "  ", dec(50000))
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.NotEmpty(t, res.Message)

	res, err = promo.Resolve(ctx, "TRAVEL2024", dec(12345))
	require.NoError(t, err)
	assertDecimal(t, 1235, res.Discount, "rounded discount")
}

func TestDiscountReducesOnlyFinalTotal(t *testing.T) {
	it := itineraryCosting(50000)
	without := Compute(it, nil, decimal.Zero)
	with := Compute(it, nil, dec(5000))

	assert.True(t, with.BaseCost.Equal(without.BaseCost))
	assert.True(t, with.ServiceFee.Equal(without.ServiceFee))
	assert.True(t, with.Taxes.Equal(without.Taxes))
	assert.True(t, with.FinalTotal.Equal(without.FinalTotal.Sub(dec(5000))))
}
