package pricing

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// PromoResult is the outcome of applying a promo code. A rejected code is
// not an error: Discount is zero and Message explains why.
type PromoResult struct {
	Code     string          `json:"code"`
	Applied  bool            `json:"applied"`
	Discount decimal.Decimal `json:"discount"`
	Message  string          `json:"message"`
}

// PromoResolver turns a code into a discount against baseCost.
type PromoResolver interface {
	Resolve(ctx context.Context, code string, baseCost decimal.Decimal) (PromoResult, error)
}

// StaticPromo accepts a single case-insensitive code worth a share of base cost.
type StaticPromo struct {
	Code string
	Rate decimal.Decimal
}

func NewStaticPromo(code string, rate decimal.Decimal) StaticPromo {
	return StaticPromo{Code: strings.TrimSpace(code), Rate: rate}
}

func (p StaticPromo) Resolve(_ context.Context, code string, baseCost decimal.Decimal) (PromoResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return PromoResult{Discount: decimal.Zero, Message: "Enter a promo code"}, nil
	}
	if p.Code == "" || !strings.EqualFold(code, p.Code) {
		return PromoResult{Code: code, Discount: decimal.Zero, Message: "Invalid promo code"}, nil
	}
	discount := baseCost.Mul(p.Rate).Round(0)
	return PromoResult{
		Code:     strings.ToUpper(p.Code),
		Applied:  true,
		Discount: discount,
		Message:  "Promo code applied",
	}, nil
}
