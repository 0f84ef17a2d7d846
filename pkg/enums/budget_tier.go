package enums

import (
	"fmt"
	"strings"
)

// BudgetTier is the spending band requested for generation.
type BudgetTier string

const (
	BudgetTierBudget   BudgetTier = "budget"
	BudgetTierModerate BudgetTier = "moderate"
	BudgetTierLuxury   BudgetTier = "luxury"
)

var validBudgetTiers = []BudgetTier{
	BudgetTierBudget,
	BudgetTierModerate,
	BudgetTierLuxury,
}

// String implements fmt.Stringer.
func (v BudgetTier) String() string {
	return string(v)
}

// IsValid reports whether the value is a known BudgetTier.
func (v BudgetTier) IsValid() bool {
	for _, candidate := range validBudgetTiers {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseBudgetTier converts raw input into a BudgetTier, ignoring case.
func ParseBudgetTier(value string) (BudgetTier, error) {
	for _, candidate := range validBudgetTiers {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid budget tier %q", value)
}
