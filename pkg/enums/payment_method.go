package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod is the checkout mode chosen for a booking.
type PaymentMethod string

const (
	PaymentMethodFull   PaymentMethod = "FULL"
	PaymentMethodEMI    PaymentMethod = "EMI"
	PaymentMethodSplit  PaymentMethod = "SPLIT"
	PaymentMethodWallet PaymentMethod = "WALLET"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodFull,
	PaymentMethodEMI,
	PaymentMethodSplit,
	PaymentMethodWallet,
}

// String implements fmt.Stringer.
func (v PaymentMethod) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PaymentMethod.
func (v PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod, ignoring case.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
