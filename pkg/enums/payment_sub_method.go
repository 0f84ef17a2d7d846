package enums

import (
	"fmt"
	"strings"
)

// PaymentSubMethod is the instrument used within a FULL payment.
type PaymentSubMethod string

const (
	PaymentSubMethodUPI        PaymentSubMethod = "UPI"
	PaymentSubMethodCard       PaymentSubMethod = "CARD"
	PaymentSubMethodNetBanking PaymentSubMethod = "NETBANKING"
)

var validPaymentSubMethods = []PaymentSubMethod{
	PaymentSubMethodUPI,
	PaymentSubMethodCard,
	PaymentSubMethodNetBanking,
}

// String implements fmt.Stringer.
func (v PaymentSubMethod) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PaymentSubMethod.
func (v PaymentSubMethod) IsValid() bool {
	for _, candidate := range validPaymentSubMethods {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePaymentSubMethod converts raw input into a PaymentSubMethod, ignoring case.
func ParsePaymentSubMethod(value string) (PaymentSubMethod, error) {
	for _, candidate := range validPaymentSubMethods {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment sub method %q", value)
}
