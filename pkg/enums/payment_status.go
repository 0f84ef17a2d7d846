package enums

import (
	"fmt"
	"strings"
)

// PaymentStatus tracks a payment transaction at the gateway. Captured means
// the gateway took the money but the booking is not confirmed yet.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCaptured  PaymentStatus = "captured"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

var validPaymentStatuss = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusCaptured,
	PaymentStatusSucceeded,
	PaymentStatusFailed,
}

// String implements fmt.Stringer.
func (v PaymentStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PaymentStatus.
func (v PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuss {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus, ignoring case.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuss {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
