package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateTrip    OutboxAggregateType = "trip"
	AggregatePayment OutboxAggregateType = "payment"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateTrip,
	AggregatePayment,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventBookingConfirmed     OutboxEventType = "booking_confirmed"
	EventPaymentFailed        OutboxEventType = "payment_failed"
	EventSplitLinksDispatched OutboxEventType = "split_links_dispatched"
)

var validOutboxEventTypes = []OutboxEventType{
	EventBookingConfirmed,
	EventPaymentFailed,
	EventSplitLinksDispatched,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
