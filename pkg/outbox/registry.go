package outbox

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/wayfarer-backend/pkg/config"
	"github.com/angelmondragon/wayfarer-backend/pkg/db/models"
	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
)

// EventDescriptor links an event type to its aggregate and topic.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   PayloadEnvelope
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryableError wraps err so the publisher dead-letters the row.
func NewNonRetryableError(err error) error {
	return NonRetryableError{Err: err}
}

// NewEventRegistry routes every booking event to the configured topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topic := strings.TrimSpace(cfg.BookingTopic)
	if topic == "" {
		return nil, fmt.Errorf("booking topic is required")
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	for _, desc := range []EventDescriptor{
		{EventType: enums.EventBookingConfirmed, AggregateType: enums.AggregateTrip, Topic: topic},
		{EventType: enums.EventPaymentFailed, AggregateType: enums.AggregatePayment, Topic: topic},
		{EventType: enums.EventSplitLinksDispatched, AggregateType: enums.AggregateTrip, Topic: topic},
	} {
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// Resolve validates an outbox row against its descriptor and decodes the envelope.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("event type %q not registered", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("event %s expects aggregate %s, got %s", event.EventType, desc.AggregateType, event.AggregateType))
	}
	envelope, err := DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope}, nil
}
