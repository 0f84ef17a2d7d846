package notifications

import (
	"context"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
	"github.com/angelmondragon/wayfarer-backend/pkg/outbox"
)

const confirmationConsumer = "booking-confirmations"

// processedStore marks events handled so redeliveries are skipped.
type processedStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Consumer watches booking events and emails the payer a confirmation.
type Consumer struct {
	notifier     Service
	subscription *pubsub.Subscriber
	processed    processedStore
	ttl          time.Duration
	logg         *logger.Logger
}

// NewConsumer builds a booking confirmation consumer.
func NewConsumer(notifier Service, subscription *pubsub.Subscriber, processed processedStore, ttl time.Duration, logg *logger.Logger) (*Consumer, error) {
	if notifier == nil {
		return nil, fmt.Errorf("notification service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("booking subscription required")
	}
	if processed == nil {
		return nil, fmt.Errorf("processed event store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Consumer{
		notifier:     notifier,
		subscription: subscription,
		processed:    processed,
		ttl:          ttl,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventBookingConfirmed) {
		c.logg.Debug(logCtx, "skipping non-booking event")
		return processResult{ack: true}
	}

	envelope, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "dropping undecodable envelope", err)
		return processResult{ack: true}
	}

	key := c.processed.IdempotencyKey(confirmationConsumer, envelope.EventID)
	first, err := c.processed.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), c.ttl)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if !first {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var payload outbox.BookingConfirmedEvent
	if err := envelope.DecodeData(&payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"trip_id":        payload.TripID,
		"transaction_id": payload.TransactionID,
	})

	err = c.notifier.NotifyBookingConfirmed(ctx, BookingConfirmation{
		Email:         payload.PayerEmail,
		Name:          payload.PayerName,
		TripID:        payload.TripID,
		TripName:      payload.TripName,
		TransactionID: payload.TransactionID,
		Method:        payload.Method,
		Currency:      payload.Currency,
		FinalTotal:    payload.FinalTotal,
		PerPerson:     payload.PerPerson,
		Travelers:     payload.Travelers,
	})
	if err != nil {
		c.logg.Error(logCtx, "booking confirmation failed", err)
		_ = c.processed.Del(ctx, key)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}
