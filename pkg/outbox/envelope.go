package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const currentEnvelopeVersion = 1

var errMissingEventID = errors.New("envelope missing event id")

// ActorRef identifies the traveler whose action produced the event.
type ActorRef struct {
	UserID string `json:"userId"`
}

// PayloadEnvelope is what outbox_events.payload holds and what subscribers
// receive as the Pub/Sub message body. EventID doubles as the consumer
// dedup key.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

func newEnvelope(event DomainEvent) (PayloadEnvelope, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return PayloadEnvelope{}, fmt.Errorf("encode %s data: %w", event.EventType, err)
	}
	env := PayloadEnvelope{
		Version:    event.Version,
		EventID:    uuid.NewString(),
		OccurredAt: event.OccurredAt.UTC(),
		Actor:      event.Actor,
		Data:       data,
	}
	if env.Version == 0 {
		env.Version = currentEnvelopeVersion
	}
	if event.OccurredAt.IsZero() {
		env.OccurredAt = time.Now().UTC()
	}
	return env, nil
}

// DecodeEnvelope parses raw and rejects envelopes without an event id.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventID == "" {
		return PayloadEnvelope{}, errMissingEventID
	}
	return env, nil
}

// DecodeData unmarshals the event body into out.
func (e PayloadEnvelope) DecodeData(out any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %s has no data", e.EventID)
	}
	return json.Unmarshal(e.Data, out)
}
