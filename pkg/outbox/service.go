package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/wayfarer-backend/pkg/db/models"
	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
)

var errTxRequired = errors.New("transaction required")

// DomainEvent is a booking fact to publish once its transaction commits.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

func (e DomainEvent) validate() error {
	switch {
	case !e.EventType.IsValid():
		return fmt.Errorf("unknown outbox event type %q", e.EventType)
	case !e.AggregateType.IsValid():
		return fmt.Errorf("unknown outbox aggregate type %q", e.AggregateType)
	case e.AggregateID == "":
		return fmt.Errorf("%s event needs an aggregate id", e.EventType)
	}
	return nil
}

// Service writes domain events into the transactional outbox.
type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{repo: repo, logg: logg}
}

// Emit queues event inside tx so it commits atomically with the caller's writes.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	return s.emit(ctx, tx, event, false)
}

// EmitOnce emits at most one event per (type, aggregate). A concurrent
// writer that wins the unique index counts as success.
func (s *Service) EmitOnce(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	return s.emit(ctx, tx, event, true)
}

func (s *Service) emit(ctx context.Context, tx *gorm.DB, event DomainEvent, once bool) error {
	if tx == nil {
		return errTxRequired
	}
	if err := event.validate(); err != nil {
		return err
	}
	env, err := newEnvelope(event)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	row := models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}
	if once {
		inserted, err := s.repo.InsertOnce(tx, row)
		if err != nil || !inserted {
			return err
		}
	} else if err := s.repo.Insert(tx, row); err != nil {
		return err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"event_id":       env.EventID,
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID,
	}), "outbox event queued")
	return nil
}
