package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/angelmondragon/wayfarer-backend/pkg/config"
	"github.com/angelmondragon/wayfarer-backend/pkg/db/models"
	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
	"github.com/angelmondragon/wayfarer-backend/pkg/metrics"
	"github.com/angelmondragon/wayfarer-backend/pkg/outbox"
)

const (
	jobName               = "outbox-publisher"
	defaultBatchSize      = 50
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*outbox.ResolvedEvent, error)
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type stopper interface {
	Stop()
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	DLQRepository    dlqRepository
	Metrics          *metrics.JobMetrics
}

// Service forwards committed outbox rows to their Pub/Sub topics.
type Service struct {
	logg             *logger.Logger
	db               dbClient
	repo             outboxRepository
	pubsub           pubSubClient
	registry         registryResolver
	dlq              dlqRepository
	publisherFactory publisherFactory
	// publishers holds one publisher per topic for the life of Run.
	publishers   map[string]publisher
	metrics      *metrics.JobMetrics
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = func(topic string) publisher {
			p := params.PubSub.Publisher(topic)
			if p == nil {
				return nil
			}
			return &gcpPublisher{Publisher: p}
		}
	}

	cfg := params.Config.Outbox
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		logg:             params.Logger,
		db:               params.DB,
		repo:             params.Repository,
		pubsub:           params.PubSub,
		registry:         params.Registry,
		dlq:              params.DLQRepository,
		publisherFactory: factory,
		publishers:       map[string]publisher{},
		metrics:          params.Metrics,
		batchSize:        batch,
		maxAttempts:      maxAttempts,
		pollInterval:     cfg.PollInterval(),
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	return pingDependency(ctx, s.logg, "pubsub", s.pubsub.Ping)
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) newBackoff() retry.Backoff {
	b := retry.NewExponential(s.pollInterval)
	b = retry.WithCappedDuration(maxBackoff, b)
	return retry.WithJitter(jitterWindow, b)
}

// Run drains the outbox until ctx ends. A non-empty batch is followed immediately
// by the next one; an empty batch waits one poll interval; a failed batch
// backs off exponentially.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}
	defer s.stopPublishers()

	backoff := s.newBackoff()
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		started := time.Now()
		processed, err := s.processBatch(ctx)
		if processed || err != nil {
			s.metrics.Track(jobName, started, err)
		}

		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			wait, _ = backoff.Next()
		case processed:
			backoff = s.newBackoff()
			continue
		default:
			backoff = s.newBackoff()
			wait = s.pollInterval
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// pending is a message handed to Pub/Sub whose result is not yet known.
type pending struct {
	event  models.OutboxEvent
	topic  string
	fields map[string]any
	result publishResult
}

func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		processed = true

		publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
		defer cancel()

		inFlight := make([]pending, 0, len(events))
		for _, event := range events {
			p, err := s.dispatch(publishCtx, event)
			if err != nil {
				if markErr := s.moveToDLQ(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, p.topic, p.fields); markErr != nil {
					return markErr
				}
				continue
			}
			inFlight = append(inFlight, p)
		}

		for _, p := range inFlight {
			if err := s.settle(ctx, publishCtx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

// dispatch resolves the row's topic and hands the message to its publisher
// without waiting for the server acknowledgement.
func (s *Service) dispatch(ctx context.Context, event models.OutboxEvent) (pending, error) {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return pending{event: event}, err
	}
	topic := resolved.Descriptor.Topic
	p := pending{
		event:  event,
		topic:  topic,
		fields: s.eventFields(event, resolved.Envelope, topic),
	}

	pub := s.publisherFor(topic)
	if pub == nil {
		return p, outbox.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}
	p.result = pub.Publish(ctx, &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID,
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	})
	if p.result == nil {
		return p, outbox.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	return p, nil
}

// settle waits for one publish result and records the outcome on the row.
func (s *Service) settle(ctx, publishCtx context.Context, tx *gorm.DB, p pending) error {
	_, err := p.result.Get(publishCtx)
	if err == nil {
		if markErr := s.repo.MarkPublishedTx(tx, p.event.ID); markErr != nil {
			return fmt.Errorf("mark published %s: %w", p.event.ID, markErr)
		}
		s.logg.Info(s.logg.WithFields(ctx, p.fields), "outbox event published")
		return nil
	}

	var nonRetry outbox.NonRetryableError
	if errors.As(err, &nonRetry) {
		return s.moveToDLQ(ctx, tx, p.event, enums.OutboxDLQReasonNonRetryable, err, p.topic, p.fields)
	}

	attempt := p.event.AttemptCount + 1
	p.fields["attempt_count"] = attempt
	if attempt >= s.maxAttempts {
		return s.moveToDLQ(ctx, tx, p.event, enums.OutboxDLQReasonMaxAttempts,
			fmt.Errorf("max publish attempts reached: %w", err), p.topic, p.fields)
	}

	logCtx := s.logg.WithField(s.logg.WithFields(ctx, p.fields), "error", err.Error())
	s.logg.Warn(logCtx, "outbox publish failed")
	if markErr := s.repo.MarkFailedTx(tx, p.event.ID, err); markErr != nil {
		return fmt.Errorf("mark failure %s: %w", p.event.ID, markErr)
	}
	return nil
}

func (s *Service) moveToDLQ(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, err error, topic string, fields map[string]any) error {
	if fields == nil {
		fields = s.eventFields(event, outbox.PayloadEnvelope{}, topic)
	}
	fields["error_reason"] = reason
	logCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", err.Error())
	s.logg.Warn(logCtx, "outbox event will not be retried")

	msg := err.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if dlqErr := s.dlq.InsertTx(tx, entry); dlqErr != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, dlqErr)
	}
	if markErr := s.repo.MarkTerminalTx(tx, event.ID, err, s.maxAttempts); markErr != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, markErr)
	}
	return nil
}

func (s *Service) publisherFor(topic string) publisher {
	if pub, ok := s.publishers[topic]; ok {
		return pub
	}
	pub := s.publisherFactory(topic)
	if pub != nil {
		s.publishers[topic] = pub
	}
	return pub
}

// stopPublishers flushes buffered messages before the process exits.
func (s *Service) stopPublishers() {
	for topic, pub := range s.publishers {
		if st, ok := pub.(stopper); ok {
			st.Stop()
		}
		delete(s.publishers, topic)
	}
}

func (s *Service) eventFields(event models.OutboxEvent, envelope outbox.PayloadEnvelope, topic string) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID,
		"attempt_count":  event.AttemptCount,
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if topic != "" {
		fields["topic"] = topic
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}
