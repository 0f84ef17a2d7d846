package booking

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/wayfarer-backend/internal/pricing"
	"github.com/angelmondragon/wayfarer-backend/internal/trips"
	"github.com/angelmondragon/wayfarer-backend/pkg/redis"
)

// Session is one user's booking workspace for a trip.
type Session struct {
	UserID string `json:"userId"`
	TripID string `json:"tripId"`
	// Trip is the last persisted snapshot the session has seen.
	Trip      trips.SavedTrip `json:"trip"`
	Editor    Editor          `json:"editor"`
	Checkout  Checkout        `json:"checkout"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func newSession(userID string, trip trips.SavedTrip, readOnly bool) *Session {
	return &Session{
		UserID:   userID,
		TripID:   trip.ID,
		Trip:     trip,
		Editor:   NewEditor(readOnly),
		Checkout: NewCheckout(),
	}
}

// Working is the itinerary the user currently sees: the draft while
// editing, the persisted itinerary otherwise.
func (s *Session) Working() trips.Itinerary {
	if s.Editor.Editing() {
		return s.Editor.Draft.Itinerary
	}
	return s.Trip.Itinerary
}

func (s *Session) Breakdown() pricing.Breakdown {
	return pricing.Compute(s.Working(), &s.Trip.Preferences, s.Checkout.Discount())
}

// SessionStore persists sessions between requests. Load returns nil, nil
// when no session exists.
type SessionStore interface {
	Load(ctx context.Context, userID, tripID string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, userID, tripID string) error
}

type jsonStore interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, out any) error
	Del(ctx context.Context, keys ...string) error
	BookingSessionKey(userID, tripID string) string
}

// RedisSessionStore keeps sessions as JSON with a sliding TTL.
type RedisSessionStore struct {
	store jsonStore
	ttl   time.Duration
}

func NewRedisSessionStore(store jsonStore, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisSessionStore{store: store, ttl: ttl}
}

func (r *RedisSessionStore) Load(ctx context.Context, userID, tripID string) (*Session, error) {
	var session Session
	err := r.store.GetJSON(ctx, r.store.BookingSessionKey(userID, tripID), &session)
	if errors.Is(err, redis.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *RedisSessionStore) Save(ctx context.Context, session *Session) error {
	return r.store.SetJSON(ctx, r.store.BookingSessionKey(session.UserID, session.TripID), session, r.ttl)
}

func (r *RedisSessionStore) Delete(ctx context.Context, userID, tripID string) error {
	return r.store.Del(ctx, r.store.BookingSessionKey(userID, tripID))
}
