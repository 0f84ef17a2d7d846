package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestIncrWithTTLSetsExpiryOnFirstHit(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.RateLimitKey("pay")

	count, err := client.IncrWithTTL(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected counter 1 got %d", count)
	}
	if len(mock.expireCalls) != 1 || mock.expireCalls[0].ttl != time.Minute {
		t.Fatalf("expected one expire of 1m, got %+v", mock.expireCalls)
	}

	count, err = client.IncrWithTTL(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected counter 2 got %d", count)
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expire should not be set again while the window is live")
	}
}

func TestIncrWithTTLRepairsMissingExpiry(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.RateLimitKey("chat")

	// A counter whose first EXPIRE was lost.
	mock.incr[key] = 4

	count, err := client.IncrWithTTL(ctx, key, 30*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected counter 5 got %d", count)
	}
	if len(mock.expireCalls) != 1 || mock.expireCalls[0].key != key {
		t.Fatalf("expected expiry to be repaired, got %+v", mock.expireCalls)
	}
}

func TestUninitializedClient(t *testing.T) {
	var client *Client
	if _, err := client.IncrWithTTL(context.Background(), "k", time.Second); !errors.Is(err, errNotInitialized) {
		t.Fatalf("expected errNotInitialized, got %v", err)
	}
}

func TestJSONLifecycle(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	type session struct {
		TripID string `json:"trip_id"`
		Step   string `json:"step"`
	}

	key := client.BookingSessionKey("user-1", "trip-9")
	if err := client.SetJSON(ctx, key, session{TripID: "trip-9", Step: "METHOD_SELECTION"}, time.Hour); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	var got session
	if err := client.GetJSON(ctx, key, &got); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.TripID != "trip-9" || got.Step != "METHOD_SELECTION" {
		t.Fatalf("unexpected session %+v", got)
	}

	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if err := client.GetJSON(ctx, key, &got); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("scope", "id"); got != "wf:idempotency:scope:id" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.RateLimitKey("scope"); got != "wf:rate_limit:scope" {
		t.Fatalf("unexpected rate limit key %s", got)
	}
	if got := client.BookingSessionKey("user", "trip"); got != "wf:booking:user:trip" {
		t.Fatalf("unexpected booking key %s", got)
	}
	if got := client.BookingSessionKey("user", ""); got != "wf:booking:user" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
	if got := client.LockKey("maintenance"); got != "wf:lock:maintenance" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.PlaceKey("p-goa"); got != "wf:place:p-goa" {
		t.Fatalf("unexpected place key %s", got)
	}
}

type mockCmdable struct {
	data        map[string]string
	incr        map[string]int64
	ttls        map[string]time.Duration
	expireCalls []expireCall
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		incr: make(map[string]int64),
		ttls: make(map[string]time.Duration),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.incr[key]++
	return redis.NewIntResult(m.incr[key], nil)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: expiration})
	m.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

// TTL mirrors Redis: -2 for a missing key, -1 for a key without expiry.
func (m *mockCmdable) TTL(ctx context.Context, key string) *redis.DurationCmd {
	_, isData := m.data[key]
	_, isCounter := m.incr[key]
	if !isData && !isCounter {
		return redis.NewDurationResult(-2, nil)
	}
	if ttl, ok := m.ttls[key]; ok {
		return redis.NewDurationResult(ttl, nil)
	}
	return redis.NewDurationResult(-1, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
