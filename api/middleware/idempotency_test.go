package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestReplayTTLSelection(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		pattern string
		want    time.Duration
		ok      bool
	}{
		{"pay", http.MethodPost, "/api/v1/trips/{tripId}/booking/checkout/pay", paymentIdempotencyTTL, true},
		{"generate trip", http.MethodPost, "/api/v1/trips", defaultIdempotencyTTL, true},
		{"save edits", http.MethodPost, "/api/v1/trips/{tripId}/booking/edit/save", defaultIdempotencyTTL, true},
		{"chat message", http.MethodPost, "/api/v1/communities/{communityId}/messages", defaultIdempotencyTTL, true},
		{"trailing slash", http.MethodPost, "/api/v1/trips/", defaultIdempotencyTTL, true},
		{"list trips", http.MethodGet, "/api/v1/trips", 0, false},
		{"open checkout", http.MethodPost, "/api/v1/trips/{tripId}/booking/checkout", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := replayTTL(tt.method, tt.pattern)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	req := requestWithPattern(http.MethodPost, "/api/v1/communities", "/api/v1/communities", strings.NewReader(`{"foo":"bar"}`))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	req := requestWithPattern(http.MethodPost, "/api/v1/communities", "/api/v1/communities", strings.NewReader(`{"foo":"bar"}`))
	req.Header.Set("Idempotency-Key", "abc")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected first response 202 got %d", resp.Code)
	}

	replay := requestWithPattern(http.MethodPost, "/api/v1/communities", "/api/v1/communities", strings.NewReader(`{"foo":"bar"}`))
	replay.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, replay)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected replay status 202 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if rec.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay marker header")
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := requestWithPattern(http.MethodPost, "/api/v1/communities", "/api/v1/communities", strings.NewReader(`{"foo":"bar"}`))
	req.Header.Set("Idempotency-Key", "xyz")
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)

	replay := requestWithPattern(http.MethodPost, "/api/v1/communities", "/api/v1/communities", strings.NewReader(`{"foo":"diff"}`))
	replay.Header.Set("Idempotency-Key", "xyz")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, replay)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func TestIdempotencyMiddlewareRejectsInFlightDuplicate(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	const path = "/api/v1/trips/trip-1/booking/checkout/pay"
	const pattern = "/api/v1/trips/{tripId}/booking/checkout/pay"

	var calls int
	var duplicate *httptest.ResponseRecorder
	var handler http.Handler
	handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if duplicate == nil {
			// a second click lands while the first payment is still running
			duplicate = httptest.NewRecorder()
			second := requestWithPattern(http.MethodPost, path, pattern, nil)
			second.Header.Set("Idempotency-Key", "pay-1")
			mw(handler).ServeHTTP(duplicate, second)
		}
		w.WriteHeader(http.StatusOK)
	})

	req := requestWithPattern(http.MethodPost, path, pattern, nil)
	req.Header.Set("Idempotency-Key", "pay-1")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed got %d", resp.Code)
	}
	if duplicate.Code != http.StatusConflict {
		t.Fatalf("expected in-flight duplicate to get 409 got %d", duplicate.Code)
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyMiddlewareReleasesKeyOnServerError(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	status := http.StatusServiceUnavailable
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	})

	send := func() int {
		req := requestWithPattern(http.MethodPost, "/api/v1/trips", "/api/v1/trips", strings.NewReader(`{}`))
		req.Header.Set("Idempotency-Key", "gen-1")
		resp := httptest.NewRecorder()
		mw(handler).ServeHTTP(resp, req)
		return resp.Code
	}

	if code := send(); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", code)
	}
	if len(store.data) != 0 {
		t.Fatalf("server errors must not be stored: %v", store.data)
	}
	status = http.StatusCreated
	if code := send(); code != http.StatusCreated {
		t.Fatalf("expected retry to reach handler got %d", code)
	}
	if code := send(); code != http.StatusCreated || calls != 2 {
		t.Fatalf("expected replay after success, code=%d calls=%d", code, calls)
	}
}

func TestIdempotencyMiddlewareRejectsOversizedKey(t *testing.T) {
	mw := Idempotency(newFakeStore(), nil)
	req := requestWithPattern(http.MethodPost, "/api/v1/trips", "/api/v1/trips", strings.NewReader(`{}`))
	req.Header.Set("Idempotency-Key", strings.Repeat("k", maxIdempotencyKey+1))
	resp := httptest.NewRecorder()
	mw(http.NotFoundHandler()).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
