package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/wayfarer-backend/api/middleware"
	"github.com/angelmondragon/wayfarer-backend/internal/booking"
	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
)

// stubBooking embeds the interface so tests only implement what they call.
type stubBooking struct {
	booking.Service
	payFn    func(ctx context.Context, userID, tripID, key string) (*booking.View, error)
	deleteFn func(ctx context.Context, userID, tripID string, day, activity int) (*booking.View, error)
	openFn   func(ctx context.Context, userID, tripID string, opts booking.OpenOptions) (*booking.View, error)
}

func (s *stubBooking) Pay(ctx context.Context, userID, tripID, key string) (*booking.View, error) {
	return s.payFn(ctx, userID, tripID, key)
}

func (s *stubBooking) DeleteActivity(ctx context.Context, userID, tripID string, day, activity int) (*booking.View, error) {
	return s.deleteFn(ctx, userID, tripID, day, activity)
}

func (s *stubBooking) Open(ctx context.Context, userID, tripID string, opts booking.OpenOptions) (*booking.View, error) {
	return s.openFn(ctx, userID, tripID, opts)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withRoute(req *http.Request, userID string, params map[string]string) *http.Request {
	ctx := req.Context()
	if userID != "" {
		ctx = middleware.WithUserID(ctx, userID)
	}
	routeCtx := chi.NewRouteContext()
	for k, v := range params {
		routeCtx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(ctx, chi.RouteCtxKey, routeCtx))
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func TestPayBookingRequiresIdempotencyKey(t *testing.T) {
	svc := &stubBooking{payFn: func(context.Context, string, string, string) (*booking.View, error) {
		t.Fatal("service should not be called")
		return nil, nil
	}}
	req := withRoute(httptest.NewRequest(http.MethodPost, "/api/v1/trips/trip-1/booking/checkout/pay", nil), "user-1", map[string]string{"tripId": "trip-1"})
	resp := httptest.NewRecorder()
	PayBooking(svc, testLogger())(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestPayBookingFailureCarriesSessionState(t *testing.T) {
	svc := &stubBooking{payFn: func(_ context.Context, userID, tripID, key string) (*booking.View, error) {
		assert.Equal(t, "user-1", userID)
		assert.Equal(t, "trip-1", tripID)
		assert.Equal(t, "key-1", key)
		view := &booking.View{TripID: tripID}
		view.Checkout.State = enums.CheckoutFailed
		view.Checkout.FailureReason = "card declined"
		return view, pkgerrors.New(pkgerrors.CodePaymentFailed, "card declined")
	}}
	req := withRoute(httptest.NewRequest(http.MethodPost, "/", nil), "user-1", map[string]string{"tripId": "trip-1"})
	req.Header.Set("Idempotency-Key", "key-1")
	resp := httptest.NewRecorder()
	PayBooking(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusPaymentRequired, resp.Code)
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	assert.Equal(t, string(pkgerrors.CodePaymentFailed), env.Error.Code)
	assert.Equal(t, "card declined", env.Error.Message)
	state, ok := env.Error.Details["state"].(map[string]any)
	require.True(t, ok, "expected state in details")
	checkout := state["checkout"].(map[string]any)
	assert.Equal(t, string(enums.CheckoutFailed), checkout["state"])
}

func TestPayBookingSuccess(t *testing.T) {
	svc := &stubBooking{payFn: func(_ context.Context, _, tripID, _ string) (*booking.View, error) {
		return &booking.View{TripID: tripID, IsBooked: true, TransactionID: "TXN-1"}, nil
	}}
	req := withRoute(httptest.NewRequest(http.MethodPost, "/", nil), "user-1", map[string]string{"tripId": "trip-1"})
	req.Header.Set("Idempotency-Key", "key-1")
	resp := httptest.NewRecorder()
	PayBooking(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var env struct {
		Data booking.View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	assert.True(t, env.Data.IsBooked)
	assert.Equal(t, "TXN-1", env.Data.TransactionID)
}

func TestDeleteActivityParsesIndexes(t *testing.T) {
	var gotDay, gotActivity int
	svc := &stubBooking{deleteFn: func(_ context.Context, _, _ string, day, activity int) (*booking.View, error) {
		gotDay, gotActivity = day, activity
		return &booking.View{}, nil
	}}
	req := withRoute(httptest.NewRequest(http.MethodDelete, "/", nil), "user-1", map[string]string{
		"tripId": "trip-1", "day": "1", "activity": "3",
	})
	resp := httptest.NewRecorder()
	DeleteActivity(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, gotDay)
	assert.Equal(t, 3, gotActivity)

	bad := withRoute(httptest.NewRequest(http.MethodDelete, "/", nil), "user-1", map[string]string{
		"tripId": "trip-1", "day": "x", "activity": "3",
	})
	resp = httptest.NewRecorder()
	DeleteActivity(svc, testLogger())(resp, bad)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestOpenBookingReadOnlyQuery(t *testing.T) {
	var got booking.OpenOptions
	svc := &stubBooking{openFn: func(_ context.Context, _, _ string, opts booking.OpenOptions) (*booking.View, error) {
		got = opts
		return &booking.View{ReadOnly: opts.ReadOnly}, nil
	}}
	req := withRoute(httptest.NewRequest(http.MethodPost, "/?readOnly=true", nil), "user-1", map[string]string{"tripId": "trip-1"})
	resp := httptest.NewRecorder()
	OpenBooking(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, got.ReadOnly)
}

func TestBookingHandlersRequireUser(t *testing.T) {
	req := withRoute(httptest.NewRequest(http.MethodGet, "/", nil), "", map[string]string{"tripId": "trip-1"})
	resp := httptest.NewRecorder()
	GetBooking(&stubBooking{}, testLogger())(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
