package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/wayfarer-backend/api/responses"
	"github.com/angelmondragon/wayfarer-backend/api/validators"
	"github.com/angelmondragon/wayfarer-backend/internal/booking"
	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
)

type bookingAction func(r *http.Request, userID, tripID string) (*booking.View, error)

// bookingHandler resolves the caller and trip, runs fn and renders the view.
func bookingHandler(logg *logger.Logger, fn bookingAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tripID, err := validators.PathID(r, "tripId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			r = r.WithContext(logg.WithTripID(r.Context(), tripID))
		}
		view, err := fn(r, userID, tripID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type promoRequest struct {
	Code string `json:"code" validate:"max=40"`
}

// OpenBooking starts or resumes the caller's booking session. readOnly=true
// opens the trip for viewing only.
func OpenBooking(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingHandler(logg, func(r *http.Request, userID, tripID string) (*booking.View, error) {
		readOnly := false
		if raw := strings.TrimSpace(r.URL.Query().Get("readOnly")); raw != "" {
			value, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid readOnly value")
			}
			readOnly = value
		}
		return svc.Open(r.Context(), userID, tripID, booking.OpenOptions{ReadOnly: readOnly})
	})
}

func GetBooking(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingHandler(logg, func(r *http.Request, userID, tripID string) (*booking.View, error) {
		return svc.View(r.Context(), userID, tripID)
	})
}

func BeginEdit(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingHandler(logg, func(r *http.Request, userID, tripID string) (*booking.View, error) {
		return svc.BeginEdit(r.Context(), userID, tripID)
	})
}

func EditActivity(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingHandler(logg, func(r *http.Request, userID, tripID string) (*booking.View, error) {
		var edit booking.ActivityEdit
		if err := validators.DecodeJSONBody(r, &edit); err != nil {
			return nil, err
		}
		return svc.EditActivity(r.Context(), userID, tripID, edit)
	})
}

func DeleteActivity(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingHandler(logg, func(r *http.Request, userID, tripID string) (*booking.View, error) {
		day, err := validators.PathIndex(r, "day")
		if err != nil {
			return nil, err
		}
		activity, err := validators.PathIndex(r, "activity")
		if err != nil {
			return nil, err
		}
		return svc.DeleteActivity(r.Context(), userID, tripID, day, activity)
	})
}

func EditDetails(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingHandler(logg, func(r *http.Request, userID, tripID string) (*booking.View, error) {
		var edit booking.DetailsEdit
		if err := validators.DecodeJSONBody(r, &edit); err != nil {
			return nil, err
		}
		return svc.EditDetails(r.Context(), userID, tripID, edit)
	})
}

func SaveEdits(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingHandler(logg, func(r *http.Request, userID, tripID string) (*booking.View, error) {
		return svc.SaveEdits(r.Context(), userID, tripID)
	})
}

func DiscardEdits(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingHandler(logg, func(r *http.Request, userID, tripID string) (*booking.View, error) {
		return svc.DiscardEdits(r.Context(), userID, tripID)
	})
}

func OpenCheckout(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingHandler(logg, func(r *http.Request, userID, tripID string) (*booking.View, error) {
		return svc.OpenCheckout(r.Context(), userID, tripID)
	})
}

func UpdateCheckout(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingHandler(logg, func(r *http.Request, userID, tripID string) (*booking.View, error) {
		var update booking.CheckoutUpdate
		if err := validators.DecodeJSONBody(r, &update); err != nil {
			return nil, err
		}
		return svc.UpdateCheckout(r.Context(), userID, tripID, update)
	})
}

func SetFriend(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingHandler(logg, func(r *http.Request, userID, tripID string) (*booking.View, error) {
		index, err := validators.PathIndex(r, "index")
		if err != nil {
			return nil, err
		}
		var friend booking.Friend
		if err := validators.DecodeJSONBody(r, &friend); err != nil {
			return nil, err
		}
		return svc.SetFriend(r.Context(), userID, tripID, index, friend)
	})
}

// ApplyPromo applies a promo code. An unknown code is not an error; the
// view carries the promo message instead.
func ApplyPromo(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingHandler(logg, func(r *http.Request, userID, tripID string) (*booking.View, error) {
		var body promoRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.ApplyPromo(r.Context(), userID, tripID, body.Code)
	})
}

func CloseCheckout(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingHandler(logg, func(r *http.Request, userID, tripID string) (*booking.View, error) {
		return svc.CloseCheckout(r.Context(), userID, tripID)
	})
}

// PayBooking charges the selected method. A declined payment renders the
// error with the FAILED session attached so clients can offer a retry.
func PayBooking(svc booking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tripID, err := validators.PathID(r, "tripId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		if key == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header is required"))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithTripID(ctx, tripID)
		}
		view, err := svc.Pay(ctx, userID, tripID, key)
		if err != nil {
			if view != nil {
				responses.WriteErrorWithState(ctx, logg, w, err, view)
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
