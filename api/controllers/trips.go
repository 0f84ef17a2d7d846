package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/angelmondragon/wayfarer-backend/api/middleware"
	"github.com/angelmondragon/wayfarer-backend/api/responses"
	"github.com/angelmondragon/wayfarer-backend/api/validators"
	"github.com/angelmondragon/wayfarer-backend/internal/exports"
	"github.com/angelmondragon/wayfarer-backend/internal/trips"
	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
)

type itineraryExporter interface {
	ItineraryPDF(ctx context.Context, userID, tripID string) (*exports.Document, error)
}

func requireUser(r *http.Request) (string, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return userID, nil
}

// ListTrips returns the caller's saved trips, newest first.
func ListTrips(svc trips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// GenerateTrip builds and saves an itinerary from the posted preferences.
func GenerateTrip(svc trips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var prefs trips.TripPreferences
		if err := validators.DecodeJSONBody(r, &prefs); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		trip, err := svc.Generate(r.Context(), userID, prefs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, trip)
	}
}

func GetTrip(svc trips.Service, logg *logger.Logger) http.HandlerFunc {
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
		trip, err := svc.Get(r.Context(), userID, tripID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, trip)
	}
}

func DeleteTrip(svc trips.Service, logg *logger.Logger) http.HandlerFunc {
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
		if err := svc.Delete(r.Context(), userID, tripID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

// ExportTripPDF streams the itinerary as a PDF attachment.
func ExportTripPDF(svc itineraryExporter, logg *logger.Logger) http.HandlerFunc {
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
		doc, err := svc.ItineraryPDF(r.Context(), userID, tripID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Content-Type", doc.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(doc.Body); err != nil && logg != nil {
			logg.Error(r.Context(), "export.write_failed", err)
		}
	}
}
