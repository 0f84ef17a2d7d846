package controllers

import (
	"net/http"

	"github.com/angelmondragon/wayfarer-backend/api/responses"
	"github.com/angelmondragon/wayfarer-backend/api/validators"
	"github.com/angelmondragon/wayfarer-backend/internal/places"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
)

const placeQueryMaxLen = 120

// SuggestDestinations autocompletes city names for the trip planner.
func SuggestDestinations(svc places.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		suggestions, err := svc.Suggest(r.Context(), places.SuggestRequest{
			Query:    validators.SanitizeString(q.Get("q"), placeQueryMaxLen),
			Country:  validators.SanitizeString(q.Get("country"), 2),
			Language: validators.SanitizeString(q.Get("lang"), 8),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, suggestions)
	}
}

func ResolveDestination(svc places.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		placeID, err := validators.PathID(r, "placeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dest, err := svc.Resolve(r.Context(), placeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dest)
	}
}
