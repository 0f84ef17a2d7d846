package places

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
	"github.com/angelmondragon/wayfarer-backend/pkg/maps"
	"github.com/angelmondragon/wayfarer-backend/pkg/redis"
)

const defaultCacheTTL = 24 * time.Hour

type placesClient interface {
	SuggestCities(ctx context.Context, q maps.SuggestQuery) ([]maps.CitySuggestion, error)
	Place(ctx context.Context, placeID string) (*maps.Place, error)
}

type destinationCache interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, out any) error
	PlaceKey(placeID string) string
}

// Suggestion is a destination the user can pick while planning.
type Suggestion struct {
	PlaceID string `json:"placeId"`
	City    string `json:"city"`
	Context string `json:"context,omitempty"`
}

// Destination is a resolved city, ready to feed into trip preferences.
type Destination struct {
	PlaceID     string  `json:"placeId"`
	City        string  `json:"city"`
	Region      string  `json:"region,omitempty"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Label       string  `json:"label"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

type SuggestRequest struct {
	Query    string
	Country  string
	Language string
}

type Service interface {
	Suggest(ctx context.Context, req SuggestRequest) ([]Suggestion, error)
	Resolve(ctx context.Context, placeID string) (*Destination, error)
}

type service struct {
	client placesClient
	cache  destinationCache
	ttl    time.Duration
	logg   *logger.Logger
}

// NewService builds the destination lookup. cache may be nil.
func NewService(client placesClient, cache destinationCache, ttl time.Duration, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("places client required")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{client: client, cache: cache, ttl: ttl, logg: logg}, nil
}

func (s *service) Suggest(ctx context.Context, req SuggestRequest) ([]Suggestion, error) {
	query := strings.TrimSpace(req.Query)
	if len([]rune(query)) < 2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query must be at least 2 characters")
	}

	hits, err := s.client.SuggestCities(ctx, maps.SuggestQuery{
		Input:      query,
		RegionCode: req.Country,
		Language:   req.Language,
	})
	if err != nil {
		return nil, err
	}

	out := make([]Suggestion, 0, len(hits))
	for _, hit := range hits {
		out = append(out, Suggestion{PlaceID: hit.PlaceID, City: hit.City, Context: hit.Secondary})
	}
	return out, nil
}

func (s *service) Resolve(ctx context.Context, placeID string) (*Destination, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "place id is required")
	}

	if s.cache != nil {
		var cached Destination
		err := s.cache.GetJSON(ctx, s.cache.PlaceKey(placeID), &cached)
		switch {
		case err == nil:
			return &cached, nil
		case !errors.Is(err, redis.ErrNotFound):
			s.logg.Warn(s.logg.WithField(ctx, "place_id", placeID), "destination cache read failed: "+err.Error())
		}
	}

	place, err := s.client.Place(ctx, placeID)
	if err != nil {
		return nil, err
	}
	dest, err := toDestination(place)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, s.cache.PlaceKey(placeID), dest, s.ttl); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "place_id", placeID), "destination cache write failed: "+err.Error())
		}
	}
	return dest, nil
}

func toDestination(place *maps.Place) (*Destination, error) {
	if place == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "place details missing")
	}
	country, ok := place.Find("country")
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "place is not within a country")
	}

	city := strings.TrimSpace(place.DisplayName)
	if city == "" {
		if locality, ok := place.Find("locality"); ok {
			city = locality.LongText
		}
	}
	if city == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "place has no city name")
	}

	dest := &Destination{
		PlaceID:     place.PlaceID,
		City:        city,
		Country:     country.LongText,
		CountryCode: strings.ToUpper(country.ShortText),
		Latitude:    place.Latitude,
		Longitude:   place.Longitude,
	}
	if region, ok := place.Find("administrative_area_level_1"); ok && region.LongText != city {
		dest.Region = region.LongText
	}

	parts := []string{dest.City}
	if dest.Region != "" {
		parts = append(parts, dest.Region)
	}
	dest.Label = strings.Join(append(parts, dest.Country), ", ")
	return dest, nil
}
