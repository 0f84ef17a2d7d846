package places

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
	"github.com/angelmondragon/wayfarer-backend/pkg/maps"
	"github.com/angelmondragon/wayfarer-backend/pkg/redis"
)

type fakeClient struct {
	query       maps.SuggestQuery
	suggestions []maps.CitySuggestion
	place       *maps.Place
	placeCalls  int
	err         error
}

func (f *fakeClient) SuggestCities(_ context.Context, q maps.SuggestQuery) ([]maps.CitySuggestion, error) {
	f.query = q
	return f.suggestions, f.err
}

func (f *fakeClient) Place(_ context.Context, _ string) (*maps.Place, error) {
	f.placeCalls++
	return f.place, f.err
}

type memoryCache struct {
	values map[string]string
	ttl    time.Duration
}

func (m *memoryCache) SetJSON(_ context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = string(raw)
	m.ttl = ttl
	return nil
}

func (m *memoryCache) GetJSON(_ context.Context, key string, out any) error {
	raw, ok := m.values[key]
	if !ok {
		return redis.ErrNotFound
	}
	return json.Unmarshal([]byte(raw), out)
}

func (m *memoryCache) PlaceKey(placeID string) string {
	return "wf:place:" + placeID
}

func goaPlace() *maps.Place {
	return &maps.Place{
		PlaceID:     "p-goa",
		DisplayName: "Panaji",
		Latitude:    15.49,
		Longitude:   73.82,
		Components: []maps.Component{
			{LongText: "Panaji", ShortText: "Panaji", Types: []string{"locality"}},
			{LongText: "Goa", ShortText: "GA", Types: []string{"administrative_area_level_1"}},
			{LongText: "India", ShortText: "in", Types: []string{"country"}},
		},
	}
}

func TestSuggestMapsHits(t *testing.T) {
	client := &fakeClient{suggestions: []maps.CitySuggestion{{PlaceID: "p-1", City: "Jaipur", Secondary: "Rajasthan, India"}}}
	svc, err := NewService(client, nil, 0, logger.Nop())
	require.NoError(t, err)

	got, err := svc.Suggest(context.Background(), SuggestRequest{Query: " jai ", Country: "IN"})
	require.NoError(t, err)
	assert.Equal(t, []Suggestion{{PlaceID: "p-1", City: "Jaipur", Context: "Rajasthan, India"}}, got)
	assert.Equal(t, "jai", client.query.Input)
	assert.Equal(t, "IN", client.query.RegionCode)
}

func TestSuggestRejectsShortQuery(t *testing.T) {
	svc, err := NewService(&fakeClient{}, nil, 0, logger.Nop())
	require.NoError(t, err)

	_, err = svc.Suggest(context.Background(), SuggestRequest{Query: "j"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestResolveBuildsDestinationAndCaches(t *testing.T) {
	client := &fakeClient{place: goaPlace()}
	cache := &memoryCache{values: map[string]string{}}
	svc, err := NewService(client, cache, time.Hour, logger.Nop())
	require.NoError(t, err)

	dest, err := svc.Resolve(context.Background(), "p-goa")
	require.NoError(t, err)
	assert.Equal(t, "Panaji", dest.City)
	assert.Equal(t, "Goa", dest.Region)
	assert.Equal(t, "IN", dest.CountryCode)
	assert.Equal(t, "Panaji, Goa, India", dest.Label)
	assert.Equal(t, time.Hour, cache.ttl)

	again, err := svc.Resolve(context.Background(), "p-goa")
	require.NoError(t, err)
	assert.Equal(t, dest, again)
	assert.Equal(t, 1, client.placeCalls)
}

func TestResolveRequiresCountry(t *testing.T) {
	place := goaPlace()
	place.Components = place.Components[:2]
	svc, err := NewService(&fakeClient{place: place}, nil, 0, logger.Nop())
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), "p-goa")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestResolvePropagatesUpstreamError(t *testing.T) {
	upstream := pkgerrors.New(pkgerrors.CodeNotFound, "place not found")
	svc, err := NewService(&fakeClient{err: upstream}, nil, 0, logger.Nop())
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), "missing")
	assert.True(t, errors.Is(err, upstream))
}
