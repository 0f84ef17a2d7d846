package maps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://places.googleapis.com/v1"
	citiesTypeCollection        = "(cities)"
	suggestFieldMask            = "suggestions.placePrediction.placeId,suggestions.placePrediction.structuredFormat"
	placeFieldMask              = "id,displayName,formattedAddress,location,addressComponents"
	responseBodyReadLimit int64 = 1024
	defaultTimeout              = 10 * time.Second
)

var errAPIKeyRequired = errors.New("places api key is required")

// Client looks up travel destinations through the Google Places API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the Places base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, errAPIKeyRequired
	}
	client := &Client{
		apiKey:     key,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// SuggestQuery restricts autocomplete to cities, optionally biased to a region.
type SuggestQuery struct {
	Input      string
	RegionCode string
	Language   string
}

// CitySuggestion is one autocomplete hit.
type CitySuggestion struct {
	PlaceID   string
	City      string
	Secondary string
}

// Place is the resolved detail record for a place ID.
type Place struct {
	PlaceID          string
	DisplayName      string
	FormattedAddress string
	Latitude         float64
	Longitude        float64
	Components       []Component
}

// Component is one address component of a resolved place.
type Component struct {
	LongText  string
	ShortText string
	Types     []string
}

// Find returns the first component carrying kind.
func (p *Place) Find(kind string) (Component, bool) {
	for _, comp := range p.Components {
		for _, typ := range comp.Types {
			if typ == kind {
				return comp, true
			}
		}
	}
	return Component{}, false
}

type suggestRequest struct {
	Input                string   `json:"input"`
	IncludedPrimaryTypes []string `json:"includedPrimaryTypes"`
	IncludedRegionCodes  []string `json:"includedRegionCodes,omitempty"`
	LanguageCode         string   `json:"languageCode,omitempty"`
}

type suggestResponse struct {
	Suggestions []struct {
		Prediction struct {
			PlaceID   string `json:"placeId"`
			Formatted struct {
				Main struct {
					Text string `json:"text"`
				} `json:"mainText"`
				Secondary struct {
					Text string `json:"text"`
				} `json:"secondaryText"`
			} `json:"structuredFormat"`
		} `json:"placePrediction"`
	} `json:"suggestions"`
}

type placeResponse struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress string `json:"formattedAddress"`
	Location         struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	AddressComponents []struct {
		LongText  string   `json:"longText"`
		ShortText string   `json:"shortText"`
		Types     []string `json:"types"`
	} `json:"addressComponents"`
}

// SuggestCities returns city predictions for partial input.
func (c *Client) SuggestCities(ctx context.Context, q SuggestQuery) ([]CitySuggestion, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "places client not configured")
	}
	input := strings.TrimSpace(q.Input)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search input is required")
	}

	body := suggestRequest{
		Input:                input,
		IncludedPrimaryTypes: []string{citiesTypeCollection},
		LanguageCode:         strings.TrimSpace(q.Language),
	}
	if region := strings.TrimSpace(q.RegionCode); region != "" {
		body.IncludedRegionCodes = []string{strings.ToLower(region)}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode places suggest request")
	}

	var resp suggestResponse
	if err := c.do(ctx, http.MethodPost, c.endpoint("places:autocomplete"), suggestFieldMask, payload, &resp); err != nil {
		return nil, err
	}

	out := make([]CitySuggestion, 0, len(resp.Suggestions))
	for _, s := range resp.Suggestions {
		if s.Prediction.PlaceID == "" {
			continue
		}
		out = append(out, CitySuggestion{
			PlaceID:   s.Prediction.PlaceID,
			City:      s.Prediction.Formatted.Main.Text,
			Secondary: s.Prediction.Formatted.Secondary.Text,
		})
	}
	return out, nil
}

// Place resolves a place ID into its display name, coordinates and components.
func (c *Client) Place(ctx context.Context, placeID string) (*Place, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "places client not configured")
	}
	id := strings.TrimSpace(placeID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "place id is required")
	}

	var resp placeResponse
	if err := c.do(ctx, http.MethodGet, c.endpoint("places/"+url.PathEscape(id)), placeFieldMask, nil, &resp); err != nil {
		return nil, err
	}

	place := &Place{
		PlaceID:          resp.ID,
		DisplayName:      resp.DisplayName.Text,
		FormattedAddress: resp.FormattedAddress,
		Latitude:         resp.Location.Latitude,
		Longitude:        resp.Location.Longitude,
		Components:       make([]Component, 0, len(resp.AddressComponents)),
	}
	for _, comp := range resp.AddressComponents {
		place.Components = append(place.Components, Component{
			LongText:  comp.LongText,
			ShortText: comp.ShortText,
			Types:     comp.Types,
		})
	}
	return place, nil
}

func (c *Client) do(ctx context.Context, method, endpoint, fieldMask string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build places request")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "places request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, "place not found")
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "places request rejected")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode places response")
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
