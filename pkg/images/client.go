package images

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.unsplash.com"
	maxPerPage                  = 30
	responseBodyReadLimit int64 = 1024
)

var errAccessKeyRequired = errors.New("image search access key is required")

// Photo is a single search hit.
type Photo struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	ThumbURL    string `json:"thumbUrl"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
}

// Client searches an Unsplash-style photo API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	accessKey  string
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

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the search client for an access key.
func NewClient(accessKey string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(accessKey)
	if trimmed == "" {
		return nil, errAccessKeyRequired
	}
	client := &Client{
		accessKey:  trimmed,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Search returns up to limit landscape photos for query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Photo, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "image search client not configured")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}
	if limit <= 0 {
		limit = 1
	}
	if limit > maxPerPage {
		limit = maxPerPage
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(limit))
	params.Set("orientation", "landscape")
	endpoint := fmt.Sprintf("%s/search/photos?%s", strings.TrimRight(c.baseURL, "/"), params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build image search request")
	}
	httpReq.Header.Set("Authorization", "Client-ID "+c.accessKey)
	httpReq.Header.Set("Accept-Version", "v1")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute image search request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "image search request failed")
	}

	var apiResp struct {
		Results []struct {
			ID             string `json:"id"`
			AltDescription string `json:"alt_description"`
			URLs           struct {
				Regular string `json:"regular"`
				Small   string `json:"small"`
			} `json:"urls"`
			User struct {
				Name string `json:"name"`
			} `json:"user"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode image search response")
	}

	photos := make([]Photo, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		photos = append(photos, Photo{
			ID:          r.ID,
			URL:         r.URLs.Regular,
			ThumbURL:    r.URLs.Small,
			Description: r.AltDescription,
			Author:      r.User.Name,
		})
	}
	return photos, nil
}

// CoverURL returns the first photo URL for query, or "" when nothing matched.
func (c *Client) CoverURL(ctx context.Context, query string) (string, error) {
	photos, err := c.Search(ctx, query, 1)
	if err != nil {
		return "", err
	}
	if len(photos) == 0 {
		return "", nil
	}
	return photos[0].URL, nil
}
