package ai

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
	defaultBaseURL              = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel                = "gemini-1.5-flash"
	responseBodyReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("generative language api key is required")

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one turn of a conversation.
type Message struct {
	Role Role
	Text string
}

// Request is a single generateContent call.
type Request struct {
	System   string
	Messages []Message
	// JSON asks the model to answer with an application/json body.
	JSON        bool
	Temperature *float64
}

// Client calls the generateContent endpoint of a Gemini-style API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
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

// WithModel selects the model used for generation.
func WithModel(model string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(model); trimmed != "" {
			c.model = trimmed
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds a client for the given API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Generate sends the conversation and returns the text of the first candidate.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "generative language client not configured")
	}
	if len(req.Messages) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "at least one message is required")
	}

	body := generateRequest{Contents: make([]content, 0, len(req.Messages))}
	if strings.TrimSpace(req.System) != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.System}}}
	}
	for _, m := range req.Messages {
		role := m.Role
		if role == "" {
			role = RoleUser
		}
		body.Contents = append(body.Contents, content{Role: string(role), Parts: []part{{Text: m.Text}}})
	}
	if req.JSON {
		body.GenerationConfig.ResponseMimeType = "application/json"
	}
	body.GenerationConfig.Temperature = req.Temperature

	payload, err := json.Marshal(body)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal generate request")
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(c.baseURL, "/"), url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build generate request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute generate request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		code := pkgerrors.CodeDependency
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusForbidden {
			code = pkgerrors.CodeValidation
		}
		return "", pkgerrors.Wrap(code, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "generate request failed")
	}

	var apiResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode generate response")
	}
	if reason := apiResp.PromptFeedback.BlockReason; reason != "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "prompt was blocked: "+strings.ToLower(reason))
	}

	var sb strings.Builder
	if len(apiResp.Candidates) > 0 {
		for _, p := range apiResp.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "generate response contained no text")
	}
	return text, nil
}

// ExtractJSON strips a markdown code fence around a JSON answer.
func ExtractJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
		trimmed = trimmed[nl+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
