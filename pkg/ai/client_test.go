package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func TestGenerateRequestShape(t *testing.T) {
	const expectedURL = "http://ai.test/v1beta/models/gemini-test:generateContent?key=test-key"
	var capturedURL string
	var payload generateRequest

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}
		return jsonResponse(http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"ok\":"},{"text":"true}"}]}}]}`), nil
	})

	client, err := NewClient("test-key",
		WithBaseURL("http://ai.test/v1beta"),
		WithModel("gemini-test"),
		WithHTTPClient(&http.Client{Transport: rt}),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	text, err := client.Generate(context.Background(), Request{
		System: "you plan trips",
		Messages: []Message{
			{Role: RoleUser, Text: "plan goa"},
			{Role: RoleModel, Text: "sure"},
			{Text: "as json"},
		},
		JSON: true,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if text != `{"ok":true}` {
		t.Fatalf("unexpected text %q", text)
	}
	if payload.SystemInstruction == nil || payload.SystemInstruction.Parts[0].Text != "you plan trips" {
		t.Fatalf("system instruction missing: %+v", payload.SystemInstruction)
	}
	if len(payload.Contents) != 3 || payload.Contents[2].Role != "user" || payload.Contents[1].Role != "model" {
		t.Fatalf("unexpected contents %+v", payload.Contents)
	}
	if payload.GenerationConfig.ResponseMimeType != "application/json" {
		t.Fatalf("expected json mime type, got %q", payload.GenerationConfig.ResponseMimeType)
	}
}

func TestGenerateErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		code   pkgerrors.Code
	}{
		{name: "server error", status: http.StatusServiceUnavailable, body: "overloaded", code: pkgerrors.CodeDependency},
		{name: "bad request", status: http.StatusBadRequest, body: "bad model", code: pkgerrors.CodeValidation},
		{name: "blocked prompt", status: http.StatusOK, body: `{"promptFeedback":{"blockReason":"SAFETY"}}`, code: pkgerrors.CodeValidation},
		{name: "empty answer", status: http.StatusOK, body: `{"candidates":[]}`, code: pkgerrors.CodeDependency},
		{name: "bad json", status: http.StatusOK, body: `{`, code: pkgerrors.CodeDependency},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
				return jsonResponse(tc.status, tc.body), nil
			})
			client, err := NewClient("k", WithHTTPClient(&http.Client{Transport: rt}))
			if err != nil {
				t.Fatalf("new client: %v", err)
			}
			_, err = client.Generate(context.Background(), Request{Messages: []Message{{Text: "hi"}}})
			if !pkgerrors.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestGenerateRequiresMessagesAndClient(t *testing.T) {
	var nilClient *Client
	if _, err := nilClient.Generate(context.Background(), Request{}); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}

	client, err := NewClient("k")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Generate(context.Background(), Request{}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatal("expected error for blank api key")
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: `{"a":1}`, want: `{"a":1}`},
		{in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{in: "```\n[1,2]\n```", want: `[1,2]`},
		{in: "  \n{\"b\":2}\n ", want: `{"b":2}`},
	}
	for _, tc := range cases {
		if got := ExtractJSON(tc.in); got != tc.want {
			t.Fatalf("ExtractJSON(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
