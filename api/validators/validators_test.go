package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
	"github.com/angelmondragon/wayfarer-backend/pkg/pagination"
)

type sampleBody struct {
	Name  string `json:"name" validate:"required,min=3"`
	Email string `json:"email" validate:"omitempty,email"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ab","email":"nope"}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be at least 3", details["name"])
	assert.Equal(t, "must be a valid email", details["email"])
}

func TestDecodeJSONBodyRejectsUnknownAndEmpty(t *testing.T) {
	var body sampleBody
	err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"abc","extra":1}`)), &body)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")), &body)
	require.Error(t, err)
	assert.Equal(t, "request body is required", pkgerrors.As(err).Message())
}

func TestParsePage(t *testing.T) {
	params, err := ParsePage(httptest.NewRequest(http.MethodGet, "/?limit=10&cursor=abc", nil))
	require.NoError(t, err)
	assert.Equal(t, pagination.Params{Limit: 10, Cursor: "abc"}, params)

	params, err = ParsePage(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, pagination.DefaultLimit, params.Limit)

	_, err = ParsePage(httptest.NewRequest(http.MethodGet, "/?limit=1000", nil))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestPathIndex(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("day", "2")
	rctx.URLParams.Add("activity", "-1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	day, err := PathIndex(req, "day")
	require.NoError(t, err)
	assert.Equal(t, 2, day)

	_, err = PathIndex(req, "activity")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = PathID(req, "tripId")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abcdef ", 3))
	assert.Equal(t, "abc", SanitizeString("abc", 0))
}

func TestSanitizeStringIsRuneSafe(t *testing.T) {
	assert.Equal(t, "Zür", SanitizeString(" Zürich ", 3))
	assert.Equal(t, "ab", SanitizeString("a\x00b", 0))
}

func TestDecodeJSONBodyRejectsTrailingDocument(t *testing.T) {
	var body sampleBody
	err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"abc"}{"name":"def"}`)), &body)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyRejectsOversizedBody(t *testing.T) {
	payload := `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	var body sampleBody
	err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload)), &body)
	require.Error(t, err)
	assert.Equal(t, "request body too large", pkgerrors.As(err).Message())
}
