package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/wayfarer-backend/internal/communities"
	"github.com/angelmondragon/wayfarer-backend/pkg/pagination"
)

type stubCommunities struct {
	communities.Service
	listFn func(ctx context.Context, params communities.ListParams) (pagination.Page[communities.Community], error)
}

func (s *stubCommunities) List(ctx context.Context, params communities.ListParams) (pagination.Page[communities.Community], error) {
	return s.listFn(ctx, params)
}

func TestListCommunitiesMineFiltersByMember(t *testing.T) {
	var got communities.ListParams
	svc := &stubCommunities{listFn: func(_ context.Context, params communities.ListParams) (pagination.Page[communities.Community], error) {
		got = params
		return pagination.Page[communities.Community]{Items: []communities.Community{
			{ID: "c-1", Name: "Goa Backpackers", OwnerID: "user-1", Members: []string{"user-1"}, MemberCount: 1},
		}}, nil
	}}
	req := withRoute(httptest.NewRequest(http.MethodGet, "/?mine=true&destination=%20Goa%20&limit=5", nil), "user-1", nil)
	resp := httptest.NewRecorder()
	ListCommunities(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "user-1", got.MemberID)
	assert.Equal(t, "Goa", got.Destination)
	assert.Equal(t, 5, got.Limit)

	var env struct {
		Data struct {
			Items []map[string]any `json:"items"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	require.Len(t, env.Data.Items, 1)
	assert.Equal(t, "owner", env.Data.Items[0]["role"])
	assert.NotContains(t, env.Data.Items[0], "members")
}

func TestListCommunitiesRejectsBadMineFlag(t *testing.T) {
	req := withRoute(httptest.NewRequest(http.MethodGet, "/?mine=perhaps", nil), "user-1", nil)
	resp := httptest.NewRecorder()
	ListCommunities(&stubCommunities{}, testLogger())(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
