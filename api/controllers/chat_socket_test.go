package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/wayfarer-backend/api/middleware"
	"github.com/angelmondragon/wayfarer-backend/internal/chat"
	"github.com/angelmondragon/wayfarer-backend/pkg/docstore"
	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
)

type roomMembers map[string][]string

func (m roomMembers) IsMember(_ context.Context, roomID, userID string) (bool, error) {
	for _, id := range m[roomID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func socketServer(t *testing.T, svc chat.Service) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := r.URL.Query().Get("user")
			next.ServeHTTP(w, r.WithContext(middleware.WithUserID(r.Context(), user)))
		})
	})
	r.Get("/communities/{communityId}/socket", ChatSocket(svc, []string{"*"}, testLogger()))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dialRoom(t *testing.T, srv *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/communities/room-1/socket?user=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestChatSocketBroadcastsRoomMessages(t *testing.T) {
	svc, err := chat.NewService(docstore.NewMemory(), roomMembers{"room-1": {"alice", "bob"}}, nil)
	require.NoError(t, err)
	srv := socketServer(t, svc)

	bob := dialRoom(t, srv, "bob")
	alice := dialRoom(t, srv, "alice")

	require.NoError(t, alice.WriteJSON(map[string]string{"action": "message", "content": "hello goa"}))

	var ev chat.Event
	require.NoError(t, bob.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, bob.ReadJSON(&ev))
	assert.Equal(t, enums.ChatActionMessage, ev.Action)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "hello goa", ev.Message.Content)
	assert.Equal(t, "alice", ev.Message.SenderID)
}

func TestChatSocketReportsRejectedActions(t *testing.T) {
	svc, err := chat.NewService(docstore.NewMemory(), roomMembers{"room-1": {"alice"}}, nil)
	require.NoError(t, err)
	srv := socketServer(t, svc)
	alice := dialRoom(t, srv, "alice")

	require.NoError(t, alice.WriteJSON(map[string]string{"action": "edit", "id": "missing", "content": "x"}))

	var reply socketError
	require.NoError(t, alice.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, alice.ReadJSON(&reply))
	assert.Equal(t, "edit", reply.Action)
	assert.Equal(t, "NOT_FOUND", reply.Code)
}

func TestChatSocketRejectsNonMembers(t *testing.T) {
	svc, err := chat.NewService(docstore.NewMemory(), roomMembers{"room-1": {"alice"}}, nil)
	require.NoError(t, err)
	srv := socketServer(t, svc)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/communities/room-1/socket?user=mallory"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
