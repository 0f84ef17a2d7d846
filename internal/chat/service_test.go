package chat

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/wayfarer-backend/pkg/docstore"
	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
	"github.com/angelmondragon/wayfarer-backend/pkg/pagination"
)

type stubMembership map[string][]string

func (m stubMembership) IsMember(_ context.Context, roomID, userID string) (bool, error) {
	members, ok := m[roomID]
	if !ok {
		return false, pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
	}
	for _, id := range members {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func newChat(t *testing.T) *service {
	t.Helper()
	svc, err := NewService(docstore.NewMemory(), stubMembership{"room-1": {"alice", "bob"}}, nil)
	require.NoError(t, err)
	s := svc.(*service)
	clock := time.Date(2024, 11, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	s.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestSendAndHistory(t *testing.T) {
	svc := newChat(t)
	ctx := context.Background()

	for _, text := range []string{"hi", "who is in Goa?", "me!"} {
		_, err := svc.Send(ctx, "alice", "room-1", text)
		require.NoError(t, err)
	}

	page, err := svc.History(ctx, "bob", "room-1", pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "me!", page.Items[0].Content)
	assert.Equal(t, "who is in Goa?", page.Items[1].Content)

	rest, err := svc.History(ctx, "bob", "room-1", pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Equal(t, "hi", rest.Items[0].Content)
}

func TestSendRequiresMembership(t *testing.T) {
	svc := newChat(t)

	_, err := svc.Send(context.Background(), "mallory", "room-1", "hello")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Send(context.Background(), "alice", "room-9", "hello")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSendValidatesContent(t *testing.T) {
	svc := newChat(t)

	_, err := svc.Send(context.Background(), "alice", "room-1", "   ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Send(context.Background(), "alice", "room-1", strings.Repeat("a", MaxContentLength+1))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestEditAndDeleteBySenderOnly(t *testing.T) {
	svc := newChat(t)
	ctx := context.Background()
	msg, err := svc.Send(ctx, "alice", "room-1", "typo")
	require.NoError(t, err)

	_, err = svc.Edit(ctx, "bob", msg.ID, "hijack")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	edited, err := svc.Edit(ctx, "alice", msg.ID, "fixed")
	require.NoError(t, err)
	assert.Equal(t, "fixed", edited.Content)
	require.NotNil(t, edited.EditedAt)

	assert.True(t, pkgerrors.IsCode(svc.Delete(ctx, "bob", msg.ID), pkgerrors.CodeForbidden))
	require.NoError(t, svc.Delete(ctx, "alice", msg.ID))
	assert.True(t, pkgerrors.IsCode(svc.Delete(ctx, "alice", msg.ID), pkgerrors.CodeNotFound))

	page, err := svc.History(ctx, "alice", "room-1", pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestSubscribeStreamsRoomEvents(t *testing.T) {
	svc := newChat(t)
	ctx := context.Background()

	var events []Event
	unsubscribe, err := svc.Subscribe(ctx, "bob", "room-1", func(ev Event) {
		events = append(events, ev)
	})
	require.NoError(t, err)

	msg, err := svc.Send(ctx, "alice", "room-1", "hello")
	require.NoError(t, err)
	_, err = svc.Edit(ctx, "alice", msg.ID, "hello all")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "alice", msg.ID))

	unsubscribe()
	_, err = svc.Send(ctx, "alice", "room-1", "after unsubscribe")
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, enums.ChatActionMessage, events[0].Action)
	assert.Equal(t, "hello", events[0].Message.Content)
	assert.Equal(t, enums.ChatActionEdit, events[1].Action)
	assert.Equal(t, "hello all", events[1].Message.Content)
	assert.Equal(t, enums.ChatActionDelete, events[2].Action)
	assert.Equal(t, msg.ID, events[2].ID)
	assert.Nil(t, events[2].Message)
}

func TestSubscribeRequiresMembership(t *testing.T) {
	svc := newChat(t)
	_, err := svc.Subscribe(context.Background(), "mallory", "room-1", func(Event) {})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}
