package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/angelmondragon/wayfarer-backend/pkg/docstore"
	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
	"github.com/angelmondragon/wayfarer-backend/pkg/pagination"
)

// Indexes backs room history paging.
var Indexes = []docstore.Index{
	{Collection: collection, Keys: []string{"room_id", "created_at"}},
}

// Membership decides who may read and post in a room. Rooms are communities.
type Membership interface {
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
}

// Service stores room messages and streams room changes.
type Service interface {
	Send(ctx context.Context, userID, roomID, content string) (*Message, error)
	History(ctx context.Context, userID, roomID string, params pagination.Params) (pagination.Page[Message], error)
	Edit(ctx context.Context, userID, messageID, content string) (*Message, error)
	Delete(ctx context.Context, userID, messageID string) error
	// Subscribe calls fn for every message event in the room until ctx ends
	// or the returned func is called.
	Subscribe(ctx context.Context, userID, roomID string, fn func(Event)) (docstore.Unsubscribe, error)
}

type service struct {
	store   docstore.Store
	members Membership
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(store docstore.Store, members Membership, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("document store required")
	}
	if members == nil {
		return nil, fmt.Errorf("membership required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{store: store, members: members, logg: logg, now: time.Now}, nil
}

func (s *service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *service) authorize(ctx context.Context, userID, roomID string) error {
	if strings.TrimSpace(userID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	ok, err := s.members.IsMember(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "join the community to use its chat")
	}
	return nil
}

func cleanContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "message is empty")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "message is too long").
			WithDetails(map[string]any{"max": MaxContentLength})
	}
	return content, nil
}

func (s *service) Send(ctx context.Context, userID, roomID, content string) (*Message, error) {
	if err := s.authorize(ctx, userID, roomID); err != nil {
		return nil, err
	}
	content, err := cleanContent(content)
	if err != nil {
		return nil, err
	}
	doc := messageDocument{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		SenderID:  userID,
		Content:   content,
		CreatedAt: s.timestamp(),
	}
	if _, err := s.store.Create(ctx, collection, doc); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save message")
	}
	msg := doc.toMessage()
	return &msg, nil
}

// History returns the room's messages newest first.
func (s *service) History(ctx context.Context, userID, roomID string, params pagination.Params) (pagination.Page[Message], error) {
	if err := s.authorize(ctx, userID, roomID); err != nil {
		return pagination.Page[Message]{}, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[Message]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if params.Limit <= 0 {
		params.Limit = historyLimit
	}

	filter := docstore.Filter{"room_id": roomID, "deleted": false}
	if cursor != nil {
		filter["$or"] = []docstore.Filter{
			{"created_at": docstore.Filter{"$lt": cursor.CreatedAt}},
			{"created_at": cursor.CreatedAt, "_id": docstore.Filter{"$lt": cursor.ID.String()}},
		}
	}
	var docs []messageDocument
	err = s.store.Find(ctx, collection, filter, docstore.FindOptions{
		Sort: []docstore.Sort{
			{Field: "created_at", Desc: true},
			{Field: "_id", Desc: true},
		},
		Limit: int64(pagination.LimitWithBuffer(params.Limit)),
	}, &docs)
	if err != nil {
		return pagination.Page[Message]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load messages")
	}
	items := make([]Message, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.toMessage())
	}
	return pagination.Trim(items, params.Limit, func(m Message) pagination.Cursor {
		id, _ := uuid.Parse(m.ID)
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: id}
	}), nil
}

func (s *service) Edit(ctx context.Context, userID, messageID, content string) (*Message, error) {
	content, err := cleanContent(content)
	if err != nil {
		return nil, err
	}
	doc, err := s.own(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}
	edited := s.timestamp()
	if _, err := s.store.Update(ctx, collection, messageID, docstore.Fields{
		"content":   content,
		"edited_at": edited,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update message")
	}
	doc.Content = content
	doc.EditedAt = &edited
	msg := doc.toMessage()
	return &msg, nil
}

// Delete hides the message. The document is kept so room subscribers
// receive the change.
func (s *service) Delete(ctx context.Context, userID, messageID string) error {
	if _, err := s.own(ctx, userID, messageID); err != nil {
		return err
	}
	if _, err := s.store.Update(ctx, collection, messageID, docstore.Fields{
		"deleted": true,
		"content": "",
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete message")
	}
	return nil
}

func (s *service) own(ctx context.Context, userID, messageID string) (*messageDocument, error) {
	if strings.TrimSpace(messageID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message id is required")
	}
	var doc messageDocument
	found, err := s.store.Get(ctx, collection, messageID, &doc)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load message")
	}
	if !found || doc.Deleted {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "message not found")
	}
	if doc.SenderID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the sender can change a message")
	}
	return &doc, nil
}

func (s *service) Subscribe(ctx context.Context, userID, roomID string, fn func(Event)) (docstore.Unsubscribe, error) {
	if err := s.authorize(ctx, userID, roomID); err != nil {
		return nil, err
	}
	subCtx := s.logg.WithFields(ctx, map[string]any{"room_id": roomID, "user_id": userID})
	unsubscribe, err := s.store.Subscribe(ctx, collection, docstore.Filter{"room_id": roomID}, func(ch docstore.Change) {
		var doc messageDocument
		if err := ch.Decode(&doc); err != nil {
			s.logg.Warn(subCtx, "undecodable chat change: "+err.Error())
			return
		}
		ev := Event{ID: doc.ID}
		switch {
		case doc.Deleted:
			ev.Action = enums.ChatActionDelete
		case ch.Operation == docstore.OpInsert:
			ev.Action = enums.ChatActionMessage
		default:
			ev.Action = enums.ChatActionEdit
		}
		if ev.Action != enums.ChatActionDelete {
			msg := doc.toMessage()
			ev.Message = &msg
		}
		fn(ev)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe to room")
	}
	return unsubscribe, nil
}
