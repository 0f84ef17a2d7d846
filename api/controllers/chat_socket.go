package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/angelmondragon/wayfarer-backend/api/responses"
	"github.com/angelmondragon/wayfarer-backend/api/validators"
	"github.com/angelmondragon/wayfarer-backend/internal/chat"
	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
)

const (
	socketWriteWait  = 10 * time.Second
	socketPongWait   = 60 * time.Second
	socketPingPeriod = (socketPongWait * 9) / 10
	socketSendBuffer = 64
	socketMaxMessage = 8 << 10
)

// socketInbound is what clients send over the room socket.
type socketInbound struct {
	Action  enums.ChatAction `json:"action"`
	ID      string           `json:"id,omitempty"`
	Content string           `json:"content,omitempty"`
}

// socketError reports a rejected inbound action back to the sender only.
type socketError struct {
	Action string `json:"action"`
	Code   string `json:"code"`
	Error  string `json:"error"`
}

// ChatSocket upgrades to a websocket that streams room events and accepts
// message, edit and delete actions.
func ChatSocket(svc chat.Service, origins []string, logg *logger.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(origins),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		roomID, err := validators.PathID(r, "communityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// The stream outlives the request context once the connection is hijacked.
		ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
		send := make(chan []byte, socketSendBuffer)
		unsubscribe, err := svc.Subscribe(ctx, userID, roomID, func(ev chat.Event) {
			data, err := json.Marshal(ev)
			if err != nil {
				return
			}
			select {
			case send <- data:
			default:
				if logg != nil {
					logg.Warn(ctx, "chat.socket.dropped_event")
				}
			}
		})
		if err != nil {
			cancel()
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			unsubscribe()
			cancel()
			if logg != nil {
				logg.Error(ctx, "chat.socket.upgrade_failed", err)
			}
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{"room_id": roomID, "user_id": userID})
			logg.Info(ctx, "chat.socket.open")
		}

		go socketWritePump(ctx, conn, send)
		socketReadPump(ctx, conn, svc, userID, roomID, send, logg)

		unsubscribe()
		cancel()
		if logg != nil {
			logg.Info(ctx, "chat.socket.closed")
		}
	}
}

func originChecker(origins []string) func(*http.Request) bool {
	allowed := map[string]struct{}{}
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := allowed["*"]; ok {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

func socketWritePump(ctx context.Context, conn *websocket.Conn, send <-chan []byte) {
	ticker := time.NewTicker(socketPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func socketReadPump(ctx context.Context, conn *websocket.Conn, svc chat.Service, userID, roomID string, send chan<- []byte, logg *logger.Logger) {
	conn.SetReadLimit(socketMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(socketPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(socketPongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && logg != nil {
				logg.Warn(ctx, "chat.socket.read_failed: "+err.Error())
			}
			return
		}

		var in socketInbound
		if err := json.Unmarshal(raw, &in); err != nil {
			replySocketError(send, in.Action, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payload"))
			continue
		}

		switch in.Action {
		case enums.ChatActionMessage:
			_, err = svc.Send(ctx, userID, roomID, in.Content)
		case enums.ChatActionEdit:
			_, err = svc.Edit(ctx, userID, in.ID, in.Content)
		case enums.ChatActionDelete:
			err = svc.Delete(ctx, userID, in.ID)
		default:
			err = pkgerrors.New(pkgerrors.CodeValidation, "unknown action")
		}
		if err != nil {
			replySocketError(send, in.Action, err)
		}
	}
}

func replySocketError(send chan<- []byte, action enums.ChatAction, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	msg := typed.Message()
	if typed.Code() == pkgerrors.CodeInternal {
		msg = pkgerrors.MetadataFor(typed.Code()).PublicMessage
	}
	data, _ := json.Marshal(socketError{Action: string(action), Code: string(typed.Code()), Error: msg})
	select {
	case send <- data:
	default:
	}
}
