package chat

import (
	"time"

	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
)

const (
	collection = "chat_messages"
	// MaxContentLength bounds a single message in characters.
	MaxContentLength = 2000
	historyLimit     = 50
)

// Message is one post in a community room.
type Message struct {
	ID        string     `json:"id"`
	RoomID    string     `json:"roomId"`
	SenderID  string     `json:"senderId"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"createdAt"`
	EditedAt  *time.Time `json:"editedAt,omitempty"`
}

// Event is pushed to room subscribers after a write.
type Event struct {
	Action  enums.ChatAction `json:"action"`
	ID      string           `json:"id"`
	Message *Message         `json:"message,omitempty"`
}

type messageDocument struct {
	ID        string     `bson:"_id"`
	RoomID    string     `bson:"room_id"`
	SenderID  string     `bson:"sender_id"`
	Content   string     `bson:"content"`
	Deleted   bool       `bson:"deleted"`
	CreatedAt time.Time  `bson:"created_at"`
	EditedAt  *time.Time `bson:"edited_at,omitempty"`
}

func (d messageDocument) toMessage() Message {
	return Message{
		ID:        d.ID,
		RoomID:    d.RoomID,
		SenderID:  d.SenderID,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
		EditedAt:  d.EditedAt,
	}
}
