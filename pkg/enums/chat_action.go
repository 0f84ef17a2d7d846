package enums

import "fmt"

// ChatAction labels a chat room event pushed to subscribers.
type ChatAction string

const (
	ChatActionMessage ChatAction = "message"
	ChatActionEdit    ChatAction = "edit"
	ChatActionDelete  ChatAction = "delete"
)

var validChatActions = []ChatAction{
	ChatActionMessage,
	ChatActionEdit,
	ChatActionDelete,
}

func (a ChatAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ChatAction.
func (a ChatAction) IsValid() bool {
	for _, candidate := range validChatActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseChatAction converts the raw string to ChatAction.
func ParseChatAction(value string) (ChatAction, error) {
	for _, candidate := range validChatActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid chat action %q", value)
}
