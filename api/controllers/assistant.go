package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/wayfarer-backend/api/responses"
	"github.com/angelmondragon/wayfarer-backend/api/validators"
	"github.com/angelmondragon/wayfarer-backend/internal/assistant"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
)

type travelAssistant interface {
	Ask(ctx context.Context, userID string, in assistant.AskInput) (*assistant.Reply, error)
	Conversation(ctx context.Context, userID, id string) (*assistant.Conversation, error)
}

// AssistantAsk sends a message to the travel assistant.
func AssistantAsk(svc travelAssistant, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var in assistant.AskInput
		if err := validators.DecodeJSONBody(r, &in); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reply, err := svc.Ask(r.Context(), userID, in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reply)
	}
}

func AssistantConversation(svc travelAssistant, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.PathID(r, "conversationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		conv, err := svc.Conversation(r.Context(), userID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, conv)
	}
}
