package controllers

import (
	"net/http"

	"github.com/angelmondragon/wayfarer-backend/api/responses"
	"github.com/angelmondragon/wayfarer-backend/api/validators"
	"github.com/angelmondragon/wayfarer-backend/internal/chat"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
)

type chatMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// ChatHistory pages a community's messages, newest first.
func ChatHistory(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
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
		params, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.History(r.Context(), userID, roomID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func SendChatMessage(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
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
		var body chatMessageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		msg, err := svc.Send(r.Context(), userID, roomID, body.Content)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, msg)
	}
}

func EditChatMessage(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		messageID, err := validators.PathID(r, "messageId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body chatMessageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		msg, err := svc.Edit(r.Context(), userID, messageID, body.Content)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, msg)
	}
}

func DeleteChatMessage(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		messageID, err := validators.PathID(r, "messageId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), userID, messageID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}
