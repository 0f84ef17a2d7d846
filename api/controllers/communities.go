package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/wayfarer-backend/api/responses"
	"github.com/angelmondragon/wayfarer-backend/api/validators"
	"github.com/angelmondragon/wayfarer-backend/internal/communities"
	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
)

type communityResponse struct {
	communities.Community
	Role string `json:"role,omitempty"`
}

func communityFor(c *communities.Community, userID string) communityResponse {
	return communityResponse{Community: *c, Role: string(c.RoleOf(userID))}
}

// ListCommunities filters by destination and, with mine=true, by membership.
func ListCommunities(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := communities.ListParams{
			Destination: validators.SanitizeString(r.URL.Query().Get("destination"), 120),
			Limit:       page.Limit,
			Cursor:      page.Cursor,
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("mine")); raw != "" {
			mine, err := strconv.ParseBool(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid mine value"))
				return
			}
			if mine {
				params.MemberID = userID
			}
		}
		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]communityResponse, 0, len(result.Items))
		for i := range result.Items {
			items = append(items, communityFor(&result.Items[i], userID))
		}
		responses.WriteSuccess(w, map[string]any{"items": items, "next_cursor": result.NextCursor})
	}
}

func CreateCommunity(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var in communities.CreateInput
		if err := validators.DecodeJSONBody(r, &in); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.Create(r.Context(), userID, in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, communityFor(c, userID))
	}
}

type communityAction func(r *http.Request, userID, communityID string) (*communities.Community, error)

func communityHandler(logg *logger.Logger, fn communityAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.PathID(r, "communityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := fn(r, userID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, communityFor(c, userID))
	}
}

func GetCommunity(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return communityHandler(logg, func(r *http.Request, _, id string) (*communities.Community, error) {
		return svc.Get(r.Context(), id)
	})
}

func JoinCommunity(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return communityHandler(logg, func(r *http.Request, userID, id string) (*communities.Community, error) {
		return svc.Join(r.Context(), userID, id)
	})
}

func LeaveCommunity(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return communityHandler(logg, func(r *http.Request, userID, id string) (*communities.Community, error) {
		return svc.Leave(r.Context(), userID, id)
	})
}
