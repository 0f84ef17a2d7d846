package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/wayfarer-backend/api/responses"
	pkgAuth "github.com/angelmondragon/wayfarer-backend/pkg/auth"
	"github.com/angelmondragon/wayfarer-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
// Browsers cannot set headers on websocket upgrades, so an access_token query
// parameter is accepted there.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithTraveler(r.Context(), Traveler{
				ID:          claims.UserID(),
				Email:       claims.Email,
				DisplayName: claims.DisplayName,
			})
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		if isWebsocketUpgrade(r) {
			return strings.TrimSpace(r.URL.Query().Get("access_token"))
		}
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}

func isWebsocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
