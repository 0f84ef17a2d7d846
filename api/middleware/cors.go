package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

var (
	corsMethods = []string{
		http.MethodGet, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}
	corsHeaders = []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, requestIDHeader}
	corsExposed = []string{requestIDHeader, "Idempotent-Replayed", "Content-Disposition", "Retry-After"}
)

// CORS applies the configured origin allow-list. A "*" entry opens the API
// to any origin, and credentials are then withheld.
func CORS(origins []string) func(http.Handler) http.Handler {
	wildcard := slices.Contains(origins, "*")
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   corsMethods,
		AllowedHeaders:   corsHeaders,
		ExposedHeaders:   corsExposed,
		AllowCredentials: !wildcard,
		MaxAge:           600,
	}).Handler
}
