package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows browser clients from the configured origins. "*" allows any
// origin; credentials are never allowed since the API uses bearer tokens.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", HeaderXRequestID},
		ExposedHeaders:   []string{HeaderXRequestID},
		AllowCredentials: false,
		MaxAge:           3600, // Cache preflight for 1 hour
	})
}
