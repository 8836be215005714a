package api

import (
	"net/http"
	"regexp"

	"github.com/go-chi/cors"
)

// localhostOrigin matches the origins CORS is restricted to:
// http(s)://localhost or 127.0.0.1, any port.
var localhostOrigin = regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1)(:\d+)?$`)

// corsMiddleware builds the go-chi/cors handler with a fixed localhost
// allow-list.
func corsMiddleware() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowOriginFunc:  func(r *http.Request, origin string) bool { return localhostOrigin.MatchString(origin) },
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-API-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

// apiKeyAuth rejects any request whose X-API-Key header does not match
// the configured key.
func apiKeyAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Key") != key {
				writeJSON(w, http.StatusForbidden, Envelope{Success: false, Message: "invalid or missing API key"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
