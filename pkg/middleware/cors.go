package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS lets the mobile web build call the API from its own origin.
func CORS(allowedOrigins []string) Middleware {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "Retry-After"},
		AllowCredentials: false,
		MaxAge:           600,
	})
	return c.Handler
}
