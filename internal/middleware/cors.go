package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// Cors allows every origin unless allowed lists some.
func Cors(allowed []string) Middleware {
	options := cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}
	if len(allowed) == 0 {
		options.AllowOriginFunc = func(origin string) bool {
			return true
		}
	}
	return cors.New(options).Handler
}
