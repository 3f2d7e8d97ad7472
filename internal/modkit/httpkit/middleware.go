package httpkit

import (
	"net/http"

	"watchtower/internal/platform/net/middleware"
)

// CommonStack is the baseline middleware for versioned ops routes
func CommonStack(origins ...string) []func(http.Handler) http.Handler {
	stack := middleware.Defaults()
	if len(origins) > 0 {
		stack = append(stack, middleware.CORS(middleware.CORSOptions{AllowedOrigins: origins}))
	}
	return stack
}
