package middleware

import (
	"net/http"
	"runtime/debug"

	perr "watchtower/internal/platform/errors"
	"watchtower/internal/platform/logger"
	phttp "watchtower/internal/platform/net/http"
	pnet "watchtower/internal/platform/net"
)

// RecoverJSON turns a panic into a JSON 500 and logs the stack
func RecoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			reqID := pnet.RequestID(r.Context())
			logger.C(r.Context()).Error().
				Str("request_id", reqID).
				Interface("panic", v).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if reqID != "" {
				w.Header().Set("X-Request-ID", reqID)
			}
			phttp.RespondError(w, r, perr.Internalf("internal error"))
		}()
		next.ServeHTTP(w, r)
	})
}
