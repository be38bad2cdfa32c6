package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	appCtx "github.com/baechuer/real-time-ressys/services/account-service/internal/pkg/context"
)

const (
	HeaderXRequestID = "X-Request-Id"

	maxRequestIDLen = 128
)

// RequestID propagates the caller's X-Request-Id or mints a new UUID, and
// echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(HeaderXRequestID))
		if reqID == "" || len(reqID) > maxRequestIDLen {
			reqID = uuid.NewString()
		}

		w.Header().Set(HeaderXRequestID, reqID)

		ctx := appCtx.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
