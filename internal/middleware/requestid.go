// Package middleware provides HTTP middleware for Arbiter.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/internal/logger"
)

const headerRequestID = "X-Request-ID"

// RequestID extracts X-Request-ID from the request header, minting a fresh
// uuid when the caller sent none, and stores it in the context and on the
// response header. Checkpoints created during the request inherit it as
// their trace correlation id when the caller supplies none of their own.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}
