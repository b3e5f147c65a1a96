// Package middleware provides HTTP middleware for the agent API.
package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/cloutagent/cloutagent/internal/logger"
)

const headerRequestID = "X-Request-ID"

// RequestID tags every request with a correlation id. A caller-supplied
// X-Request-ID is honored so the id stays stable across the dashboard, the
// API, and the log stream; otherwise a fresh one is minted. The id rides
// the request context and is echoed on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = newRequestID()
		}

		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

// newRequestID mints 16 random bytes as lowercase hex.
func newRequestID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
