package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"securecheck/pkg/requestcontext"
)

// RequestIDHeader carries the correlation ID on responses (and on requests
// from callers that already have one).
const RequestIDHeader = "X-Request-ID"

// RequestID stamps every request with a correlation ID and the request time,
// making both available to services through pkg/requestcontext.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())
		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
