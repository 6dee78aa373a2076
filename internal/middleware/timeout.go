package middleware

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware bounds the request context of the wrapped handler so
// store calls give up before the ad server stops waiting
type TimeoutMiddleware struct {
	timeout time.Duration
}

// NewTimeoutMiddleware creates a timeout middleware. A non-positive timeout
// disables it.
func NewTimeoutMiddleware(timeout time.Duration) *TimeoutMiddleware {
	return &TimeoutMiddleware{timeout: timeout}
}

func (m *TimeoutMiddleware) Middleware(next http.Handler) http.Handler {
	if m.timeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), m.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
