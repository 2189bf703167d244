// Package middleware holds the HTTP middlewares shared by the catalog handlers.
package middleware

import (
	"context"
	"net/http"
	"time"
)

// TimeoutHandler sets the timeout in each request
type TimeoutHandler struct {
	timeout time.Duration
}

// NewTimeoutHandler returns new TimeoutHandler that timeouts request if it
// exceeds the timeout value
func NewTimeoutHandler(timeout time.Duration) *TimeoutHandler {
	return &TimeoutHandler{
		timeout: timeout,
	}
}

// Handler bounds the request context. Requests that already carry a deadline, and
// handlers built with a non-positive timeout, are left unchanged.
func (h *TimeoutHandler) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Deadline(); ok || h.timeout <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
