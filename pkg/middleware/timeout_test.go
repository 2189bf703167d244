package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeoutHandler(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, hasDeadline = r.Context().Deadline()
	})

	t.Run("sets_a_deadline", func(t *testing.T) {
		start := time.Now()
		NewTimeoutHandler(time.Second).Handler(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		require.True(t, hasDeadline)
		require.WithinDuration(t, start.Add(time.Second), deadline, 500*time.Millisecond)
	})

	t.Run("keeps_an_existing_deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()
		expected, _ := ctx.Deadline()

		req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
		NewTimeoutHandler(time.Second).Handler(next).ServeHTTP(httptest.NewRecorder(), req)
		require.Equal(t, expected, deadline)
	})

	t.Run("disabled", func(t *testing.T) {
		NewTimeoutHandler(0).Handler(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		require.False(t, hasDeadline)
	})
}
