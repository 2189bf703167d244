package requestid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
)

func TestHTTPMiddleware(t *testing.T) {
	var seen string
	handler := NewHTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		require.True(t, ok)
		seen = id
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.NotEmpty(t, seen)
	require.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	_, err := ulid.ParseStrict(seen)
	require.NoError(t, err)
}

func TestFromContextWithoutID(t *testing.T) {
	_, ok := FromContext(context.Background())
	require.False(t, ok)

	_, ok = FromContext(ContextWithRequestID(context.Background(), ""))
	require.False(t, ok)
}

func TestUniquePerRequest(t *testing.T) {
	first := InitID(context.Background())
	second := InitID(context.Background())
	require.NotEqual(t, first, second)
}
