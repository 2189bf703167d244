package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/ontologymarket/catalog/pkg/logger"
	"github.com/ontologymarket/catalog/pkg/middleware/requestid"
)

func TestHTTPLoggingMiddleware(t *testing.T) {
	l, logs := logger.NewObserverLogger("info")

	handler := requestid.NewHTTPMiddleware(NewHTTPLoggingMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/search_ontologies", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/fail", nil))

	entries := logs.FilterMessage(httpReqCompleteKey).All()
	require.Len(t, entries, 2)

	ok := entries[0].ContextMap()
	require.Equal(t, zapcore.InfoLevel, entries[0].Level)
	require.Equal(t, "GET", ok[httpMethodKey])
	require.Equal(t, "/search_ontologies", ok[httpPathKey])
	require.EqualValues(t, http.StatusOK, ok[httpStatusKey])
	require.EqualValues(t, 2, ok[httpBytesKey])
	require.NotEmpty(t, ok["request_id"])

	require.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	require.EqualValues(t, http.StatusInternalServerError, entries[1].ContextMap()[httpStatusKey])
}
