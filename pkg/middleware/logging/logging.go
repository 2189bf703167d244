// Package logging logs one entry per completed HTTP request.
package logging

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ontologymarket/catalog/pkg/logger"
)

const (
	httpMethodKey      = "http_method"
	httpPathKey        = "http_path"
	httpStatusKey      = "http_status"
	httpBytesKey       = "http_response_bytes"
	durationKey        = "duration_ms"
	userAgentKey       = "user_agent"
	httpReqCompleteKey = "http_req_complete"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// NewHTTPLoggingMiddleware must come after the request id middleware so the entry
// carries the request id. Server errors are logged at error level.
func NewHTTPLoggingMiddleware(l logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			if rec.status == 0 {
				rec.status = http.StatusOK
			}

			fields := []zap.Field{
				zap.String(httpMethodKey, r.Method),
				zap.String(httpPathKey, r.URL.Path),
				zap.Int(httpStatusKey, rec.status),
				zap.Int(httpBytesKey, rec.bytes),
				zap.Int64(durationKey, time.Since(start).Milliseconds()),
				zap.String(userAgentKey, r.UserAgent()),
			}

			if rec.status >= http.StatusInternalServerError {
				l.ErrorWithContext(r.Context(), httpReqCompleteKey, fields...)
				return
			}
			l.InfoWithContext(r.Context(), httpReqCompleteKey, fields...)
		})
	}
}
