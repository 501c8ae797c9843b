package handlers

import (
	"net/http"
	"time"

	"github.com/hairizuan-noorazman/testpilot/logger"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// LoggingMiddleware logs every request with its status and latency.
type LoggingMiddleware struct {
	logger logger.Logger
}

func NewLoggingMiddleware(log logger.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: log}
}

// Handler wraps next with request logging. Server errors are logged at
// error level, client errors at warn.
func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		fields := map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(started).Milliseconds(),
		}
		switch {
		case rec.status >= 500:
			m.logger.Error(r.Context(), "request failed", fields)
		case rec.status >= 400:
			m.logger.Warn(r.Context(), "request rejected", fields)
		default:
			m.logger.Debug(r.Context(), "request served", fields)
		}
	})
}
