// Package middleware provides HTTP middleware for the web server.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/nvl/internal/logging"
)

// Logger logs one structured line per request. It runs inside chi's
// RequestID middleware, so every line carries the request id; lines for
// screen routes also carry the session id.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), recorderKey{}, ww)))

		// the session middleware runs further in; its id is on the inner request
		logger := logging.FromContext(r.Context())
		if sid := ww.sessionID; sid != "" {
			logger = logger.With("session_id", sid)
		}

		level := logger.Info
		if ww.status >= http.StatusInternalServerError {
			level = logger.Warn
		}
		level("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.status,
			"bytes", ww.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)
	})
}

type recorderKey struct{}

// RecordSession reports the session id of the request to Logger.
func RecordSession(ctx context.Context, id string) {
	if ww, ok := ctx.Value(recorderKey{}).(*responseWriter); ok {
		ww.sessionID = id
	}
}

// responseWriter captures the status code and body size.
type responseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
	sessionID   string
}

func (w *responseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Unwrap exposes the underlying ResponseWriter to http.ResponseController.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
