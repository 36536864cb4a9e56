package restapi

import (
	"log/slog"
	"net/http"
	"time"

	"raptor.transitrouter.org/internal/logging"
)

// NewRequestLoggingMiddleware logs every request once it is answered. The
// handlers find a logger tagged with the request ID in the context.
func NewRequestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := GetRequestID(r.Context())
			reqLogger := logger.With(slog.String("request_id", reqID))
			r = r.WithContext(logging.WithLogger(r.Context(), reqLogger))

			wrapped := newStatusRecorder(w)
			next.ServeHTTP(wrapped, r)

			logging.LogHTTPRequest(logger,
				r.Method,
				r.URL.Path,
				wrapped.statusCode,
				float64(time.Since(start).Nanoseconds())/1e6,
				slog.String("request_id", reqID),
				slog.String("user_agent", r.Header.Get("User-Agent")),
				slog.String("component", "http_server"))
		})
	}
}
