package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/useraccounts/backend/internal/observability/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := NormalizePath(r.URL.Path)

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path).Inc()
		metrics.HTTPRequestsInFlight.Inc()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		metrics.HTTPRequestsInFlight.Dec()
		status := strconv.Itoa(rec.status)
		metrics.HTTPRequestDurationSeconds.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		if rec.status >= http.StatusBadRequest {
			metrics.HTTPErrorsTotal.WithLabelValues(status, path, r.Method).Inc()
		}
	})
}

// NormalizePath collapses user-id path segments so metric label cardinality
// stays bounded.
func NormalizePath(path string) string {
	const prefix = "/api/users/"
	if !strings.HasPrefix(path, prefix) {
		return path
	}

	remaining := strings.TrimPrefix(path, prefix)
	if remaining == "" || remaining == "fetch" {
		return path
	}

	parts := strings.SplitN(remaining, "/", 2)
	normalized := prefix + ":id"
	if len(parts) == 2 && parts[1] != "" {
		normalized += "/" + parts[1]
	}
	return normalized
}
