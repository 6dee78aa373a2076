package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prajwalbharadwajbm/bidengine/internal/metrics"
)

// MetricsMiddleware wraps HTTP handlers to collect Prometheus metrics
type MetricsMiddleware struct {
	metrics *metrics.Metrics
}

// NewMetricsMiddleware creates a new metrics middleware
func NewMetricsMiddleware(metrics *metrics.Metrics) *MetricsMiddleware {
	return &MetricsMiddleware{
		metrics: metrics,
	}
}

// Middleware returns the HTTP middleware function
func (m *MetricsMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := normalizeEndpoint(r.URL.Path)
		method := r.Method

		m.metrics.IncRequestsInFlight(method, endpoint)
		defer m.metrics.DecRequestsInFlight(method, endpoint)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		m.metrics.RecordHTTPRequest(method, endpoint, strconv.Itoa(wrapped.statusCode), time.Since(start).Seconds())
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

var knownEndpoints = map[string]bool{
	"/health":                   true,
	"/metrics":                  true,
	"/api/bid":                  true,
	"/api/bid/test":             true,
	"/api/bid/User_Click_Event": true,
	"/api/ads/semantic-search":  true,
	"/api/ads/similar-to-video": true,
	"/api/videos":               true,
}

// normalizeEndpoint maps a path to its route so ids and junk paths do not
// become label values
func normalizeEndpoint(path string) string {
	path = strings.TrimSuffix(path, "/")

	switch {
	case knownEndpoints[path]:
		return path
	case strings.HasPrefix(path, "/api/videos/"):
		return "/api/videos/{id}"
	default:
		return "other"
	}
}
