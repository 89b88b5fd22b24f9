package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/victorgomez09/portal/internal/metrics"
)

// HTTPMetrics instruments requests. Routes are labelled by their mux pattern so that
// path parameters do not explode the label space.
type HTTPMetrics struct {
	metrics *metrics.Metrics
}

// NewHTTPMetrics returns nil without a registry.
func NewHTTPMetrics(m *metrics.Metrics) Middleware {
	if m == nil {
		return nil
	}
	return &HTTPMetrics{metrics: m}
}

func (h *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newStatusWriter(w)

		next.ServeHTTP(rw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(rw.Status())

		h.metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
		h.metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		h.metrics.HTTPResponseSize.WithLabelValues(r.Method, route).Observe(float64(rw.Length()))
	})
}
