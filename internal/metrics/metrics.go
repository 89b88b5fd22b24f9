package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec
	RateLimitedTotal    *prometheus.CounterVec

	// Auth metrics
	AuthEventsTotal *prometheus.CounterVec

	// Notification metrics
	NotificationsSentTotal *prometheus.CounterVec
	WebsocketClients       prometheus.Gauge

	// Background jobs
	RetentionPurgedTotal *prometheus.CounterVec
	DatabaseUp           prometheus.Gauge
}

// New creates and registers all metrics on a fresh registry, together with the Go and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portal_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portal_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "route"},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_rate_limited_total",
				Help: "Requests rejected by a rate limiter",
			},
			[]string{"limiter"},
		),

		AuthEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_auth_events_total",
				Help: "Authentication events by kind and outcome",
			},
			[]string{"event", "outcome"},
		),

		NotificationsSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_notifications_sent_total",
				Help: "Notifications delivered per channel",
			},
			[]string{"channel", "status"},
		),
		WebsocketClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "portal_websocket_clients",
				Help: "Number of connected notification stream clients",
			},
		),

		RetentionPurgedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_retention_purged_total",
				Help: "Rows removed by the retention job",
			},
			[]string{"table"},
		),
		DatabaseUp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "portal_database_up",
				Help: "1 when the last database health check succeeded",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.RateLimitedTotal,
		m.AuthEventsTotal,
		m.NotificationsSentTotal,
		m.WebsocketClients,
		m.RetentionPurgedTotal,
		m.DatabaseUp,
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// AuthEvent counts an authentication event. Safe on a nil receiver.
func (m *Metrics) AuthEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.AuthEventsTotal.WithLabelValues(event, outcome).Inc()
}

func (m *Metrics) NotificationSent(channel string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.NotificationsSentTotal.WithLabelValues(channel, status).Inc()
}

func (m *Metrics) RateLimited(limiter string) {
	if m == nil {
		return
	}
	m.RateLimitedTotal.WithLabelValues(limiter).Inc()
}

func (m *Metrics) Purged(table string, n int64) {
	if m == nil {
		return
	}
	m.RetentionPurgedTotal.WithLabelValues(table).Add(float64(n))
}

func (m *Metrics) SetDatabaseUp(up bool) {
	if m == nil {
		return
	}
	if up {
		m.DatabaseUp.Set(1)
	} else {
		m.DatabaseUp.Set(0)
	}
}

func (m *Metrics) WebsocketConnected(delta int) {
	if m == nil {
		return
	}
	m.WebsocketClients.Add(float64(delta))
}
