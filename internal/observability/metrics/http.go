package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics contains Prometheus metrics for the HTTP API, including
// the SSE broadcast surface.
type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec   // Requests by method, path and status class
	RequestDuration *prometheus.HistogramVec // Latency by method and path
	SSEConnections  prometheus.Gauge         // Currently connected SSE clients
	SSEEventsTotal  *prometheus.CounterVec   // Events pushed to SSE clients by event type
	SSEDropsTotal   prometheus.Counter       // Events dropped due to slow clients

	registry *prometheus.Registry
}

// NewHTTPMetrics creates a new instance of HTTPMetrics.
// It requires a Prometheus registry to register the metrics.
// It returns an error if metric registration fails.
func NewHTTPMetrics(registry *prometheus.Registry) (*HTTPMetrics, error) {
	m := &HTTPMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register HTTP metrics: %w", err)
	}
	return m, nil
}

func (m *HTTPMetrics) initMetrics() {
	m.RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by method, path and status class",
		},
		[]string{"method", "path", "status"},
	)

	m.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and path",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"method", "path"},
	)

	m.SSEConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sse_connected_clients",
		Help: "Number of currently connected SSE clients",
	})

	m.SSEEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sse_events_total",
			Help: "Total number of events pushed to SSE clients by event type",
		},
		[]string{"event"},
	)

	m.SSEDropsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sse_events_dropped_total",
		Help: "Total number of SSE events dropped due to slow clients",
	})
}

// RecordRequest records a completed HTTP request.
func (m *HTTPMetrics) RecordRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateSSEConnections sets the connected client gauge.
func (m *HTTPMetrics) UpdateSSEConnections(n int) {
	m.SSEConnections.Set(float64(n))
}

// RecordSSEEvent increments the pushed event counter for an event type.
func (m *HTTPMetrics) RecordSSEEvent(event string) {
	m.SSEEventsTotal.WithLabelValues(event).Inc()
}

// RecordSSEDrop increments the dropped event counter.
func (m *HTTPMetrics) RecordSSEDrop() {
	m.SSEDropsTotal.Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *HTTPMetrics) Collect(ch chan<- prometheus.Metric) {
	m.RequestsTotal.Collect(ch)
	m.RequestDuration.Collect(ch)
	m.SSEConnections.Collect(ch)
	m.SSEEventsTotal.Collect(ch)
	m.SSEDropsTotal.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *HTTPMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.RequestsTotal.Describe(ch)
	m.RequestDuration.Describe(ch)
	m.SSEConnections.Describe(ch)
	m.SSEEventsTotal.Describe(ch)
	m.SSEDropsTotal.Describe(ch)
}
