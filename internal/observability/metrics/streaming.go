// Package metrics provides custom Prometheus metrics for the application's
// subsystems. Each collector owns its metric vectors and registers itself
// with the registry passed at construction.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StreamingMetrics contains all Prometheus metrics related to response
// stream decoding and dispatch.
type StreamingMetrics struct {
	RecordsDecodedTotal prometheus.Counter     // Records successfully decoded from streams
	LinesDroppedTotal   prometheus.Counter     // Lines discarded as undecodable
	LinesRecoveredTotal prometheus.Counter     // Records salvaged from malformed lines
	StreamsTotal        *prometheus.CounterVec // Streams opened, by outcome
	StreamDuration      prometheus.Histogram   // Wall time from open to completion
	PacketsTotal        *prometheus.CounterVec // Dispatched packets by kind

	registry *prometheus.Registry
}

// NewStreamingMetrics creates a new instance of StreamingMetrics.
// It requires a Prometheus registry to register the metrics.
// It returns an error if metric registration fails.
func NewStreamingMetrics(registry *prometheus.Registry) (*StreamingMetrics, error) {
	m := &StreamingMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register streaming metrics: %w", err)
	}
	return m, nil
}

func (m *StreamingMetrics) initMetrics() {
	m.RecordsDecodedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streaming_records_decoded_total",
		Help: "Total number of JSON records decoded from response streams",
	})

	m.LinesDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streaming_lines_dropped_total",
		Help: "Total number of stream lines discarded as undecodable",
	})

	m.LinesRecoveredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streaming_lines_recovered_total",
		Help: "Total number of records recovered from malformed stream lines",
	})

	m.StreamsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streaming_streams_total",
			Help: "Total number of upstream response streams by outcome",
		},
		[]string{"outcome"}, // outcome: completed, canceled, fault
	)

	m.StreamDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "streaming_stream_duration_seconds",
		Help:    "Wall time from stream open to completion",
		Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 120.0},
	})

	m.PacketsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streaming_packets_total",
			Help: "Total number of dispatched stream packets by packet kind",
		},
		[]string{"kind"},
	)
}

// RecordDecoded increments the decoded record counter.
func (m *StreamingMetrics) RecordDecoded() {
	m.RecordsDecodedTotal.Inc()
}

// RecordLineDropped increments the dropped line counter.
func (m *StreamingMetrics) RecordLineDropped() {
	m.LinesDroppedTotal.Inc()
}

// RecordLineRecovered adds n recovered records to the recovery counter.
func (m *StreamingMetrics) RecordLineRecovered(n int) {
	m.LinesRecoveredTotal.Add(float64(n))
}

// RecordStream records a completed stream with its outcome and duration.
func (m *StreamingMetrics) RecordStream(outcome string, duration time.Duration) {
	m.StreamsTotal.WithLabelValues(outcome).Inc()
	m.StreamDuration.Observe(duration.Seconds())
}

// RecordPacket increments the dispatched packet counter for a packet kind.
func (m *StreamingMetrics) RecordPacket(kind string) {
	m.PacketsTotal.WithLabelValues(kind).Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *StreamingMetrics) Collect(ch chan<- prometheus.Metric) {
	m.RecordsDecodedTotal.Collect(ch)
	m.LinesDroppedTotal.Collect(ch)
	m.LinesRecoveredTotal.Collect(ch)
	m.StreamsTotal.Collect(ch)
	m.StreamDuration.Collect(ch)
	m.PacketsTotal.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *StreamingMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.RecordsDecodedTotal.Describe(ch)
	m.LinesDroppedTotal.Describe(ch)
	m.LinesRecoveredTotal.Describe(ch)
	m.StreamsTotal.Describe(ch)
	m.StreamDuration.Describe(ch)
	m.PacketsTotal.Describe(ch)
}
