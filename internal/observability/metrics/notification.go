package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// NotificationMetrics contains all Prometheus metrics related to
// notification and toast operations.
type NotificationMetrics struct {
	NotificationsCreatedTotal *prometheus.CounterVec // Notifications created by type and priority
	NotificationsDroppedTotal *prometheus.CounterVec // Notifications dropped by reason
	ToastsCreatedTotal        *prometheus.CounterVec // Toasts created by type
	ToastsDedupedTotal        prometheus.Counter     // Toasts suppressed by the dedup window
	ToastsExpiredTotal        prometheus.Counter     // Toasts removed by their expiry timer
	StoreSize                 prometheus.Gauge       // Notifications currently retained
	SubscriberCount           prometheus.Gauge       // Active broadcast subscribers

	registry *prometheus.Registry
}

// NewNotificationMetrics creates a new instance of NotificationMetrics.
// It requires a Prometheus registry to register the metrics.
// It returns an error if metric registration fails.
func NewNotificationMetrics(registry *prometheus.Registry) (*NotificationMetrics, error) {
	m := &NotificationMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notification metrics: %w", err)
	}
	return m, nil
}

func (m *NotificationMetrics) initMetrics() {
	m.NotificationsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_created_total",
			Help: "Total number of notifications created by type and priority",
		},
		[]string{"type", "priority"},
	)

	m.NotificationsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_dropped_total",
			Help: "Total number of notifications dropped by reason",
		},
		[]string{"reason"}, // reason: rate_limited, subscriber_full
	)

	m.ToastsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_toasts_created_total",
			Help: "Total number of toasts created by toast type",
		},
		[]string{"type"},
	)

	m.ToastsDedupedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_toasts_deduped_total",
		Help: "Total number of toasts suppressed by the deduplication window",
	})

	m.ToastsExpiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_toasts_expired_total",
		Help: "Total number of toasts removed by their expiry timer",
	})

	m.StoreSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "notification_store_size",
		Help: "Number of notifications currently retained in the store",
	})

	m.SubscriberCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "notification_subscribers",
		Help: "Number of active notification broadcast subscribers",
	})
}

// RecordCreated increments the created counter for a notification.
func (m *NotificationMetrics) RecordCreated(notifType, priority string) {
	m.NotificationsCreatedTotal.WithLabelValues(notifType, priority).Inc()
}

// RecordDropped increments the dropped counter for a reason.
func (m *NotificationMetrics) RecordDropped(reason string) {
	m.NotificationsDroppedTotal.WithLabelValues(reason).Inc()
}

// RecordToast increments the toast created counter for a toast type.
func (m *NotificationMetrics) RecordToast(toastType string) {
	m.ToastsCreatedTotal.WithLabelValues(toastType).Inc()
}

// RecordToastDeduped increments the dedup suppression counter.
func (m *NotificationMetrics) RecordToastDeduped() {
	m.ToastsDedupedTotal.Inc()
}

// RecordToastExpired increments the expiry counter.
func (m *NotificationMetrics) RecordToastExpired() {
	m.ToastsExpiredTotal.Inc()
}

// UpdateStoreSize sets the current store size gauge.
func (m *NotificationMetrics) UpdateStoreSize(n int) {
	m.StoreSize.Set(float64(n))
}

// UpdateSubscriberCount sets the active subscriber gauge.
func (m *NotificationMetrics) UpdateSubscriberCount(n int) {
	m.SubscriberCount.Set(float64(n))
}

// Collect implements the prometheus.Collector interface.
func (m *NotificationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.NotificationsCreatedTotal.Collect(ch)
	m.NotificationsDroppedTotal.Collect(ch)
	m.ToastsCreatedTotal.Collect(ch)
	m.ToastsDedupedTotal.Collect(ch)
	m.ToastsExpiredTotal.Collect(ch)
	m.StoreSize.Collect(ch)
	m.SubscriberCount.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *NotificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.NotificationsCreatedTotal.Describe(ch)
	m.NotificationsDroppedTotal.Describe(ch)
	m.ToastsCreatedTotal.Describe(ch)
	m.ToastsDedupedTotal.Describe(ch)
	m.ToastsExpiredTotal.Describe(ch)
	m.StoreSize.Describe(ch)
	m.SubscriberCount.Describe(ch)
}
