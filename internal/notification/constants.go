// Package notification provides shared constants for the notification system.
package notification

import "time"

const (
	// DefaultMaxNotifications caps the in-memory store size.
	DefaultMaxNotifications = 1000

	// DefaultCleanupInterval is how often expired notifications are purged.
	DefaultCleanupInterval = 5 * time.Minute

	// DefaultRateLimitMaxEvents is the notification creation budget per
	// rate limit window.
	DefaultRateLimitMaxEvents = 100

	// DefaultChannelBufferSize is the per-subscriber channel buffer.
	DefaultChannelBufferSize = 64

	// DefaultToastDuration is how long a toast stays up when the caller
	// does not specify a duration.
	DefaultToastDuration = 5 * time.Second

	// DefaultMaxVisibleToasts caps how many toasts the display surface
	// shows at once. The store itself is unbounded until items expire.
	DefaultMaxVisibleToasts = 3

	// DefaultToastDedupWindow suppresses identical toasts raised within
	// this interval.
	DefaultToastDedupWindow = 2 * time.Second

	// toastNotificationTTL is how long a toast's bridged notification
	// stays resident for SSE reconnect catch-up.
	toastNotificationTTL = 5 * time.Minute
)
