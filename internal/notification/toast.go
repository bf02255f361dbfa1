package notification

import (
	"fmt"
	"sync/atomic"
	"time"
)

// toastSeq provides the monotonic component of toast ids.
var toastSeq atomic.Uint64

// newToastID returns a unique toast id combining a monotonic sequence
// number with the creation timestamp, so ids sort in creation order even
// across equal-millisecond bursts.
func newToastID() string {
	return fmt.Sprintf("toast-%d-%d", toastSeq.Add(1), time.Now().UnixMilli())
}

// ToastType represents the visual level of a toast message.
type ToastType string

const (
	ToastTypeSuccess ToastType = "success"
	ToastTypeError   ToastType = "error"
	ToastTypeWarning ToastType = "warning"
	ToastTypeInfo    ToastType = "info"
	ToastTypeDefault ToastType = "default"
)

// ToastAction is an optional affordance attached to a toast.
type ToastAction struct {
	Label   string `json:"label"`
	URL     string `json:"url,omitempty"`
	Handler string `json:"handler,omitempty"`
}

// Toast is a transient, auto-expiring user notification.
//
// Duration controls auto-dismissal: zero means the store default applies
// and a negative duration makes the toast persistent until manually
// dismissed. Leaving marks the item mid-exit-animation before removal.
type Toast struct {
	ID          string        `json:"id"`
	Message     string        `json:"message"`
	Type        ToastType     `json:"type"`
	Duration    time.Duration `json:"duration"`
	Dismissible bool          `json:"dismissible"`
	Component   string        `json:"component,omitempty"`
	Action      *ToastAction  `json:"action,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
	Leaving     bool          `json:"leaving,omitempty"`
}

// NewToast creates a toast with a unique ID and current timestamp.
func NewToast(message string, toastType ToastType) *Toast {
	return &Toast{
		ID:          newToastID(),
		Message:     message,
		Type:        toastType,
		Dismissible: true,
		Timestamp:   time.Now(),
	}
}

// WithDuration sets the auto-dismiss duration and returns the toast for chaining.
func (t *Toast) WithDuration(duration time.Duration) *Toast {
	t.Duration = duration
	return t
}

// Persistent disables auto-dismissal and returns the toast for chaining.
func (t *Toast) Persistent() *Toast {
	t.Duration = -1
	return t
}

// WithComponent sets the source component and returns the toast for chaining.
func (t *Toast) WithComponent(component string) *Toast {
	t.Component = component
	return t
}

// WithAction attaches an action and returns the toast for chaining.
func (t *Toast) WithAction(label, url, handler string) *Toast {
	t.Action = &ToastAction{Label: label, URL: url, Handler: handler}
	return t
}

// ToNotification bridges the toast onto the notification broadcast so it
// rides the same SSE stream as regular notifications. The result carries
// isToast metadata, which keeps it out of notification list queries, and
// a short expiry so reconnecting clients do not replay stale toasts.
func (t *Toast) ToNotification() *Notification {
	var notifType Type
	var priority Priority
	switch t.Type {
	case ToastTypeError:
		notifType = TypeError
		priority = PriorityHigh
	case ToastTypeWarning:
		notifType = TypeWarning
		priority = PriorityMedium
	case ToastTypeSuccess, ToastTypeInfo, ToastTypeDefault:
		notifType = TypeInfo
		priority = PriorityLow
	default:
		notifType = TypeInfo
		priority = PriorityLow
	}

	notif := NewNotification(notifType, priority, "Toast Message", t.Message).
		WithComponent(t.Component).
		WithMetadata(MetadataKeyIsToast, true).
		WithMetadata("toastType", string(t.Type)).
		WithMetadata("toastId", t.ID).
		WithExpiry(toastNotificationTTL)

	if t.Duration != 0 {
		notif.WithMetadata("duration", t.Duration.Milliseconds())
	}
	if t.Action != nil {
		notif.WithMetadata("action", t.Action)
	}

	return notif
}
