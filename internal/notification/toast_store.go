package notification

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mkarvala/sidekick-go/internal/observability/metrics"
)

// leaveDelay is how long a toast marked leaving stays in the store so
// the display surface can play its exit animation.
const leaveDelay = 300 * time.Millisecond

// ToastSubscriber is invoked with the post-mutation snapshot on every
// store change.
type ToastSubscriber func(toasts []Toast)

// ToastStore holds the live toast list with per-item expiry timers and
// synchronous subscriber notification.
//
// Every mutation builds a fresh list, so a snapshot handed out earlier is
// never changed underneath its holder. Subscribers run synchronously in
// registration order before the mutating call returns, outside the store
// lock so a callback may safely call back into the store.
type ToastStore struct {
	mu          sync.Mutex
	toasts      []*Toast
	timers      map[string]*time.Timer
	subscribers []toastSubscription
	nextSubID   int
	maxVisible  int
	defaultTTL  time.Duration
	logger      *slog.Logger
	metrics     *metrics.NotificationMetrics
}

type toastSubscription struct {
	id int
	fn ToastSubscriber
}

// ToastStoreOption configures a ToastStore.
type ToastStoreOption func(*ToastStore)

// WithMaxVisible overrides the visible toast cap.
func WithMaxVisible(n int) ToastStoreOption {
	return func(s *ToastStore) {
		if n > 0 {
			s.maxVisible = n
		}
	}
}

// WithDefaultDuration overrides the duration applied to toasts created
// without one.
func WithDefaultDuration(d time.Duration) ToastStoreOption {
	return func(s *ToastStore) {
		if d != 0 {
			s.defaultTTL = d
		}
	}
}

// WithToastMetrics sets the metrics collector.
func WithToastMetrics(m *metrics.NotificationMetrics) ToastStoreOption {
	return func(s *ToastStore) {
		s.metrics = m
	}
}

// NewToastStore creates an empty toast store.
func NewToastStore(opts ...ToastStoreOption) *ToastStore {
	s := &ToastStore{
		timers:     make(map[string]*time.Timer),
		maxVisible: DefaultMaxVisibleToasts,
		defaultTTL: DefaultToastDuration,
		logger:     getFileLogger(false).With("subsystem", "toast-store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add inserts a toast, schedules its expiry unless it is persistent, and
// notifies subscribers. It returns the toast's ID.
func (s *ToastStore) Add(toast *Toast) string {
	if toast.ID == "" {
		toast.ID = NewToast(toast.Message, toast.Type).ID
	}
	if toast.Timestamp.IsZero() {
		toast.Timestamp = time.Now()
	}
	if toast.Duration == 0 {
		toast.Duration = s.defaultTTL
	}

	s.mu.Lock()
	next := make([]*Toast, len(s.toasts), len(s.toasts)+1)
	copy(next, s.toasts)
	s.toasts = append(next, toast)

	// Negative duration means persistent: no timer.
	if toast.Duration > 0 {
		id := toast.ID
		s.timers[id] = time.AfterFunc(toast.Duration, func() {
			s.expire(id)
		})
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordToast(string(toast.Type))
	}
	s.notify(snapshot)
	return toast.ID
}

// Dismiss cancels the toast's expiry timer and removes it. Dismissing an
// unknown or already-removed ID is a no-op: no mutation, no subscriber
// notification.
func (s *ToastStore) Dismiss(id string) {
	s.mu.Lock()
	if !s.removeLocked(id) {
		s.mu.Unlock()
		return
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
}

// MarkLeaving flags a toast as mid-exit-animation and schedules its
// removal after the animation delay. The expiry timer, if any, is
// replaced so the item cannot be removed twice.
func (s *ToastStore) MarkLeaving(id string) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}

	next := make([]*Toast, len(s.toasts))
	copy(next, s.toasts)
	leaving := *next[idx]
	leaving.Leaving = true
	next[idx] = &leaving
	s.toasts = next

	if timer, ok := s.timers[id]; ok {
		timer.Stop()
	}
	s.timers[id] = time.AfterFunc(leaveDelay, func() {
		s.Dismiss(id)
	})
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
}

// ClearAll cancels every pending timer and empties the store. Timers
// already fired but not yet run find their IDs gone and do nothing.
func (s *ToastStore) ClearAll() {
	s.mu.Lock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	changed := len(s.toasts) > 0
	s.toasts = nil
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if changed {
		s.notify(snapshot)
	}
}

// Subscribe registers a callback invoked on every store mutation. The
// returned function deregisters it.
func (s *ToastStore) Subscribe(fn ToastSubscriber) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers = append(s.subscribers, toastSubscription{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subscribers {
			if sub.id == id {
				s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
				break
			}
		}
	}
}

// Snapshot returns the current toast list as value copies, in creation
// order.
func (s *ToastStore) Snapshot() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Visible returns the most recent maxVisible toasts for display.
func (s *ToastStore) Visible() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshotLocked()
	if len(snapshot) > s.maxVisible {
		snapshot = snapshot[len(snapshot)-s.maxVisible:]
	}
	return snapshot
}

// Len returns the number of stored toasts.
func (s *ToastStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.toasts)
}

// expire is the timer callback. The presence check guards against a
// timer that fires after its toast was dismissed or the store cleared.
func (s *ToastStore) expire(id string) {
	s.mu.Lock()
	if !s.removeLocked(id) {
		s.mu.Unlock()
		return
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordToastExpired()
	}
	s.notify(snapshot)
}

// removeLocked stops the toast's timer and removes it from the list.
// It reports whether anything was removed. Caller must hold the lock.
func (s *ToastStore) removeLocked(id string) bool {
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}

	idx := s.indexLocked(id)
	if idx < 0 {
		return false
	}

	next := make([]*Toast, 0, len(s.toasts)-1)
	next = append(next, s.toasts[:idx]...)
	next = append(next, s.toasts[idx+1:]...)
	s.toasts = next
	return true
}

func (s *ToastStore) indexLocked(id string) int {
	for i, t := range s.toasts {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *ToastStore) snapshotLocked() []Toast {
	snapshot := make([]Toast, len(s.toasts))
	for i, t := range s.toasts {
		snapshot[i] = *t
	}
	return snapshot
}

// notify invokes subscribers in registration order with the given
// snapshot. Runs outside the store lock.
func (s *ToastStore) notify(snapshot []Toast) {
	s.mu.Lock()
	subs := make([]toastSubscription, len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(snapshot)
	}
}
