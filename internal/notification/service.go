package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/mkarvala/sidekick-go/internal/errors"
	"github.com/mkarvala/sidekick-go/internal/observability/metrics"
	"github.com/mkarvala/sidekick-go/internal/privacy"
)

// Subscriber represents a notification subscriber
type Subscriber struct {
	ch     chan *Notification
	ctx    context.Context
	cancel context.CancelFunc
}

// Service manages notifications and toasts, with rate limiting and
// subscriber broadcast.
type Service struct {
	store         Store
	toasts        *ToastStore
	subscribers   []*Subscriber
	subscribersMu sync.RWMutex
	rateLimiter   *RateLimiter
	dedup         *gocache.Cache
	cleanupTicker *time.Ticker
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	logger        *slog.Logger
	config        *ServiceConfig
	metrics       *metrics.NotificationMetrics
}

// ServiceConfig holds the complete configuration for the notification
// service.
type ServiceConfig struct {
	// Debug enables debug logging for the service
	Debug bool
	// MaxNotifications is the maximum number of notifications kept in memory
	MaxNotifications int
	// CleanupInterval is how often expired notifications are purged
	CleanupInterval time.Duration
	// RateLimitWindow is the time window for rate limiting
	RateLimitWindow time.Duration
	// RateLimitMaxEvents is the maximum number of events per window
	RateLimitMaxEvents int
	// MaxVisibleToasts caps the display list returned by the toast store
	MaxVisibleToasts int
	// DefaultToastDuration applies to toasts created without a duration
	DefaultToastDuration time.Duration
	// ToastDedupWindow suppresses identical toasts raised within the window
	ToastDedupWindow time.Duration
}

// DefaultServiceConfig returns a default configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxNotifications:     DefaultMaxNotifications,
		CleanupInterval:      DefaultCleanupInterval,
		RateLimitWindow:      1 * time.Minute,
		RateLimitMaxEvents:   DefaultRateLimitMaxEvents,
		MaxVisibleToasts:     DefaultMaxVisibleToasts,
		DefaultToastDuration: DefaultToastDuration,
		ToastDedupWindow:     DefaultToastDedupWindow,
	}
}

// NewService creates a new notification service and starts its cleanup
// worker.
func NewService(config *ServiceConfig) *Service {
	if config == nil {
		config = DefaultServiceConfig()
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCleanupInterval
	}
	if config.ToastDedupWindow <= 0 {
		config.ToastDedupWindow = DefaultToastDedupWindow
	}

	ctx, cancel := context.WithCancel(context.Background())

	service := &Service{
		store: NewInMemoryStore(config.MaxNotifications),
		toasts: NewToastStore(
			WithMaxVisible(config.MaxVisibleToasts),
			WithDefaultDuration(config.DefaultToastDuration),
		),
		subscribers:   make([]*Subscriber, 0),
		rateLimiter:   NewRateLimiter(config.RateLimitWindow, config.RateLimitMaxEvents),
		// No janitor goroutine: entries are few and checked lazily on Get.
		dedup:         gocache.New(config.ToastDedupWindow, 0),
		cleanupTicker: time.NewTicker(config.CleanupInterval),
		ctx:           ctx,
		cancel:        cancel,
		logger:        getFileLogger(config.Debug),
		config:        config,
	}

	service.logger.Info("notification service initialized",
		"max_notifications", config.MaxNotifications,
		"cleanup_interval", config.CleanupInterval,
		"rate_limit_window", config.RateLimitWindow,
		"rate_limit_max_events", config.RateLimitMaxEvents,
		"toast_dedup_window", config.ToastDedupWindow,
		"debug", config.Debug)

	service.wg.Add(1)
	go service.cleanupLoop()

	return service
}

// SetMetrics attaches the metrics collector. Must be called before the
// service is shared across goroutines.
func (s *Service) SetMetrics(m *metrics.NotificationMetrics) {
	s.metrics = m
	s.toasts.metrics = m
}

// Toasts exposes the toast store.
func (s *Service) Toasts() *ToastStore {
	return s.toasts
}

// Create adds a new notification to the system
func (s *Service) Create(notifType Type, priority Priority, title, message string) (*Notification, error) {
	return s.CreateWithComponent(notifType, priority, title, message, "")
}

// CreateWithComponent creates a notification attributed to a component
func (s *Service) CreateWithComponent(notifType Type, priority Priority, title, message, component string) (*Notification, error) {
	if !s.rateLimiter.Allow() {
		if s.metrics != nil {
			s.metrics.RecordDropped("rate_limited")
		}
		if s.config.Debug {
			s.logger.Debug("notification rate limit exceeded",
				"type", notifType,
				"priority", priority,
				"title_length", len(title))
		}
		return nil, errors.Newf("rate limit exceeded").
			Component("notification").
			Category(errors.CategoryLimit).
			Build()
	}

	notification := NewNotification(notifType, priority, title, message)
	if component != "" {
		notification.WithComponent(component)
	}

	if err := s.store.Save(notification); err != nil {
		return nil, errors.New(err).
			Component("notification").
			Category(errors.CategorySystem).
			Context("operation", "save_notification").
			Build()
	}

	if s.metrics != nil {
		s.metrics.RecordCreated(string(notifType), string(priority))
		if store, ok := s.store.(*InMemoryStore); ok {
			s.metrics.UpdateStoreSize(store.Size())
		}
	}

	s.broadcast(notification)

	if s.config.Debug {
		s.logger.Debug("notification created and broadcast",
			"id", notification.ID,
			"type", notifType,
			"priority", priority)
	}

	return notification, nil
}

// SendToast raises a toast: it enters the toast store (with expiry
// scheduling and subscriber notification) and rides the notification
// broadcast as an SSE-only message. Identical toasts inside the dedup
// window are suppressed.
func (s *Service) SendToast(toast *Toast) error {
	if toast == nil || toast.Message == "" {
		return errors.Newf("toast message cannot be empty").
			Component("notification").
			Category(errors.CategoryValidation).
			Build()
	}

	dedupKey := string(toast.Type) + "\x00" + toast.Message
	if _, suppressed := s.dedup.Get(dedupKey); suppressed {
		if s.metrics != nil {
			s.metrics.RecordToastDeduped()
		}
		if s.config.Debug {
			s.logger.Debug("toast suppressed by dedup window",
				"type", toast.Type,
				"message_length", len(toast.Message))
		}
		return nil
	}
	s.dedup.SetDefault(dedupKey, struct{}{})

	s.toasts.Add(toast)

	notification := toast.ToNotification()
	if err := s.store.Save(notification); err != nil {
		return errors.New(err).
			Component("notification").
			Category(errors.CategorySystem).
			Context("operation", "save_toast_notification").
			Build()
	}
	s.broadcast(notification)

	return nil
}

// Get retrieves a notification by ID
func (s *Service) Get(id string) (*Notification, error) {
	return s.store.Get(id)
}

// List returns notifications based on filter options
func (s *Service) List(filter *FilterOptions) ([]*Notification, error) {
	return s.store.List(filter)
}

// MarkAsRead updates a notification's status to read
func (s *Service) MarkAsRead(id string) error {
	if id == "" {
		return errEmptyID()
	}

	notification, err := s.store.Get(id)
	if err != nil {
		return err
	}

	notification.MarkAsRead()
	return s.store.Update(notification)
}

// MarkAsAcknowledged updates a notification's status to acknowledged
func (s *Service) MarkAsAcknowledged(id string) error {
	if id == "" {
		return errEmptyID()
	}

	notification, err := s.store.Get(id)
	if err != nil {
		return err
	}

	notification.MarkAsAcknowledged()
	return s.store.Update(notification)
}

// Delete removes a notification
func (s *Service) Delete(id string) error {
	if id == "" {
		return errEmptyID()
	}
	return s.store.Delete(id)
}

func errEmptyID() error {
	return errors.Newf("notification ID cannot be empty").
		Component("notification").
		Category(errors.CategoryValidation).
		Build()
}

// Subscribe creates a channel that receives every broadcast
// notification.
//
// The returned context is cancelled when the subscription ends. The
// subscriber must watch ctx.Done() and must not close the channel; the
// service cleans up cancelled subscribers during broadcast. Unsubscribe
// with service.Unsubscribe(ch).
func (s *Service) Subscribe() (<-chan *Notification, context.Context) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	ctx, cancel := context.WithCancel(s.ctx)
	sub := &Subscriber{
		ch:     make(chan *Notification, DefaultChannelBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
	s.subscribers = append(s.subscribers, sub)

	if s.metrics != nil {
		s.metrics.UpdateSubscriberCount(len(s.subscribers))
	}
	if s.config.Debug {
		s.logger.Debug("new subscriber added",
			"total_subscribers", len(s.subscribers))
	}

	return sub.ch, ctx
}

// Unsubscribe removes a notification channel. It cancels the
// subscriber's context but does not close the channel.
func (s *Service) Unsubscribe(ch <-chan *Notification) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	for i, subscriber := range s.subscribers {
		if subscriber.ch == ch {
			subscriber.cancel()
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)

			if s.metrics != nil {
				s.metrics.UpdateSubscriberCount(len(s.subscribers))
			}
			if s.config.Debug {
				s.logger.Debug("subscriber removed",
					"remaining_subscribers", len(s.subscribers))
			}
			break
		}
	}
}

// GetUnreadCount returns the number of unread notifications
func (s *Service) GetUnreadCount() (int, error) {
	return s.store.GetUnreadCount()
}

// CreateErrorNotification creates a notification from an error,
// deriving priority and title from the error's category when available.
func (s *Service) CreateErrorNotification(err error) (*Notification, error) {
	var title, message, component string
	var priority Priority

	var enhancedErr *errors.EnhancedError
	if errors.As(err, &enhancedErr) {
		component = enhancedErr.GetComponent()
		message = enhancedErr.Error()

		switch enhancedErr.GetCategory() {
		case string(errors.CategorySystem), string(errors.CategoryConfiguration):
			priority = PriorityCritical
			title = "Critical System Error"
		case string(errors.CategoryNetwork), string(errors.CategoryHTTP), string(errors.CategoryStream):
			priority = PriorityHigh
			title = "Connection Error"
		case string(errors.CategoryDecode):
			priority = PriorityLow
			title = "Stream Decode Notice"
		default:
			priority = PriorityMedium
			title = "Application Error"
		}
	} else {
		priority = PriorityMedium
		title = "Application Error"
		message = err.Error()
		component = "unknown"
	}

	// Error text can embed upstream URLs; scrub them before the message
	// becomes user-visible.
	return s.CreateWithComponent(TypeError, priority, title, privacy.ScrubMessage(message), component)
}

// ReportStreamFault records a fatal stream error as both a high-priority
// notification and an error toast, so the user sees "message failed"
// immediately and the notification center keeps the record.
func (s *Service) ReportStreamFault(err error) {
	if err == nil {
		return
	}
	_, _ = s.CreateErrorNotification(err)
	_ = s.SendToast(NewToast("Message failed to send", ToastTypeError).WithComponent("streaming"))
}

// broadcastStats tracks broadcast results.
type broadcastStats struct {
	success   int
	failed    int
	cancelled int
}

// broadcast sends a notification to all subscribers. Each subscriber
// receives a clone, so later mutation of the original cannot race a
// subscriber serializing its copy.
func (s *Service) broadcast(notification *Notification) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	activeSubscribers := make([]*Subscriber, 0, len(s.subscribers))
	var stats broadcastStats

	for _, sub := range s.subscribers {
		select {
		case <-sub.ctx.Done():
			stats.cancelled++
			continue
		default:
		}

		activeSubscribers = append(activeSubscribers, sub)
		select {
		case sub.ch <- notification.Clone():
			stats.success++
		default:
			stats.failed++
			if s.metrics != nil {
				s.metrics.RecordDropped("subscriber_full")
			}
			s.logger.Debug("notification channel full, skipping subscriber")
		}
	}

	s.subscribers = activeSubscribers

	if s.config.Debug && (stats.success > 0 || stats.failed > 0 || stats.cancelled > 0) {
		s.logger.Debug("broadcast completed",
			"notification_id", notification.ID,
			"success_count", stats.success,
			"failed_count", stats.failed,
			"cancelled_count", stats.cancelled,
			"active_subscribers", len(activeSubscribers))
	}
}

// cleanupLoop periodically removes expired notifications
func (s *Service) cleanupLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.cleanupTicker.C:
			if err := s.store.DeleteExpired(); err != nil {
				s.logger.Error("error cleaning up expired notifications", "error", err)
			} else if s.config.Debug {
				s.logger.Debug("notification cleanup completed")
			}
		case <-s.ctx.Done():
			if s.config.Debug {
				s.logger.Debug("notification cleanup loop shutting down")
			}
			return
		}
	}
}

// Stop gracefully shuts down the notification service
func (s *Service) Stop() {
	s.logger.Info("notification service shutting down")

	s.cancel()
	s.cleanupTicker.Stop()
	s.wg.Wait()

	s.toasts.ClearAll()

	s.subscribersMu.Lock()
	subscriberCount := len(s.subscribers)
	for _, sub := range s.subscribers {
		sub.cancel()
	}
	s.subscribers = nil
	s.subscribersMu.Unlock()

	s.logger.Info("notification service stopped",
		"subscribers_cancelled", subscriberCount)
}

// RateLimiter provides sliding-window rate limiting for notifications
type RateLimiter struct {
	window    time.Duration
	maxEvents int
	events    []time.Time
	mu        sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(window time.Duration, maxEvents int) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if maxEvents <= 0 {
		maxEvents = DefaultRateLimitMaxEvents
	}
	return &RateLimiter{
		window:    window,
		maxEvents: maxEvents,
		events:    make([]time.Time, 0, maxEvents),
	}
}

// Allow checks if an event is allowed based on rate limits
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	// Compact in place, keeping only events inside the window.
	validCount := 0
	for _, event := range r.events {
		if event.After(cutoff) {
			r.events[validCount] = event
			validCount++
		}
	}
	r.events = r.events[:validCount]

	if len(r.events) >= r.maxEvents {
		return false
	}

	r.events = append(r.events, now)
	return true
}

// Reset clears the rate limiter
func (r *RateLimiter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
