package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mkarvala/sidekick-go/internal/errors"
	"github.com/mkarvala/sidekick-go/internal/notification"
	"github.com/mkarvala/sidekick-go/internal/privacy"
)

const (
	// Hard cap on SSE connection lifetime so abandoned tabs do not pin
	// subscriptions forever.
	maxSSEConnectionDuration = 30 * time.Minute
	heartbeatInterval        = 30 * time.Second
	rateLimitWindow          = 1 * time.Minute
	rateLimitPerWindow       = 10
	rateLimitBurst           = 15

	defaultListLimit = 50
)

// streamClient tracks one connected SSE subscriber.
type streamClient struct {
	id        string
	events    <-chan *notification.Notification
	done      <-chan struct{}
	connected time.Time
}

func (c *Controller) initNotificationRoutes() {
	rateLimiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rateLimitPerWindow,
				Burst:     rateLimitBurst,
				ExpiresIn: rateLimitWindow,
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return ctx.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Too many stream connection attempts, please wait before trying again",
			})
		},
	}

	c.Group.GET("/notifications/stream", c.StreamNotifications, middleware.RateLimiterWithConfig(rateLimiterConfig))

	c.Group.GET("/notifications", c.GetNotifications)
	c.Group.GET("/notifications/:id", c.GetNotification)
	c.Group.PUT("/notifications/:id/read", c.MarkNotificationRead)
	c.Group.PUT("/notifications/:id/acknowledge", c.MarkNotificationAcknowledged)
	c.Group.DELETE("/notifications/:id", c.DeleteNotification)
	c.Group.GET("/notifications/unread/count", c.GetUnreadCount)
}

// service returns the notification service for this controller, preferring
// the injected instance over the process-wide one.
func (c *Controller) service() *notification.Service {
	if c.notifications != nil {
		return c.notifications
	}
	if notification.IsInitialized() {
		return notification.GetService()
	}
	return nil
}

func serviceUnavailable(ctx echo.Context) error {
	return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
		"error": "Notification service not available",
	})
}

// StreamNotifications serves the SSE stream carrying both notification and
// toast events to the client.
func (c *Controller) StreamNotifications(ctx echo.Context) error {
	service := c.service()
	if service == nil {
		return serviceUnavailable(ctx)
	}

	c.setSSEHeaders(ctx)

	events, subCtx := service.Subscribe()
	defer service.Unsubscribe(events)

	client := &streamClient{
		id:        uuid.New().String(),
		events:    events,
		done:      subCtx.Done(),
		connected: time.Now(),
	}

	c.registerSSEClient(client.id)
	defer c.unregisterSSEClient(client.id)

	if err := c.sendSSEMessage(ctx, "connected", map[string]string{
		"clientId": client.id,
		"message":  "Connected to notification stream",
	}); err != nil {
		return err
	}

	c.apiLogger.Info("SSE client connected",
		"clientId", client.id,
		"ip", privacy.AnonymizeIP(ctx.RealIP()),
		"user_agent", privacy.RedactUserAgent(ctx.Request().UserAgent()))
	defer func() {
		c.apiLogger.Info("SSE client disconnected",
			"clientId", client.id,
			"duration", time.Since(client.connected).String())
	}()

	return c.runStreamEventLoop(ctx, client)
}

func (c *Controller) runStreamEventLoop(ctx echo.Context, client *streamClient) error {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	reqDone := ctx.Request().Context().Done()

	for {
		select {
		case notif := <-client.events:
			if notif == nil {
				// Channel closed, service is shutting down.
				return nil
			}
			if err := c.sendStreamEvent(ctx, client.id, notif); err != nil {
				if c.metrics != nil && c.metrics.HTTP != nil {
					c.metrics.HTTP.RecordSSEDrop()
				}
				return nil
			}

		case <-ticker.C:
			if time.Since(client.connected) > maxSSEConnectionDuration {
				c.apiLogger.Info("SSE connection exceeded max duration", "clientId", client.id)
				return nil
			}
			if err := c.sendSSEMessage(ctx, "heartbeat", map[string]string{
				"timestamp": time.Now().Format(time.RFC3339),
			}); err != nil {
				return nil
			}

		case <-reqDone:
			return nil

		case <-client.done:
			// Subscription cancelled by the service.
			return nil

		case <-c.ctx.Done():
			// Controller shutting down.
			return nil
		}
	}
}

// sendStreamEvent routes a notification to the matching SSE event type.
// Toast-backed notifications go out as "toast" events with the payload the
// frontend toast store expects.
func (c *Controller) sendStreamEvent(ctx echo.Context, clientID string, notif *notification.Notification) error {
	if isToast, _ := notif.Metadata[notification.MetadataKeyIsToast].(bool); isToast {
		if err := c.sendSSEMessage(ctx, "toast", toastEventData(notif)); err != nil {
			c.apiLogger.Error("failed to send toast event", "error", err, "clientId", clientID)
			return err
		}
		return nil
	}

	if err := c.sendSSEMessage(ctx, "notification", notif); err != nil {
		c.apiLogger.Error("failed to send notification event", "error", err, "clientId", clientID)
		return err
	}
	return nil
}

// toastEventData flattens the toast metadata riding on a notification back
// into the wire shape toasts were created with.
func toastEventData(notif *notification.Notification) map[string]any {
	toastType, _ := notif.Metadata["toastType"].(string)

	event := map[string]any{
		"id":        notif.Metadata["toastId"],
		"message":   notif.Message,
		"type":      toastType,
		"timestamp": notif.Timestamp,
	}
	if notif.Component != "" {
		event["component"] = notif.Component
	}
	if duration, ok := notif.Metadata["duration"].(int64); ok && duration != 0 {
		event["duration"] = duration
	}
	if action, ok := notif.Metadata["action"].(*notification.ToastAction); ok && action != nil {
		event["action"] = action
	}
	return event
}

// GetNotifications lists notifications with optional status, type, priority,
// limit and offset filters.
func (c *Controller) GetNotifications(ctx echo.Context) error {
	service := c.service()
	if service == nil {
		return serviceUnavailable(ctx)
	}

	filter := &notification.FilterOptions{Limit: defaultListLimit}

	if status := ctx.QueryParam("status"); status != "" {
		filter.Status = []notification.Status{notification.Status(status)}
	}
	if typeParam := ctx.QueryParam("type"); typeParam != "" {
		filter.Types = []notification.Type{notification.Type(typeParam)}
	}
	if priority := ctx.QueryParam("priority"); priority != "" {
		filter.Priorities = []notification.Priority{notification.Priority(priority)}
	}
	if limitParam := ctx.QueryParam("limit"); limitParam != "" {
		if limit, err := strconv.Atoi(limitParam); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}
	if offsetParam := ctx.QueryParam("offset"); offsetParam != "" {
		if offset, err := strconv.Atoi(offsetParam); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}

	notifications, err := service.List(filter)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to retrieve notifications", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"notifications": notifications,
		"count":         len(notifications),
		"limit":         filter.Limit,
		"offset":        filter.Offset,
	})
}

// GetNotification returns a single notification by ID.
func (c *Controller) GetNotification(ctx echo.Context) error {
	service := c.service()
	if service == nil {
		return serviceUnavailable(ctx)
	}

	id := ctx.Param("id")
	if id == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "Notification ID is required",
		})
	}

	notif, err := service.Get(id)
	if err != nil {
		if errors.Is(err, notification.ErrNotificationNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{
				"error": "Notification not found",
			})
		}
		return c.HandleError(ctx, err, "Failed to retrieve notification", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, notif)
}

// MarkNotificationRead marks a notification as read.
func (c *Controller) MarkNotificationRead(ctx echo.Context) error {
	return c.updateNotificationStatus(ctx, "read", func(service *notification.Service, id string) error {
		return service.MarkAsRead(id)
	})
}

// MarkNotificationAcknowledged marks a notification as acknowledged.
func (c *Controller) MarkNotificationAcknowledged(ctx echo.Context) error {
	return c.updateNotificationStatus(ctx, "acknowledged", func(service *notification.Service, id string) error {
		return service.MarkAsAcknowledged(id)
	})
}

func (c *Controller) updateNotificationStatus(ctx echo.Context, action string, update func(*notification.Service, string) error) error {
	service := c.service()
	if service == nil {
		return serviceUnavailable(ctx)
	}

	id := ctx.Param("id")
	if id == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "Notification ID is required",
		})
	}

	if err := update(service, id); err != nil {
		if errors.Is(err, notification.ErrNotificationNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{
				"error": "Notification not found",
			})
		}
		return c.HandleError(ctx, err, "Failed to mark notification as "+action, http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]string{
		"message": "Notification marked as " + action,
	})
}

// DeleteNotification deletes a notification.
func (c *Controller) DeleteNotification(ctx echo.Context) error {
	service := c.service()
	if service == nil {
		return serviceUnavailable(ctx)
	}

	id := ctx.Param("id")
	if id == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "Notification ID is required",
		})
	}

	if err := service.Delete(id); err != nil {
		return c.HandleError(ctx, err, "Failed to delete notification", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]string{
		"message": "Notification deleted",
	})
}

// GetUnreadCount returns the count of unread notifications.
func (c *Controller) GetUnreadCount(ctx echo.Context) error {
	service := c.service()
	if service == nil {
		return serviceUnavailable(ctx)
	}

	count, err := service.GetUnreadCount()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get unread count", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"unreadCount": count,
	})
}
