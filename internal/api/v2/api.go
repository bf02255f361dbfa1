// Package api provides the JSON REST and SSE API for the Sidekick gateway.
package api

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mkarvala/sidekick-go/internal/buildinfo"
	"github.com/mkarvala/sidekick-go/internal/conf"
	"github.com/mkarvala/sidekick-go/internal/errors"
	"github.com/mkarvala/sidekick-go/internal/httpclient"
	"github.com/mkarvala/sidekick-go/internal/logging"
	"github.com/mkarvala/sidekick-go/internal/notification"
	"github.com/mkarvala/sidekick-go/internal/observability"
	"github.com/mkarvala/sidekick-go/internal/privacy"
	"github.com/mkarvala/sidekick-go/internal/streaming"
)

// Controller handles API routing and dependencies for all v2 endpoints.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Settings *conf.Settings

	notifications *notification.Service
	metrics       *observability.Metrics
	chat          *streaming.Client

	apiLogger      *slog.Logger
	apiLoggerClose func() error

	// Count of currently open SSE stream connections.
	sseClientsMu sync.RWMutex
	sseClients   map[string]time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startTime time.Time
}

// New creates a fully initialized API controller with all routes registered.
func New(e *echo.Echo, settings *conf.Settings, svc *notification.Service, metrics *observability.Metrics) *Controller {
	return NewWithOptions(e, settings, svc, metrics, true)
}

// NewWithOptions creates an API controller, optionally skipping route
// registration. Tests use initializeRoutes=false to register only the routes
// under test.
func NewWithOptions(e *echo.Echo, settings *conf.Settings, svc *notification.Service, metrics *observability.Metrics, initializeRoutes bool) *Controller {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		Echo:          e,
		Settings:      settings,
		notifications: svc,
		metrics:       metrics,
		sseClients:    make(map[string]time.Time),
		ctx:           ctx,
		cancel:        cancel,
		startTime:     time.Now(),
	}

	// File logger for API access and error logs. Falls back to a discard
	// logger so handlers never need a nil check before logging.
	var err error
	c.apiLogger, c.apiLoggerClose, err = logging.NewFileLogger("logs/web.log", "api", slog.LevelInfo)
	if err != nil {
		logging.ForService("api").Warn("failed to initialize API file logger, using fallback", "error", err)
		c.apiLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
		c.apiLoggerClose = func() error { return nil }
	}

	if settings != nil && settings.Upstream.URL != "" {
		var chatOpts []streaming.ClientOption
		if metrics != nil && metrics.Streaming != nil {
			chatOpts = append(chatOpts, streaming.WithClientMetrics(metrics.Streaming))
		}
		if settings.Upstream.Timeout > 0 {
			// Bounds the stream-open handshake; zero keeps streaming's
			// no-deadline default so open streams are never cut off.
			cfg := httpclient.StreamingConfig()
			cfg.DefaultTimeout = settings.Upstream.Timeout
			chatOpts = append(chatOpts, streaming.WithHTTPClient(httpclient.New(&cfg)))
		}
		c.chat = streaming.NewClient(settings.Upstream.URL, chatOpts...)
	}

	c.Group = e.Group("/api/v2")

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
	}))
	c.Group.Use(c.LoggingMiddleware())

	if initializeRoutes {
		c.initRoutes()
	}

	return c
}

// Shutdown stops all background operations and releases the controller's
// resources. The echo server itself is shut down by the caller.
func (c *Controller) Shutdown() {
	c.cancel()
	c.wg.Wait()

	if c.chat != nil {
		c.chat.Close()
	}

	if c.apiLoggerClose != nil {
		if err := c.apiLoggerClose(); err != nil {
			logging.ForService("api").Error("failed to close API log file", "error", err)
		}
	}
}

// initRoutes registers all route groups, recovering from panics in any
// single initializer so one bad group does not take down the rest.
func (c *Controller) initRoutes() {
	routeInitializers := []struct {
		name string
		fn   func()
	}{
		{"health routes", c.initHealthRoutes},
		{"notification routes", c.initNotificationRoutes},
		{"toast routes", c.initToastRoutes},
		{"timeline routes", c.initTimelineRoutes},
		{"chat routes", c.initChatRoutes},
	}

	for _, initializer := range routeInitializers {
		c.Debug("initializing %s", initializer.name)

		func(name string, fn func()) {
			defer func() {
				if r := recover(); r != nil {
					c.apiLogger.Error("panic during route initialization",
						"group", name, "panic", fmt.Sprintf("%v", r))
				}
			}()
			fn()
		}(initializer.name, initializer.fn)
	}
}

func (c *Controller) initHealthRoutes() {
	c.Group.GET("/health", c.HealthCheck)
	c.Group.GET("/streams/status", c.GetStreamStatus)
}

// HealthCheck reports process health and uptime.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	build := buildinfo.Get()
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"version":        build.Version,
		"build_date":     build.BuildDate,
		"uptime_seconds": int64(time.Since(c.startTime).Seconds()),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// GetStreamStatus reports the currently connected SSE clients.
func (c *Controller) GetStreamStatus(ctx echo.Context) error {
	c.sseClientsMu.RLock()
	clients := make([]map[string]any, 0, len(c.sseClients))
	for id, connectedAt := range c.sseClients {
		clients = append(clients, map[string]any{
			"id":                id,
			"connected_seconds": int64(time.Since(connectedAt).Seconds()),
		})
	}
	c.sseClientsMu.RUnlock()

	return ctx.JSON(http.StatusOK, map[string]any{
		"connected_clients": len(clients),
		"clients":           clients,
	})
}

// LoggingMiddleware logs every request with latency and client IP.
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()

			err := next(ctx)

			latency := time.Since(start)
			status := ctx.Response().Status
			if err != nil {
				var httpErr *echo.HTTPError
				if errors.As(err, &httpErr) {
					status = httpErr.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			} else if status >= http.StatusBadRequest {
				level = slog.LevelWarn
			}

			c.apiLogger.LogAttrs(ctx.Request().Context(), level, "API request",
				slog.String("method", ctx.Request().Method),
				slog.String("path", ctx.Request().URL.Path),
				slog.Int("status", status),
				slog.String("ip", privacy.AnonymizeIP(ctx.RealIP())),
				slog.Duration("latency", latency),
			)

			if c.metrics != nil && c.metrics.HTTP != nil {
				c.metrics.HTTP.RecordRequest(ctx.Request().Method, ctx.Path(), fmt.Sprintf("%d", status), latency)
			}

			return err
		}
	}
}

// ErrorResponse is the standard JSON error body for all v2 endpoints.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// HandleError logs err with a correlation ID and writes a standard error
// response with a user-facing message.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	correlationID := generateCorrelationID()

	c.apiLogger.Error(message,
		"error", err,
		"correlation_id", correlationID,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"ip", privacy.AnonymizeIP(ctx.RealIP()),
	)

	errorMessage := message
	if c.Settings != nil && c.Settings.WebServer.Debug && err != nil {
		errorMessage = fmt.Sprintf("%s: %v", message, err)
	}

	return ctx.JSON(code, ErrorResponse{
		Error:         http.StatusText(code),
		Message:       errorMessage,
		Code:          code,
		CorrelationID: correlationID,
	})
}

// Debug logs a formatted debug message when web server debugging is enabled.
func (c *Controller) Debug(format string, v ...any) {
	if c.Settings != nil && c.Settings.WebServer.Debug {
		c.apiLogger.Debug(fmt.Sprintf(format, v...))
	}
}

const correlationIDLength = 8
const correlationIDCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// generateCorrelationID returns a short random ID for correlating an error
// response with its log entry.
func generateCorrelationID() string {
	b := make([]byte, correlationIDLength)
	charsetLen := big.NewInt(int64(len(correlationIDCharset)))
	for i := range b {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			// Degraded but still unique enough for log correlation.
			b[i] = correlationIDCharset[time.Now().Nanosecond()%len(correlationIDCharset)]
			continue
		}
		b[i] = correlationIDCharset[n.Int64()]
	}
	return string(b)
}

func (c *Controller) registerSSEClient(id string) {
	c.sseClientsMu.Lock()
	c.sseClients[id] = time.Now()
	count := len(c.sseClients)
	c.sseClientsMu.Unlock()

	if c.metrics != nil && c.metrics.HTTP != nil {
		c.metrics.HTTP.UpdateSSEConnections(count)
	}
}

func (c *Controller) unregisterSSEClient(id string) {
	c.sseClientsMu.Lock()
	delete(c.sseClients, id)
	count := len(c.sseClients)
	c.sseClientsMu.Unlock()

	if c.metrics != nil && c.metrics.HTTP != nil {
		c.metrics.HTTP.UpdateSSEConnections(count)
	}
}
