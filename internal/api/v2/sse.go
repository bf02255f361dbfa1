package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkarvala/sidekick-go/internal/errors"
)

const sseWriteTimeout = 10 * time.Second

// sendSSEMessage writes a single SSE event frame and flushes it. A write
// deadline bounds how long a slow client can stall the event loop.
func (c *Controller) sendSSEMessage(ctx echo.Context, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryBroadcast).
			Context("event", event).
			Build()
	}

	type deadlineSetter interface {
		SetWriteDeadline(time.Time) error
	}
	if conn, ok := ctx.Response().Writer.(deadlineSetter); ok {
		if err := conn.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
			c.apiLogger.Warn("failed to set SSE write deadline", "error", err)
		}
	}

	if _, err := fmt.Fprintf(ctx.Response(), "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryBroadcast).
			Context("event", event).
			Build()
	}

	flusher, ok := ctx.Response().Writer.(http.Flusher)
	if !ok {
		return errors.Newf("streaming unsupported by response writer").
			Component("api").
			Category(errors.CategoryBroadcast).
			Build()
	}
	flusher.Flush()

	if c.metrics != nil && c.metrics.HTTP != nil {
		c.metrics.HTTP.RecordSSEEvent(event)
	}

	return nil
}

func (c *Controller) setSSEHeaders(ctx echo.Context) {
	h := ctx.Response().Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("X-Accel-Buffering", "no")
}
