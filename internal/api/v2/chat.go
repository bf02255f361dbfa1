package api

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mkarvala/sidekick-go/internal/errors"
	"github.com/mkarvala/sidekick-go/internal/packet"
	"github.com/mkarvala/sidekick-go/internal/streaming"
)

func (c *Controller) initChatRoutes() {
	c.Group.POST("/chat", c.Chat)
}

// Chat forwards a chat message to the upstream assistant, drains the
// NDJSON response stream and returns the renderer descriptors for the
// completed turn. Stream faults surface as a "message failed" toast plus
// an error notification before the HTTP error is returned.
func (c *Controller) Chat(ctx echo.Context) error {
	if c.chat == nil {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "Upstream assistant not configured",
		})
	}

	var req streaming.ChatRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	mode := packet.ParseRenderMode(ctx.QueryParam("mode"))

	stream, err := c.chat.OpenChat(ctx.Request().Context(), &req)
	if err != nil {
		if errors.IsCategory(err, errors.CategoryValidation) {
			return ctx.JSON(http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		}
		c.reportStreamFault(err)
		return c.HandleError(ctx, err, "Failed to reach upstream assistant", http.StatusBadGateway)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			c.apiLogger.Warn("failed to close upstream stream", "error", err)
		}
	}()

	var records []json.RawMessage
	if err := stream.ForEach(func(rec json.RawMessage) error {
		records = append(records, rec)
		return nil
	}); err != nil {
		c.reportStreamFault(err)
		return c.HandleError(ctx, err, "Upstream stream failed", http.StatusBadGateway)
	}

	packets := packet.ParseAll(records)
	descriptors := packet.Timeline(packets, mode)

	if c.metrics != nil && c.metrics.Streaming != nil {
		for i := range packets {
			c.metrics.Streaming.RecordPacket(string(packets[i].Kind))
		}
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"descriptors": descriptors,
		"packets":     len(packets),
		"mode":        mode.String(),
	})
}

// reportStreamFault raises the user-visible fault signals through the
// notification service when one is available.
func (c *Controller) reportStreamFault(err error) {
	if service := c.service(); service != nil {
		service.ReportStreamFault(err)
	}
}
