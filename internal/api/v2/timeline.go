package api

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mkarvala/sidekick-go/internal/packet"
	"github.com/mkarvala/sidekick-go/internal/streaming"
)

func (c *Controller) initTimelineRoutes() {
	c.Group.POST("/timeline/preview", c.PreviewTimeline)
}

// PreviewTimeline decodes an NDJSON body into assistant packets and returns
// the renderer descriptors the frontend would display for it. The optional
// "mode" query parameter selects full, highlighted or inline rendering.
func (c *Controller) PreviewTimeline(ctx echo.Context) error {
	mode := packet.ParseRenderMode(ctx.QueryParam("mode"))

	opts := []streaming.DecoderOption{streaming.WithLogger(c.apiLogger)}
	if c.metrics != nil && c.metrics.Streaming != nil {
		opts = append(opts, streaming.WithMetrics(c.metrics.Streaming))
	}

	dec := streaming.NewDecoder(ctx.Request().Context(), ctx.Request().Body, opts...)

	var records []json.RawMessage
	if err := dec.ForEach(func(rec json.RawMessage) error {
		records = append(records, rec)
		return nil
	}); err != nil {
		return c.HandleError(ctx, err, "Failed to decode stream body", http.StatusBadRequest)
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
		"records":     len(records),
		"packets":     len(packets),
		"mode":        mode.String(),
	})
}
