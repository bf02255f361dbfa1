package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkarvala/sidekick-go/internal/errors"
	"github.com/mkarvala/sidekick-go/internal/notification"
)

// CreateToastRequest is the body for POST /api/v2/toasts.
type CreateToastRequest struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Component string `json:"component,omitempty"`
	// DurationMs controls auto-dismiss: 0 uses the store default, negative
	// values make the toast persistent.
	DurationMs int64 `json:"durationMs,omitempty"`
}

func (c *Controller) initToastRoutes() {
	c.Group.GET("/toasts", c.GetToasts)
	c.Group.POST("/toasts", c.CreateToast)
	c.Group.DELETE("/toasts/:id", c.DismissToast)
	c.Group.POST("/toasts/clear", c.ClearToasts)
}

// GetToasts returns the current toast list with the visible window applied.
func (c *Controller) GetToasts(ctx echo.Context) error {
	service := c.service()
	if service == nil {
		return serviceUnavailable(ctx)
	}

	store := service.Toasts()
	return ctx.JSON(http.StatusOK, map[string]any{
		"toasts":  store.Snapshot(),
		"visible": store.Visible(),
		"count":   store.Len(),
	})
}

// CreateToast creates a toast and pushes it to connected SSE clients.
func (c *Controller) CreateToast(ctx echo.Context) error {
	service := c.service()
	if service == nil {
		return serviceUnavailable(ctx)
	}

	var req CreateToastRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}
	if req.Message == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "Toast message is required",
		})
	}

	toastType := notification.ToastType(req.Type)
	if req.Type == "" {
		toastType = notification.ToastTypeDefault
	}

	toast := notification.NewToast(req.Message, toastType).
		WithComponent(req.Component).
		WithDuration(time.Duration(req.DurationMs) * time.Millisecond)
	if req.DurationMs < 0 {
		toast = toast.Persistent()
	}

	if err := service.SendToast(toast); err != nil {
		if errors.IsCategory(err, errors.CategoryValidation) {
			return ctx.JSON(http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		}
		return c.HandleError(ctx, err, "Failed to send toast", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"id":      toast.ID,
		"message": "Toast created",
	})
}

// DismissToast removes a toast by ID. Dismissing an unknown ID is a no-op.
func (c *Controller) DismissToast(ctx echo.Context) error {
	service := c.service()
	if service == nil {
		return serviceUnavailable(ctx)
	}

	id := ctx.Param("id")
	if id == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "Toast ID is required",
		})
	}

	service.Toasts().Dismiss(id)
	return ctx.JSON(http.StatusOK, map[string]string{
		"message": "Toast dismissed",
	})
}

// ClearToasts removes all toasts at once.
func (c *Controller) ClearToasts(ctx echo.Context) error {
	service := c.service()
	if service == nil {
		return serviceUnavailable(ctx)
	}

	service.Toasts().ClearAll()
	return ctx.JSON(http.StatusOK, map[string]string{
		"message": "All toasts cleared",
	})
}
