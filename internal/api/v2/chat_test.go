package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarvala/sidekick-go/internal/conf"
	"github.com/mkarvala/sidekick-go/internal/notification"
)

// newChatTestController wires a controller against the given upstream URL.
func newChatTestController(t *testing.T, upstreamURL string) (*echo.Echo, *notification.Service) {
	t.Helper()

	config := notification.DefaultServiceConfig()
	config.ToastDedupWindow = time.Millisecond
	service := notification.NewService(config)
	t.Cleanup(service.Stop)

	settings := &conf.Settings{}
	settings.Upstream.URL = upstreamURL

	e := echo.New()
	controller := New(e, settings, service, nil)
	t.Cleanup(controller.Shutdown)

	return e, service
}

// newUpstreamServer streams the given NDJSON lines with a flush per line.
func newUpstreamServer(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat", r.URL.Path)

		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)
		for _, line := range lines {
			fmt.Fprintln(w, line)
			flusher.Flush()
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestChat_ReturnsTimelineForUpstreamStream(t *testing.T) {
	t.Parallel()

	upstream := newUpstreamServer(t, []string{
		`{"type":"thinking","text":"let me check"}`,
		`{"type":"text","text":"All done."}`,
		`{"type":"stop"}`,
	})
	e, _ := newChatTestController(t, upstream.URL)

	rec := doRequest(e, http.MethodPost, "/api/v2/chat", `{"message":"status?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Descriptors []map[string]any `json:"descriptors"`
		Packets     int              `json:"packets"`
		Mode        string           `json:"mode"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Packets)
	require.Len(t, body.Descriptors, 2)
	assert.Equal(t, "thinking", body.Descriptors[0]["icon"])
}

func TestChat_UpstreamErrorRaisesFaultSignals(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusBadGateway)
	}))
	t.Cleanup(upstream.Close)

	e, service := newChatTestController(t, upstream.URL)

	rec := doRequest(e, http.MethodPost, "/api/v2/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	// The fault must surface as an error toast and a notification.
	toasts := service.Toasts().Snapshot()
	require.Len(t, toasts, 1)
	assert.Equal(t, "Message failed to send", toasts[0].Message)
	assert.Equal(t, notification.ToastTypeError, toasts[0].Type)

	notifications, err := service.List(&notification.FilterOptions{
		Types: []notification.Type{notification.TypeError},
	})
	require.NoError(t, err)
	require.NotEmpty(t, notifications)
	assert.Equal(t, "Connection Error", notifications[0].Title)
}

func TestChat_ValidatesMessage(t *testing.T) {
	t.Parallel()

	upstream := newUpstreamServer(t, nil)
	e, service := newChatTestController(t, upstream.URL)

	rec := doRequest(e, http.MethodPost, "/api/v2/chat", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Validation failures are the caller's fault, not a stream fault.
	assert.Zero(t, service.Toasts().Len())
}

func TestChat_UpstreamNotConfigured(t *testing.T) {
	t.Parallel()

	e, _ := newChatTestController(t, "")

	rec := doRequest(e, http.MethodPost, "/api/v2/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
