package streaming

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarvala/sidekick-go/internal/errors"
	"github.com/mkarvala/sidekick-go/internal/httpclient"
)

// newStreamServer returns a test server that writes each line followed
// by a flush, simulating an upstream that dribbles records.
func newStreamServer(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

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

func TestOpenChat_StreamsRecords(t *testing.T) {
	t.Parallel()

	server := newStreamServer(t, []string{
		`{"type":"text","content":"hello"}`,
		`{"type":"done"}`,
	})

	client := NewClient(server.URL)
	defer client.Close()

	stream, err := client.OpenChat(context.Background(), &ChatRequest{Message: "hi"})
	require.NoError(t, err)
	defer stream.Close()

	var records []string
	err = stream.ForEach(func(rec json.RawMessage) error {
		records = append(records, string(rec))
		return nil
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.JSONEq(t, `{"type":"text","content":"hello"}`, records[0])
}

func TestOpenChat_ValidatesRequest(t *testing.T) {
	t.Parallel()

	client := NewClient("http://localhost:0")
	defer client.Close()

	_, err := client.OpenChat(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	_, err = client.OpenChat(context.Background(), &ChatRequest{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestOpen_UpstreamErrorStatus(t *testing.T) {
	t.Parallel()

	cfg := httpclient.StreamingConfig()
	hc := httpclient.New(&cfg)
	httpmock.ActivateNonDefault(hc.HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder(http.MethodPost, "http://upstream.test/v1/chat",
		httpmock.NewStringResponder(http.StatusBadGateway, `{"error":"overloaded"}`))

	client := NewClient("http://upstream.test", WithHTTPClient(hc))
	defer client.Close()

	_, err := client.OpenChat(context.Background(), &ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryHTTP))
	assert.Contains(t, err.Error(), "502")

	var enhanced *errors.EnhancedError
	require.ErrorAs(t, err, &enhanced)
	errCtx := enhanced.GetContext()
	assert.Equal(t, http.StatusBadGateway, errCtx["status_code"])
	assert.Contains(t, errCtx["body_snippet"], "overloaded")
}

func TestOpen_NetworkFault(t *testing.T) {
	t.Parallel()

	cfg := httpclient.StreamingConfig()
	hc := httpclient.New(&cfg)
	httpmock.ActivateNonDefault(hc.HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder(http.MethodPost, "http://upstream.test/v1/chat",
		httpmock.NewErrorResponder(fmt.Errorf("connection refused")))

	client := NewClient("http://upstream.test", WithHTTPClient(hc))
	defer client.Close()

	_, err := client.OpenChat(context.Background(), &ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
}

func TestStream_Cancellation(t *testing.T) {
	t.Parallel()

	// Server sends one record, then blocks until the client goes away.
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprintln(w, `{"n":1}`)
		flusher.Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := NewClient(server.URL)
	defer client.Close()

	stream, err := client.OpenChat(ctx, &ChatRequest{Message: "hi"})
	require.NoError(t, err)
	defer stream.Close()

	rec, err := stream.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(rec))

	cancel()

	done := make(chan error, 1)
	go func() {
		_, err := stream.Next()
		done <- err
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after cancellation")
	}
}
