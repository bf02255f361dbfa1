package streaming

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mkarvala/sidekick-go/internal/errors"
	"github.com/mkarvala/sidekick-go/internal/httpclient"
	"github.com/mkarvala/sidekick-go/internal/logging"
	"github.com/mkarvala/sidekick-go/internal/observability/metrics"
)

// Stream outcome labels reported to metrics.
const (
	outcomeCompleted = "completed"
	outcomeCanceled  = "canceled"
	outcomeFault     = "fault"
)

// ChatRequest is the payload sent to the upstream assistant endpoint.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Client opens NDJSON response streams against an upstream assistant
// service. It is safe for concurrent use.
type Client struct {
	http    *httpclient.Client
	baseURL string
	logger  *slog.Logger
	metrics *metrics.StreamingMetrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientMetrics sets the metrics collector used for stream and
// decode observability.
func WithClientMetrics(m *metrics.StreamingMetrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithHTTPClient overrides the underlying HTTP client. Useful for tests.
func WithHTTPClient(hc *httpclient.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient creates a stream client for the given upstream base URL.
// The default HTTP client has per-request timeouts disabled because
// response streams stay open for the lifetime of an assistant turn.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	cfg := httpclient.StreamingConfig()
	c := &Client{
		http:    httpclient.New(&cfg),
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logging.ForService("streaming"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases the underlying HTTP client's idle connections.
func (c *Client) Close() {
	c.http.Close()
}

// OpenChat sends a chat request and returns the response stream.
// The caller must Close the stream when done. Canceling ctx ends the
// stream without error.
func (c *Client) OpenChat(ctx context.Context, req *ChatRequest) (*Stream, error) {
	if req == nil {
		return nil, errors.Newf("chat request is nil").
			Component("streaming").
			Category(errors.CategoryValidation).
			Build()
	}
	if req.Message == "" {
		return nil, errors.Newf("chat request message is empty").
			Component("streaming").
			Category(errors.CategoryValidation).
			Build()
	}
	return c.Open(ctx, "/v1/chat", req)
}

// Open POSTs payload to path on the upstream service and wraps the
// response body in a decoding Stream.
func (c *Client) Open(ctx context.Context, path string, payload any) (*Stream, error) {
	url := c.baseURL + path

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.New(err).
			Component("streaming").
			Category(errors.CategoryValidation).
			Context("path", path).
			Build()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return nil, errors.New(err).
			Component("streaming").
			Category(errors.CategoryNetwork).
			Context("url", url).
			Build()
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")

	start := time.Now()
	resp, err := c.http.Do(ctx, httpReq)
	if err != nil {
		return nil, errors.New(err).
			Component("streaming").
			Category(errors.CategoryNetwork).
			NetworkContext(url, 0).
			Timing("stream-open", time.Since(start)).
			Build()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Read a bounded slice of the body for the error context.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, errors.New(fmt.Errorf("upstream returned status %d", resp.StatusCode)).
			Component("streaming").
			Category(errors.CategoryHTTP).
			NetworkContext(url, 0).
			Context("status_code", resp.StatusCode).
			Context("body_snippet", string(snippet)).
			Build()
	}

	c.logger.Debug("stream opened", "url", url, "status", resp.StatusCode)

	return &Stream{
		body:    resp.Body,
		dec:     NewDecoder(ctx, resp.Body, WithLogger(c.logger), WithMetrics(c.metrics)),
		ctx:     ctx,
		started: start,
		logger:  c.logger,
		metrics: c.metrics,
	}, nil
}

// Stream is one open NDJSON response stream. It is not safe for
// concurrent use.
type Stream struct {
	body     io.ReadCloser
	dec      *Decoder
	ctx      context.Context
	started  time.Time
	logger   *slog.Logger
	metrics  *metrics.StreamingMetrics
	finished bool
}

// Next returns the next record from the stream. It returns io.EOF on
// clean completion and on cancellation; any other error is a stream
// fault.
func (s *Stream) Next() (json.RawMessage, error) {
	rec, err := s.dec.Next()
	if err != nil {
		if err == io.EOF {
			if s.ctx.Err() != nil {
				s.finish(outcomeCanceled)
			} else {
				s.finish(outcomeCompleted)
			}
		} else {
			s.finish(outcomeFault)
		}
	}
	return rec, err
}

// ForEach pulls records until the stream completes, invoking fn for
// each. Semantics match Decoder.ForEach.
func (s *Stream) ForEach(fn func(json.RawMessage) error) error {
	for {
		rec, err := s.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// Close releases the underlying response body. It is safe to call more
// than once.
func (s *Stream) Close() error {
	return s.body.Close()
}

// finish records stream completion once.
func (s *Stream) finish(outcome string) {
	if s.finished {
		return
	}
	s.finished = true
	duration := time.Since(s.started)
	s.logger.Debug("stream finished", "outcome", outcome, "duration_ms", duration.Milliseconds())
	if s.metrics != nil {
		s.metrics.RecordStream(outcome, duration)
	}
}
