// Package streaming decodes newline-delimited JSON assistant response
// streams into discrete records.
//
// The wire convention is NDJSON over a chunked HTTP response: one JSON
// value per line, no length prefix, no framing byte beyond '\n'. The
// decoder buffers raw bytes, emits a record for every complete line that
// parses as JSON, and recovers best-effort from malformed lines. Decode
// problems never terminate the stream; only an underlying read fault does.
package streaming

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/mkarvala/sidekick-go/internal/observability/metrics"
)

const (
	// readChunkSize is the size of each read from the underlying stream.
	readChunkSize = 4096

	// maxBufferedLine caps the retained partial-line buffer so a stream
	// that never sends a newline cannot grow memory without bound.
	maxBufferedLine = 1 << 20 // 1 MiB
)

// Decoder converts a byte stream into a sequence of parsed JSON records.
//
// Records are yielded in the exact order lines were completed. A JSON
// value split across reads is buffered until its line terminator arrives.
// The final line of a stream is yielded even without a trailing newline.
//
// Decoder is not safe for concurrent use.
type Decoder struct {
	ctx     context.Context
	r       io.Reader
	buf     []byte            // retained partial line from the previous read
	pending []json.RawMessage // records decoded but not yet returned
	readBuf []byte
	eof     bool
	err     error // sticky stream fault
	done    bool  // cancellation observed or stream fully drained
	logger  *slog.Logger
	metrics *metrics.StreamingMetrics
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithLogger sets the logger used for decode diagnostics.
func WithLogger(logger *slog.Logger) DecoderOption {
	return func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector for decode observability.
func WithMetrics(m *metrics.StreamingMetrics) DecoderOption {
	return func(d *Decoder) {
		d.metrics = m
	}
}

// NewDecoder creates a decoder reading from r. The context is the
// cancellation signal: once it is done, no further records are produced
// and the sequence ends without error.
func NewDecoder(ctx context.Context, r io.Reader, opts ...DecoderOption) *Decoder {
	if ctx == nil {
		ctx = context.Background()
	}
	d := &Decoder{
		ctx:     ctx,
		r:       r,
		readBuf: make([]byte, readChunkSize),
		logger:  slog.Default().With("service", "streaming"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next returns the next decoded record.
//
// It returns io.EOF when the stream has completed or the cancellation
// signal has fired. Any other error is a stream fault: the underlying
// read failed and no further progress is possible. Records decoded
// before a fault are returned before the fault is surfaced.
func (d *Decoder) Next() (json.RawMessage, error) {
	for {
		// Cancellation preempts everything, including records already
		// buffered for decode.
		if err := d.ctx.Err(); err != nil {
			if !d.done {
				d.done = true
				d.cancelReader()
				d.pending = nil
				d.buf = nil
			}
			return nil, io.EOF
		}

		if len(d.pending) > 0 {
			rec := d.pending[0]
			d.pending = d.pending[1:]
			return rec, nil
		}

		if d.err != nil {
			return nil, d.err
		}
		if d.done {
			return nil, io.EOF
		}
		if d.eof {
			// Stream ended: the remaining buffer is the final candidate line.
			d.done = true
			if line := bytes.TrimSpace(d.buf); len(line) > 0 {
				d.parseLine(line)
			}
			d.buf = nil
			continue
		}

		if err := d.fill(); err != nil {
			// Keep already-decoded records ahead of the fault.
			d.err = err
		}
	}
}

// fill reads one chunk from the stream and decodes all completed lines.
func (d *Decoder) fill() error {
	n, err := d.r.Read(d.readBuf)
	if n > 0 {
		d.buf = append(d.buf, d.readBuf[:n]...)
		d.splitLines()
		if len(d.buf) > maxBufferedLine {
			d.dropLine(d.buf, "line exceeds buffer cap")
			d.buf = nil
		}
	}
	if err != nil {
		if err == io.EOF {
			d.eof = true
			return nil
		}
		if d.ctx.Err() != nil {
			// Read failure caused by our own cancellation is not a fault.
			return nil
		}
		return err
	}
	return nil
}

// splitLines decodes every complete line in the buffer, retaining the
// trailing fragment for the next read.
func (d *Decoder) splitLines() {
	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx < 0 {
			return
		}
		line := bytes.TrimSpace(d.buf[:idx])
		d.buf = d.buf[idx+1:]
		if len(line) > 0 {
			d.parseLine(line)
		}
	}
}

// parseLine parses one candidate line, falling back to brace-scan
// recovery for malformed input. Fragments that still fail are dropped
// with a diagnostic.
func (d *Decoder) parseLine(line []byte) {
	if json.Valid(line) {
		d.yield(line)
		return
	}

	recovered := 0
	for _, chunk := range scanBraceChunks(line) {
		if json.Valid(chunk) {
			d.yield(chunk)
			recovered++
		}
	}

	if recovered > 0 {
		d.logger.Debug("recovered records from malformed line",
			"recovered", recovered,
			"line_length", len(line))
		if d.metrics != nil {
			d.metrics.RecordLineRecovered(recovered)
		}
		return
	}

	d.dropLine(line, "line is not valid JSON")
}

// yield stores a decoded record. The line is copied because the buffer
// it points into is reused by subsequent reads.
func (d *Decoder) yield(line []byte) {
	rec := make(json.RawMessage, len(line))
	copy(rec, line)
	d.pending = append(d.pending, rec)
	if d.metrics != nil {
		d.metrics.RecordDecoded()
	}
}

// dropLine logs a dropped line without including its content.
func (d *Decoder) dropLine(line []byte, reason string) {
	d.logger.Warn("dropping undecodable line",
		"reason", reason,
		"line_length", len(line))
	if d.metrics != nil {
		d.metrics.RecordLineDropped()
	}
}

// cancelReader asks the underlying reader to stop. For HTTP response
// bodies this releases the connection.
func (d *Decoder) cancelReader() {
	if closer, ok := d.r.(io.Closer); ok {
		_ = closer.Close()
	}
}

// ForEach pulls records until the stream completes, invoking fn for each.
// It returns the stream fault if one occurred, or nil on clean completion
// and cancellation. If fn returns an error, iteration stops and that
// error is returned.
func (d *Decoder) ForEach(fn func(json.RawMessage) error) error {
	for {
		rec, err := d.Next()
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

// scanBraceChunks extracts non-nested {...} substrings from a malformed
// line, equivalent to matching /\{[^{}]*\}/ repeatedly.
//
// This recovery is heuristic: it has no awareness of nesting or braces
// inside string literals, so it can accept truncated fragments that
// happen to be valid JSON. Callers must treat recovered records as
// best-effort.
func scanBraceChunks(line []byte) [][]byte {
	var chunks [][]byte
	start := -1
	for i, b := range line {
		switch b {
		case '{':
			// An inner '{' restarts the candidate, keeping matches non-nested.
			start = i
		case '}':
			if start >= 0 {
				chunks = append(chunks, line[start:i+1])
				start = -1
			}
		}
	}
	return chunks
}
