package streaming

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader serves its payload in fixed-size chunks so tests can
// exercise records split across reads.
type chunkReader struct {
	data  []byte
	chunk int
	pos   int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := r.chunk
	if n > len(p) {
		n = len(p)
	}
	if rem := len(r.data) - r.pos; n > rem {
		n = rem
	}
	copy(p, r.data[r.pos:r.pos+n])
	r.pos += n
	return n, nil
}

// faultReader yields its payload and then fails with readErr.
type faultReader struct {
	data    []byte
	readErr error
	served  bool
}

func (r *faultReader) Read(p []byte) (int, error) {
	if !r.served {
		r.served = true
		n := copy(p, r.data)
		return n, nil
	}
	return 0, r.readErr
}

func collectRecords(t *testing.T, d *Decoder) []string {
	t.Helper()
	var out []string
	for {
		rec, err := d.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, string(rec))
	}
}

func TestDecoder_BasicLines(t *testing.T) {
	t.Parallel()

	input := `{"type":"text","content":"hello"}` + "\n" +
		`{"type":"done"}` + "\n"
	d := NewDecoder(context.Background(), strings.NewReader(input))

	records := collectRecords(t, d)
	require.Len(t, records, 2)
	assert.JSONEq(t, `{"type":"text","content":"hello"}`, records[0])
	assert.JSONEq(t, `{"type":"done"}`, records[1])
}

func TestDecoder_ChunkSizeInvariance(t *testing.T) {
	t.Parallel()

	input := `{"type":"search","queries":["alpha","beta"]}` + "\n" +
		`{"type":"text","content":"partial answer spanning reads"}` + "\n" +
		`{"type":"memory","op":"add","id":"m-1"}` + "\n"

	want := collectRecords(t, NewDecoder(context.Background(), strings.NewReader(input)))
	require.Len(t, want, 3)

	for _, chunk := range []int{1, 2, 3, 7, 16, 1024} {
		d := NewDecoder(context.Background(), &chunkReader{data: []byte(input), chunk: chunk})
		got := collectRecords(t, d)
		assert.Equal(t, want, got, "chunk size %d must not change decoded records", chunk)
	}
}

func TestDecoder_PartialLineBufferedUntilNewline(t *testing.T) {
	t.Parallel()

	// The whole first record arrives before its newline does.
	input := `{"type":"text","content":"buffered"}`
	d := NewDecoder(context.Background(), &chunkReader{
		data:  []byte(input + "\n" + `{"type":"done"}` + "\n"),
		chunk: len(input), // first read stops exactly before the '\n'
	})

	records := collectRecords(t, d)
	require.Len(t, records, 2)
	assert.JSONEq(t, input, records[0])
}

func TestDecoder_FinalLineWithoutNewline(t *testing.T) {
	t.Parallel()

	input := `{"type":"text","content":"first"}` + "\n" + `{"type":"done"}`
	d := NewDecoder(context.Background(), strings.NewReader(input))

	records := collectRecords(t, d)
	require.Len(t, records, 2)
	assert.JSONEq(t, `{"type":"done"}`, records[1])
}

func TestDecoder_MalformedLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "garbage line skipped",
			input: "not json at all\n" + `{"ok":true}` + "\n",
			want:  []string{`{"ok":true}`},
		},
		{
			name:  "record recovered from noisy line",
			input: `garbage{"a":1}trailing` + "\n",
			want:  []string{`{"a":1}`},
		},
		{
			name:  "two records glued on one line",
			input: `{"a":1}{"b":2}` + "\n",
			want:  []string{`{"a":1}`, `{"b":2}`},
		},
		{
			name:  "empty lines ignored",
			input: "\n\n" + `{"a":1}` + "\n\n",
			want:  []string{`{"a":1}`},
		},
		{
			name:  "unclosed brace dropped",
			input: `{"a":1` + "\n" + `{"b":2}` + "\n",
			want:  []string{`{"b":2}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := NewDecoder(context.Background(), strings.NewReader(tt.input))
			got := collectRecords(t, d)
			require.Len(t, got, len(tt.want))
			for i, want := range tt.want {
				assert.JSONEq(t, want, got[i])
			}
		})
	}
}

func TestDecoder_CancellationStopsBufferedRecords(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	input := `{"n":1}` + "\n" + `{"n":2}` + "\n" + `{"n":3}` + "\n"
	d := NewDecoder(ctx, strings.NewReader(input))

	rec, err := d.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(rec))

	// Remaining records are already buffered, but cancellation must still
	// end the sequence before they are returned.
	cancel()
	_, err = d.Next()
	assert.ErrorIs(t, err, io.EOF)
	_, err = d.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoder_ReadFaultPropagated(t *testing.T) {
	t.Parallel()

	readErr := errors.New("connection reset")
	d := NewDecoder(context.Background(), &faultReader{
		data:    []byte(`{"n":1}` + "\n"),
		readErr: readErr,
	})

	rec, err := d.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(rec))

	_, err = d.Next()
	assert.ErrorIs(t, err, readErr)
}

func TestDecoder_ForEach(t *testing.T) {
	t.Parallel()

	input := `{"n":1}` + "\n" + `{"n":2}` + "\n"
	var seen []int
	err := NewDecoder(context.Background(), strings.NewReader(input)).
		ForEach(func(rec json.RawMessage) error {
			var v struct{ N int }
			if err := json.Unmarshal(rec, &v); err != nil {
				return err
			}
			seen = append(seen, v.N)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestDecoder_ForEachStopError(t *testing.T) {
	t.Parallel()

	stop := errors.New("stop")
	err := NewDecoder(context.Background(), strings.NewReader(`{"n":1}`+"\n")).
		ForEach(func(json.RawMessage) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestScanBraceChunks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "single chunk", input: `x{"a":1}y`, want: []string{`{"a":1}`}},
		{name: "multiple chunks", input: `{"a":1}{"b":2}`, want: []string{`{"a":1}`, `{"b":2}`}},
		{name: "inner brace restarts match", input: `{broken{"a":1}`, want: []string{`{"a":1}`}},
		{name: "no braces", input: `plain text`, want: nil},
		{name: "unclosed", input: `{"a":1`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got []string
			for _, c := range scanBraceChunks([]byte(tt.input)) {
				got = append(got, string(c))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
