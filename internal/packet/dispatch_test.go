package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_EmptyStepIsPending(t *testing.T) {
	t.Parallel()

	d := Classify(nil, false, ModeFull)
	assert.Equal(t, IconSpinner, d.Icon)
	assert.Equal(t, "Pending", d.Status)
	assert.False(t, d.Collapsible)
}

func TestClassify_UnknownKindIsWorking(t *testing.T) {
	t.Parallel()

	d := Classify([]Packet{{Kind: KindUnknown}}, false, ModeFull)
	assert.Equal(t, IconSpinner, d.Icon)
	assert.Equal(t, "Working", d.Status)
}

func TestClassify_FirstPacketDecidesBranch(t *testing.T) {
	t.Parallel()

	// A search step stays a search step even when later packets carry a
	// different kind.
	step := []Packet{
		{Kind: KindSearch, Queries: []string{"quarterly report"}},
		{Kind: KindText, Text: "ignored by classification"},
		{Kind: KindSearch, Queries: []string{"sales figures"}},
	}
	d := Classify(step, false, ModeFull)
	assert.Equal(t, IconSearch, d.Icon)
	content, ok := d.Content.(SearchContent)
	require.True(t, ok)
	assert.Equal(t, []string{"quarterly report", "sales figures"}, content.Queries)
}

func TestClassify_SearchAggregation(t *testing.T) {
	t.Parallel()

	step := []Packet{
		{Kind: KindSearch, Queries: []string{"a", "b"}},
		{Kind: KindSearch, Queries: []string{"b", "c", ""}},
	}

	d := Classify(step, false, ModeFull)
	assert.Equal(t, "Searching the web", d.Status)
	content := d.Content.(SearchContent)
	assert.Equal(t, []string{"a", "b", "c"}, content.Queries, "duplicates and empties are dropped")

	d = Classify(step, true, ModeFull)
	assert.Equal(t, "Searched the web for 3 queries", d.Status)

	d = Classify([]Packet{{Kind: KindSearch, Queries: []string{"a"}}}, true, ModeFull)
	assert.Equal(t, "Searched the web for 1 query", d.Status)
}

func TestClassify_MemoryAggregation(t *testing.T) {
	t.Parallel()

	step := []Packet{
		{Kind: KindMemory, Memory: &MemoryOp{Op: "add", ID: "m-1"}},
		{Kind: KindMemory, Memory: &MemoryOp{Op: "add", ID: "m-2"}},
		{Kind: KindMemory, Memory: &MemoryOp{Op: "update", ID: "m-1"}},
		{Kind: KindMemory, Memory: &MemoryOp{Op: "delete", ID: "m-0"}},
		{Kind: KindMemory}, // missing delta degrades to a no-op
	}

	d := Classify(step, true, ModeFull)
	assert.Equal(t, IconMemory, d.Icon)
	assert.Equal(t, "Updated memory", d.Status)
	content := d.Content.(MemoryContent)
	assert.Len(t, content.Ops, 4)
	assert.Equal(t, 2, content.Added)
	assert.Equal(t, 1, content.Updated)
	assert.Equal(t, 1, content.Deleted)
}

func TestClassify_TextAccumulates(t *testing.T) {
	t.Parallel()

	step := []Packet{
		{Kind: KindText, Text: "Hello, "},
		{Kind: KindText, Text: "world"},
	}
	d := Classify(step, false, ModeFull)
	assert.Equal(t, IconText, d.Icon)
	assert.Empty(t, d.Status)
	assert.Equal(t, TextContent{Text: "Hello, world"}, d.Content)
}

func TestClassify_Tool(t *testing.T) {
	t.Parallel()

	step := []Packet{
		{Kind: KindToolStart, Tool: "calendar"},
		{Kind: KindToolResult, Text: "3 events today"},
	}

	d := Classify(step, false, ModeFull)
	assert.Equal(t, "Running calendar", d.Status)

	d = Classify(step, true, ModeFull)
	assert.Equal(t, "Ran calendar", d.Status)
	content := d.Content.(ToolContent)
	assert.Equal(t, []string{"3 events today"}, content.Results)

	// Missing tool name renders a generic label.
	d = Classify([]Packet{{Kind: KindToolStart}}, false, ModeFull)
	assert.Equal(t, "Running a tool", d.Status)
}

func TestClassify_Error(t *testing.T) {
	t.Parallel()

	d := Classify([]Packet{{Kind: KindError, Message: "rate limited"}}, false, ModeFull)
	assert.Equal(t, IconError, d.Icon)
	assert.Equal(t, "rate limited", d.Status)

	d = Classify([]Packet{{Kind: KindError}}, false, ModeFull)
	assert.Equal(t, "Something went wrong", d.Status)
}

func TestClassify_RenderModes(t *testing.T) {
	t.Parallel()

	step := []Packet{{Kind: KindThinking, Text: "hmm"}}

	full := Classify(step, false, ModeFull)
	assert.Equal(t, LayoutBlock, full.Layout)
	assert.True(t, full.Collapsible)

	highlighted := Classify(step, false, ModeHighlighted)
	assert.Equal(t, LayoutBlock, highlighted.Layout)
	assert.False(t, highlighted.Collapsible)
	assert.NotNil(t, highlighted.Content)

	inline := Classify(step, false, ModeInline)
	assert.Equal(t, LayoutInline, inline.Layout)
	assert.False(t, inline.Collapsible)
	assert.Nil(t, inline.Content, "inline steps drop their content payload")
}

func TestParseRenderMode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ModeHighlighted, ParseRenderMode("highlighted"))
	assert.Equal(t, ModeInline, ParseRenderMode("inline"))
	assert.Equal(t, ModeFull, ParseRenderMode("full"))
	assert.Equal(t, ModeFull, ParseRenderMode("bogus"))
}

func TestGroup(t *testing.T) {
	t.Parallel()

	packets := []Packet{
		{Kind: KindThinking, Text: "a"},
		{Kind: KindThinking, Text: "b"},
		{Kind: KindSearch, Queries: []string{"q1"}},
		{Kind: KindSearch, Queries: []string{"q2"}},
		{Kind: KindToolStart, Tool: "calendar"},
		{Kind: KindToolResult, Text: "ok"},
		{Kind: KindText, Text: "answer"},
		{Kind: KindStop},
	}

	steps, stopped := Group(packets)
	assert.True(t, stopped)
	require.Len(t, steps, 4)
	assert.Equal(t, KindThinking, steps[0][0].Kind)
	assert.Len(t, steps[0], 2)
	assert.Equal(t, KindSearch, steps[1][0].Kind)
	assert.Equal(t, KindToolStart, steps[2][0].Kind)
	assert.Len(t, steps[2], 2, "tool result attaches to its invocation")
	assert.Equal(t, KindText, steps[3][0].Kind)
}

func TestGroup_OrphanToolResultStartsOwnStep(t *testing.T) {
	t.Parallel()

	steps, stopped := Group([]Packet{
		{Kind: KindToolResult, Text: "orphan"},
		{Kind: KindText, Text: "x"},
	})
	assert.False(t, stopped)
	require.Len(t, steps, 2)
	assert.Equal(t, KindToolResult, steps[0][0].Kind)
}

func TestTimeline(t *testing.T) {
	t.Parallel()

	packets := []Packet{
		{Kind: KindSearch, Queries: []string{"q"}},
		{Kind: KindText, Text: "found it"},
		{Kind: KindStop},
	}

	descriptors := Timeline(packets, ModeFull)
	require.Len(t, descriptors, 2)
	assert.Equal(t, IconSearch, descriptors[0].Icon)
	assert.Equal(t, "Searched the web for 1 query", descriptors[0].Status)
	assert.Equal(t, IconText, descriptors[1].Icon)
}
