package packet

import "fmt"

// RenderMode selects how much chrome the timeline shell renders around a
// step.
type RenderMode int

const (
	// ModeFull renders the step with full chrome: status label, icon and
	// collapsible content.
	ModeFull RenderMode = iota
	// ModeHighlighted renders the step emphasized but with content
	// pinned open.
	ModeHighlighted
	// ModeInline renders the step as a compact inline fragment.
	ModeInline
)

// String returns the wire label for the render mode.
func (m RenderMode) String() string {
	switch m {
	case ModeHighlighted:
		return "highlighted"
	case ModeInline:
		return "inline"
	default:
		return "full"
	}
}

// ParseRenderMode maps a wire label to a RenderMode, defaulting to full.
func ParseRenderMode(s string) RenderMode {
	switch s {
	case "highlighted":
		return ModeHighlighted
	case "inline":
		return ModeInline
	default:
		return ModeFull
	}
}

// Icon identifies the glyph the renderer shows for a step.
type Icon string

const (
	IconSpinner  Icon = "spinner"
	IconText     Icon = "text"
	IconThinking Icon = "thinking"
	IconSearch   Icon = "search"
	IconMemory   Icon = "memory"
	IconTool     Icon = "tool"
	IconError    Icon = "error"
	IconCheck    Icon = "check"
)

// Layout hints at the step's placement in the timeline shell.
type Layout string

const (
	LayoutBlock  Layout = "block"
	LayoutInline Layout = "inline"
)

// Descriptor is the renderer-facing description of one timeline step.
// Content is an opaque renderable payload whose concrete type depends on
// the classified kind; an empty Status means no label is shown.
type Descriptor struct {
	Icon        Icon   `json:"icon"`
	Status      string `json:"status,omitempty"`
	Content     any    `json:"content,omitempty"`
	Collapsible bool   `json:"collapsible"`
	Layout      Layout `json:"layout"`
}

// Content payload types carried by Descriptor.Content.
type (
	// TextContent carries accumulated text or thinking deltas.
	TextContent struct {
		Text string `json:"text"`
	}

	// SearchContent carries the progressively revealed query list.
	SearchContent struct {
		Queries []string `json:"queries"`
	}

	// MemoryContent carries the aggregated memory operation deltas.
	MemoryContent struct {
		Ops     []MemoryOp `json:"ops"`
		Added   int        `json:"added"`
		Updated int        `json:"updated"`
		Deleted int        `json:"deleted"`
	}

	// ToolContent carries a tool invocation and any results received.
	ToolContent struct {
		Name    string   `json:"name"`
		Results []string `json:"results,omitempty"`
	}

	// ErrorContent carries a degraded step's message.
	ErrorContent struct {
		Message string `json:"message"`
	}
)

// Classify selects the render state for one logical step.
//
// Classification is decided solely by the first packet's kind; later
// packets in the step refine the content (accumulating text, queries or
// memory deltas) but never switch the branch. An empty step maps to a
// pending state, an unrecognized first packet to a generic working
// state. stopped indicates a terminal stop packet has been observed for
// the turn and flips in-progress labels to their completed form.
func Classify(step []Packet, stopped bool, mode RenderMode) Descriptor {
	if len(step) == 0 {
		return finish(Descriptor{
			Icon:   IconSpinner,
			Status: "Pending",
		}, mode)
	}

	switch step[0].Kind {
	case KindText:
		return finish(classifyText(step), mode)
	case KindThinking:
		return finish(classifyThinking(step, stopped), mode)
	case KindSearch:
		return finish(classifySearch(step, stopped), mode)
	case KindMemory:
		return finish(classifyMemory(step, stopped), mode)
	case KindToolStart:
		return finish(classifyTool(step, stopped), mode)
	case KindError:
		return finish(classifyError(step[0]), mode)
	case KindStop:
		return finish(Descriptor{Icon: IconCheck}, mode)
	case KindToolResult, KindUnknown:
		// A result without its start, or a type outside the closed set:
		// both degrade to the generic working state.
		fallthrough
	default:
		return finish(Descriptor{
			Icon:   IconSpinner,
			Status: "Working",
		}, mode)
	}
}

func classifyText(step []Packet) Descriptor {
	var text string
	for _, p := range step {
		if p.Kind == KindText {
			text += p.Text
		}
	}
	return Descriptor{
		Icon:    IconText,
		Content: TextContent{Text: text},
	}
}

func classifyThinking(step []Packet, stopped bool) Descriptor {
	var text string
	for _, p := range step {
		if p.Kind == KindThinking {
			text += p.Text
		}
	}
	status := "Thinking"
	if stopped {
		status = "Thought for a moment"
	}
	return Descriptor{
		Icon:        IconThinking,
		Status:      status,
		Content:     TextContent{Text: text},
		Collapsible: true,
	}
}

func classifySearch(step []Packet, stopped bool) Descriptor {
	seen := make(map[string]struct{})
	var queries []string
	for _, p := range step {
		if p.Kind != KindSearch {
			continue
		}
		for _, q := range p.Queries {
			if _, dup := seen[q]; dup || q == "" {
				continue
			}
			seen[q] = struct{}{}
			queries = append(queries, q)
		}
	}

	status := "Searching the web"
	if stopped {
		switch n := len(queries); n {
		case 0:
			status = "Searched the web"
		case 1:
			status = "Searched the web for 1 query"
		default:
			status = fmt.Sprintf("Searched the web for %d queries", n)
		}
	}
	return Descriptor{
		Icon:        IconSearch,
		Status:      status,
		Content:     SearchContent{Queries: queries},
		Collapsible: true,
	}
}

func classifyMemory(step []Packet, stopped bool) Descriptor {
	content := MemoryContent{}
	for _, p := range step {
		if p.Kind != KindMemory || p.Memory == nil {
			continue
		}
		content.Ops = append(content.Ops, *p.Memory)
		switch p.Memory.Op {
		case "add":
			content.Added++
		case "update":
			content.Updated++
		case "delete":
			content.Deleted++
		}
	}

	status := "Updating memory"
	if stopped {
		status = "Updated memory"
	}
	return Descriptor{
		Icon:        IconMemory,
		Status:      status,
		Content:     content,
		Collapsible: true,
	}
}

func classifyTool(step []Packet, stopped bool) Descriptor {
	content := ToolContent{Name: step[0].Tool}
	for _, p := range step[1:] {
		if p.Kind == KindToolResult && p.Text != "" {
			content.Results = append(content.Results, p.Text)
		}
	}

	var status string
	switch {
	case content.Name == "" && stopped:
		status = "Ran a tool"
	case content.Name == "":
		status = "Running a tool"
	case stopped:
		status = "Ran " + content.Name
	default:
		status = "Running " + content.Name
	}
	return Descriptor{
		Icon:        IconTool,
		Status:      status,
		Content:     content,
		Collapsible: true,
	}
}

func classifyError(p Packet) Descriptor {
	message := p.Message
	if message == "" {
		message = "Something went wrong"
	}
	return Descriptor{
		Icon:    IconError,
		Status:  message,
		Content: ErrorContent{Message: message},
	}
}

// finish applies the render mode's layout constraints to a descriptor.
// Inline steps are compact and never collapsible; highlighted steps keep
// their content pinned open.
func finish(d Descriptor, mode RenderMode) Descriptor {
	switch mode {
	case ModeInline:
		d.Layout = LayoutInline
		d.Collapsible = false
		d.Content = nil
	case ModeHighlighted:
		d.Layout = LayoutBlock
		d.Collapsible = false
	default:
		d.Layout = LayoutBlock
	}
	return d
}

// Group splits an ordered packet sequence into logical steps and reports
// whether a terminal stop packet was seen.
//
// A step is a maximal run of packets sharing a classification branch:
// consecutive packets of one kind accumulate, tool results attach to the
// preceding tool invocation, and stop packets terminate the turn without
// forming a step of their own.
func Group(packets []Packet) (steps [][]Packet, stopped bool) {
	var current []Packet
	flush := func() {
		if len(current) > 0 {
			steps = append(steps, current)
			current = nil
		}
	}

	for _, p := range packets {
		switch {
		case p.Kind == KindStop:
			stopped = true
			flush()
		case p.Kind == KindToolResult && len(current) > 0 && current[0].Kind == KindToolStart:
			current = append(current, p)
		case len(current) > 0 && p.Kind == current[0].Kind && aggregates(p.Kind):
			current = append(current, p)
		default:
			flush()
			current = []Packet{p}
		}
	}
	flush()
	return steps, stopped
}

// aggregates reports whether consecutive packets of this kind fold into
// one step.
func aggregates(k Kind) bool {
	switch k {
	case KindText, KindThinking, KindSearch, KindMemory:
		return true
	default:
		return false
	}
}

// Timeline classifies a whole packet sequence into descriptors, one per
// logical step.
func Timeline(packets []Packet, mode RenderMode) []Descriptor {
	steps, stopped := Group(packets)
	descriptors := make([]Descriptor, 0, len(steps))
	for _, step := range steps {
		descriptors = append(descriptors, Classify(step, stopped, mode))
	}
	return descriptors
}
