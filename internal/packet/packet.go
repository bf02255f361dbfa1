// Package packet classifies decoded stream records into timeline render
// states.
//
// A packet is one decoded streaming unit of an assistant response: a text
// delta, a tool lifecycle event, a search update, a memory operation.
// Records are structurally typed by their "type" discriminant; this
// package maps that open wire vocabulary onto a closed set of kinds and
// turns ordered packet runs into renderer descriptors.
package packet

import (
	"encoding/json"
)

// Kind is the closed classification of a packet. Wire types outside this
// set map to KindUnknown, which renders as a generic working state.
type Kind string

const (
	KindText       Kind = "text"
	KindThinking   Kind = "thinking"
	KindSearch     Kind = "search"
	KindMemory     Kind = "memory"
	KindToolStart  Kind = "tool_start"
	KindToolResult Kind = "tool_result"
	KindError      Kind = "error"
	KindStop       Kind = "stop"
	KindUnknown    Kind = "unknown"
)

// MemoryOp is one memory mutation carried by a memory packet.
type MemoryOp struct {
	Op      string `json:"op"` // add, update, delete
	ID      string `json:"id,omitempty"`
	Content string `json:"content,omitempty"`
}

// Packet is one classified stream record. Fields beyond Kind are
// populated per kind; absent wire fields stay zero and render as
// defaults.
type Packet struct {
	Kind    Kind
	Text    string          // text and thinking deltas
	Tool    string          // tool name for tool packets
	Queries []string        // search query updates
	Memory  *MemoryOp       // memory operation delta
	Message string          // error message
	Raw     json.RawMessage // original record, retained for unknown kinds
}

// wirePacket mirrors the superset of fields any known record can carry.
type wirePacket struct {
	Type    string    `json:"type"`
	Content string    `json:"content"`
	Tool    string    `json:"tool"`
	Queries []string  `json:"queries"`
	Query   string    `json:"query"`
	Op      string    `json:"op"`
	ID      string    `json:"id"`
	Message string    `json:"message"`
	Memory  *MemoryOp `json:"memory"`
}

// knownKinds maps wire discriminants onto kinds. Several legacy aliases
// are accepted for the same kind.
var knownKinds = map[string]Kind{
	"text":          KindText,
	"message":       KindText,
	"thinking":      KindThinking,
	"reasoning":     KindThinking,
	"search":        KindSearch,
	"web_search":    KindSearch,
	"memory":        KindMemory,
	"memory_update": KindMemory,
	"tool_start":    KindToolStart,
	"tool_use":      KindToolStart,
	"tool_result":   KindToolResult,
	"error":         KindError,
	"stop":          KindStop,
	"done":          KindStop,
	"message_stop":  KindStop,
}

// Parse classifies one decoded record. It never fails: records without a
// recognized type become KindUnknown, and per-kind fields that are absent
// or of the wrong shape are left at their zero values.
func Parse(rec json.RawMessage) Packet {
	var w wirePacket
	if err := json.Unmarshal(rec, &w); err != nil {
		return Packet{Kind: KindUnknown, Raw: rec}
	}

	kind, ok := knownKinds[w.Type]
	if !ok {
		return Packet{Kind: KindUnknown, Raw: rec}
	}

	p := Packet{Kind: kind, Raw: rec}
	switch kind {
	case KindText, KindThinking:
		p.Text = w.Content
	case KindSearch:
		p.Queries = w.Queries
		if len(p.Queries) == 0 && w.Query != "" {
			p.Queries = []string{w.Query}
		}
	case KindMemory:
		if w.Memory != nil {
			p.Memory = w.Memory
		} else if w.Op != "" {
			p.Memory = &MemoryOp{Op: w.Op, ID: w.ID, Content: w.Content}
		}
	case KindToolStart, KindToolResult:
		p.Tool = w.Tool
		p.Text = w.Content
	case KindError:
		p.Message = w.Message
		if p.Message == "" {
			p.Message = w.Content
		}
	case KindStop, KindUnknown:
		// No payload.
	}
	return p
}

// ParseAll classifies a record sequence in order.
func ParseAll(recs []json.RawMessage) []Packet {
	packets := make([]Packet, 0, len(recs))
	for _, rec := range recs {
		packets = append(packets, Parse(rec))
	}
	return packets
}
