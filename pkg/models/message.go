// Package models defines the core data types shared across Wolo: sessions,
// messages and their content parts, todos, compaction records, and token
// usage counters. All types serialize to JSON for the on-disk session store;
// unknown metadata keys are carried in open maps so they survive round-trips.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	// RoleUser is a message authored by the user.
	RoleUser Role = "user"

	// RoleAssistant is a message authored by the model.
	RoleAssistant Role = "assistant"

	// RoleSystem is a system prompt message.
	RoleSystem Role = "system"
)

// FinishReason records why the model stopped producing a message.
type FinishReason string

const (
	// FinishStop means the model completed its turn normally.
	FinishStop FinishReason = "stop"

	// FinishLength means the model hit its output token limit.
	FinishLength FinishReason = "length"

	// FinishToolCalls means the model stopped to request tool executions.
	FinishToolCalls FinishReason = "tool_calls"

	// FinishError means the stream ended abnormally.
	FinishError FinishReason = "error"

	// FinishNone is the zero value for an unfinished message.
	FinishNone FinishReason = ""
)

// PartType discriminates the content part union.
type PartType string

const (
	// PartTypeText marks a plain text part.
	PartTypeText PartType = "text"

	// PartTypeTool marks a tool call part.
	PartTypeTool PartType = "tool"
)

// ToolStatus tracks the lifecycle of a tool call part.
type ToolStatus string

const (
	// ToolPending means the call has been parsed but not dispatched.
	ToolPending ToolStatus = "pending"

	// ToolRunning means the executor is working on the call.
	ToolRunning ToolStatus = "running"

	// ToolCompleted means the call finished successfully.
	ToolCompleted ToolStatus = "completed"

	// ToolFailed means the call finished with an error.
	ToolFailed ToolStatus = "failed"
)

// ToolPart is the tool-call variant of a content part. A part reaches
// completed or failed exactly once; after that only compaction may touch
// its metadata (to set the pruned flag).
type ToolPart struct {
	// Name is the registered tool name (namespaced for external tools,
	// e.g. "mcp:<server>:<tool>").
	Name string `json:"name"`

	// Input holds the parsed tool arguments.
	Input map[string]any `json:"input,omitempty"`

	// Output is the tool's textual result (or error message on failure).
	Output string `json:"output,omitempty"`

	// Status is the current lifecycle state.
	Status ToolStatus `json:"status"`

	// StartTime and EndTime bracket the execution.
	StartTime time.Time `json:"start_time,omitempty"`
	EndTime   time.Time `json:"end_time,omitempty"`

	// Metadata carries pruning flags, error codes, and tool-specific
	// outputs. Unknown keys are preserved on load/save.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Part is a tagged-union content part: either text or a tool call.
type Part struct {
	// ID is the part's unique identifier. For tool parts it doubles as the
	// wire-level tool_call_id.
	ID string `json:"id"`

	// Type discriminates the union.
	Type PartType `json:"type"`

	// Text is set when Type is PartTypeText.
	Text string `json:"text,omitempty"`

	// Tool is set when Type is PartTypeTool.
	Tool *ToolPart `json:"tool,omitempty"`
}

// NewTextPart creates a text part with a fresh id.
func NewTextPart(text string) Part {
	return Part{
		ID:   uuid.NewString(),
		Type: PartTypeText,
		Text: text,
	}
}

// NewToolPart creates a pending tool part with a fresh id.
func NewToolPart(name string, input map[string]any) Part {
	return Part{
		ID:   uuid.NewString(),
		Type: PartTypeTool,
		Tool: &ToolPart{
			Name:   name,
			Input:  input,
			Status: ToolPending,
		},
	}
}

// Message is one entry of a session's conversation. Parts keep creation
// order; that order is stable across save/load.
type Message struct {
	// ID is the message uuid; it names the per-message file on disk.
	ID string `json:"id"`

	// Role identifies the author.
	Role Role `json:"role"`

	// CreatedAt is the creation timestamp.
	CreatedAt time.Time `json:"created_at"`

	// Finished is true once the message will not grow further.
	Finished bool `json:"finished"`

	// FinishReason records why the model stopped (assistant messages).
	FinishReason FinishReason `json:"finish_reason,omitempty"`

	// ReasoningContent is the model's opaque reasoning trace, when the
	// endpoint produces one.
	ReasoningContent string `json:"reasoning_content,omitempty"`

	// Metadata is an open map; unknown keys are preserved.
	Metadata map[string]any `json:"metadata,omitempty"`

	// Parts is the ordered content of the message.
	Parts []Part `json:"parts"`
}

// NewMessage creates an empty message with a fresh id.
func NewMessage(role Role) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      role,
		CreatedAt: time.Now(),
	}
}

// NewUserMessage creates a finished user message with a single text part.
func NewUserMessage(text string) *Message {
	msg := NewMessage(RoleUser)
	msg.Parts = append(msg.Parts, NewTextPart(text))
	msg.Finished = true
	return msg
}

// Text concatenates all text parts in order.
func (m *Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if p.Type == PartTypeText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// ToolParts returns pointers to the tool parts in source order.
func (m *Message) ToolParts() []*Part {
	var parts []*Part
	for i := range m.Parts {
		if m.Parts[i].Type == PartTypeTool && m.Parts[i].Tool != nil {
			parts = append(parts, &m.Parts[i])
		}
	}
	return parts
}

// AppendText grows the last text part, or appends a new one when the
// message ends with a tool part. Streaming deltas use this to keep the
// part list minimal while preserving interleaving order.
func (m *Message) AppendText(delta string) {
	if delta == "" {
		return
	}
	if n := len(m.Parts); n > 0 && m.Parts[n-1].Type == PartTypeText {
		m.Parts[n-1].Text += delta
		return
	}
	m.Parts = append(m.Parts, NewTextPart(delta))
}

// Sendable reports whether the message satisfies the assistant
// well-formedness invariant: non-empty text or at least one tool part.
func (m *Message) Sendable() bool {
	if strings.TrimSpace(m.Text()) != "" {
		return true
	}
	return len(m.ToolParts()) > 0
}

// SetMeta sets a metadata key, allocating the map on first use.
func (m *Message) SetMeta(key string, value any) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	m.Metadata[key] = value
}

// IsSummary reports whether the message is a synthetic compaction summary.
func (m *Message) IsSummary() bool {
	comp, ok := m.Metadata["compaction"].(map[string]any)
	if !ok {
		return false
	}
	flag, _ := comp["is_summary"].(bool)
	return flag
}
