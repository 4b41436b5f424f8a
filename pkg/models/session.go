package models

import "time"

// Session is the aggregate metadata persisted as session.json. Messages,
// todos, compaction records, and path confirmations live in sibling files
// so each can be written atomically on its own.
type Session struct {
	// ID is the session's unique identifier, usually a human-readable slug
	// such as "brave-fox".
	ID string `json:"id"`

	// Title is a short human description, derived from the first prompt.
	Title string `json:"title,omitempty"`

	// Tags are free-form labels for listing and cleanup policies.
	Tags []string `json:"tags,omitempty"`

	// ParentSessionID links a session spawned from another one.
	ParentSessionID string `json:"parent_session_id,omitempty"`

	// AgentType selects the system prompt specialization.
	AgentType string `json:"agent_type,omitempty"`

	// PID is the owning process while the session is live; zero when free.
	PID int `json:"pid,omitempty"`

	// CreatedAt and UpdatedAt bound the session's lifetime. UpdatedAt is
	// always >= CreatedAt.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// LastActivity is the timestamp of the most recent message or tool
	// event, used by listing and cleanup.
	LastActivity time.Time `json:"last_activity,omitempty"`

	// Metadata is an open map; unknown keys are preserved.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Touch advances UpdatedAt and LastActivity to now.
func (s *Session) Touch() {
	now := time.Now()
	s.UpdatedAt = now
	s.LastActivity = now
}

// TodoStatus tracks the lifecycle of a todo item.
type TodoStatus string

const (
	// TodoPending is a not-yet-started item.
	TodoPending TodoStatus = "pending"

	// TodoInProgress is the single item being worked on.
	TodoInProgress TodoStatus = "in_progress"

	// TodoCompleted is a finished item.
	TodoCompleted TodoStatus = "completed"

	// TodoCancelled is an abandoned item.
	TodoCancelled TodoStatus = "cancelled"
)

// Todo is one entry of a session's task list. At most one todo per session
// may be in_progress at a time.
type Todo struct {
	ID         string     `json:"id"`
	Content    string     `json:"content"`
	Status     TodoStatus `json:"status"`
	ActiveForm string     `json:"active_form,omitempty"`
	Index      int        `json:"index,omitempty"`
}

// TokenUsage accumulates token counts reported by the LLM endpoint.
// Counters only grow within a task.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another usage report.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}
