package models

import "time"

// CompactionPolicy names the strategy that produced a record.
type CompactionPolicy string

const (
	// PolicyToolPruning replaces old tool outputs with a placeholder.
	PolicyToolPruning CompactionPolicy = "tool_pruning"

	// PolicySummary replaces old messages with an LLM-written summary.
	PolicySummary CompactionPolicy = "summary"
)

// CompactionRecord is the immutable audit entry written whenever a
// compaction strategy rewrites the conversation window. The original
// message files referenced by CompactedMessageIDs stay on disk so the
// pre-compaction conversation remains recoverable.
type CompactionRecord struct {
	ID        string           `json:"id"`
	SessionID string           `json:"session_id"`
	Policy    CompactionPolicy `json:"policy"`
	CreatedAt time.Time        `json:"created_at"`

	// Token and message counts before and after the strategy ran.
	OriginalTokens   int `json:"original_tokens"`
	ResultTokens     int `json:"result_tokens"`
	OriginalMessages int `json:"original_messages"`
	ResultMessages   int `json:"result_messages"`

	// CompactedMessageIDs are the messages the strategy rewrote or
	// replaced; PreservedMessageIDs passed through untouched.
	CompactedMessageIDs []string `json:"compacted_message_ids"`
	PreservedMessageIDs []string `json:"preserved_message_ids"`

	// SummaryMessageID and Summary are set by the summary policy only.
	SummaryMessageID string `json:"summary_message_id,omitempty"`
	Summary          string `json:"summary,omitempty"`

	// ConfigSnapshot freezes the thresholds in effect when the record was
	// written, including the token-limit base.
	ConfigSnapshot map[string]any `json:"config_snapshot,omitempty"`
}

// CompactionRecordStub is the lightweight index entry kept in
// compaction/records.json.
type CompactionRecordStub struct {
	ID        string           `json:"id"`
	Policy    CompactionPolicy `json:"policy"`
	CreatedAt time.Time        `json:"created_at"`
}
