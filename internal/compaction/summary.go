package compaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/wolo/pkg/models"
)

// Summarizer produces a prose summary of a message prefix. The LLM adapter
// satisfies this; tests use a stub.
type Summarizer interface {
	Summarize(ctx context.Context, msgs []*models.Message) (string, error)
}

// SummarizerFunc adapts a function to the Summarizer interface.
type SummarizerFunc func(ctx context.Context, msgs []*models.Message) (string, error)

func (f SummarizerFunc) Summarize(ctx context.Context, msgs []*models.Message) (string, error) {
	return f(ctx, msgs)
}

// SummaryPrompt is the instruction sent alongside the messages being
// summarized.
const SummaryPrompt = `Summarize the conversation so far for your own future reference. Cover:
1. What was asked and what has been accomplished.
2. What is currently in progress.
3. Files that were created, read, or modified, with their paths.
4. The immediate next steps.
Be specific and concise; this summary replaces the original messages.`

// Summary replaces everything before the most recent exchanges with a
// single synthetic user message carrying an LLM-written summary. The
// replaced message files stay on disk; the record lists their ids.
type Summary struct {
	Summarizer Summarizer
}

func (Summary) Name() string                        { return "summary" }
func (Summary) PolicyType() models.CompactionPolicy { return models.PolicySummary }
func (Summary) Priority() int                       { return 100 }

func (s Summary) ShouldApply(c *Context) bool {
	if !c.Config.Summary.Enabled || s.Summarizer == nil {
		return false
	}
	return s.cut(c) > 0
}

// cut returns the index of the first message to keep verbatim. Zero means
// there is nothing old enough to summarize.
func (s Summary) cut(c *Context) int {
	keep := c.Config.Summary.RecentExchangesToKeep
	if keep < 1 {
		keep = 1
	}
	return recentTurnBoundary(c.Messages, keep)
}

// EstimateSavings counts the tokens of the messages that would be folded
// into the summary. The summary itself is not known yet, so this is an
// upper bound.
func (s Summary) EstimateSavings(c *Context) int {
	return EstimateMessages(c.Messages[:s.cut(c)])
}

func (s Summary) Apply(ctx context.Context, c *Context) (*PolicyResult, error) {
	cut := s.cut(c)
	if cut == 0 {
		return &PolicyResult{Status: StatusSkipped, Reason: "nothing older than the protected exchanges"}, nil
	}
	old := c.Messages[:cut]
	recent := c.Messages[cut:]

	text, err := s.Summarizer.Summarize(ctx, old)
	if err != nil {
		return &PolicyResult{
			Status: StatusFailed,
			Reason: fmt.Sprintf("summarizer: %v", err),
		}, err
	}
	if strings.TrimSpace(text) == "" {
		return &PolicyResult{Status: StatusFailed, Reason: "summarizer returned empty text"}, nil
	}

	summary := models.NewUserMessage("Summary of the earlier conversation:\n\n" + text)
	summary.SetMeta("compaction", map[string]any{"is_summary": true})

	msgs := make([]*models.Message, 0, len(recent)+1)
	msgs = append(msgs, summary)
	msgs = append(msgs, cloneMessages(recent)...)

	compacted := make([]string, 0, len(old))
	for _, m := range old {
		compacted = append(compacted, m.ID)
	}
	preserved := make([]string, 0, len(recent))
	for _, m := range recent {
		preserved = append(preserved, m.ID)
	}

	record := &models.CompactionRecord{
		ID:                  uuid.NewString(),
		SessionID:           c.SessionID,
		Policy:              models.PolicySummary,
		CreatedAt:           time.Now(),
		OriginalTokens:      c.TokenCount,
		ResultTokens:        EstimateMessages(msgs),
		OriginalMessages:    len(c.Messages),
		ResultMessages:      len(msgs),
		CompactedMessageIDs: compacted,
		PreservedMessageIDs: preserved,
		SummaryMessageID:    summary.ID,
		Summary:             text,
		ConfigSnapshot:      c.configSnapshot(),
	}
	return &PolicyResult{Status: StatusApplied, Messages: msgs, Record: record}, nil
}
