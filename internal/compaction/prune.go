package compaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/wolo/pkg/models"
)

// ToolPruning replaces old tool outputs with a short placeholder. Recent
// turns and the most recent tool outputs stay intact so the model can keep
// referring to them; pruned parts carry their original estimated size in
// metadata.
type ToolPruning struct{}

func (ToolPruning) Name() string                        { return "tool_pruning" }
func (ToolPruning) PolicyType() models.CompactionPolicy { return models.PolicyToolPruning }
func (ToolPruning) Priority() int                       { return 50 }

func (s ToolPruning) ShouldApply(c *Context) bool {
	if !c.Config.ToolPruning.Enabled {
		return false
	}
	return s.EstimateSavings(c) >= c.Config.ToolPruning.MinimumPruneTokens
}

// EstimateSavings sums the output tokens of every part the strategy would
// prune, minus the replacement text it would leave behind.
func (s ToolPruning) EstimateSavings(c *Context) int {
	saved := 0
	replacement := EstimateText(c.Config.ToolPruning.ReplacementText)
	s.walk(c, func(tp *models.ToolPart) {
		outTokens := EstimateText(tp.Output)
		if gain := outTokens - replacement; gain > 0 {
			saved += gain
		}
	})
	return saved
}

func (s ToolPruning) Apply(_ context.Context, c *Context) (*PolicyResult, error) {
	cfg := c.Config.ToolPruning
	saving := s.EstimateSavings(c)
	if saving < cfg.MinimumPruneTokens {
		return &PolicyResult{
			Status: StatusSkipped,
			Reason: fmt.Sprintf("estimated saving %d below minimum %d", saving, cfg.MinimumPruneTokens),
		}, nil
	}

	msgs := cloneMessages(c.Messages)
	prunable := s.prunableSet(c)

	var compacted []string
	var preserved []string
	for _, m := range msgs {
		touched := false
		for _, part := range m.ToolParts() {
			if !prunable[part.ID] {
				continue
			}
			tp := part.Tool
			original := EstimateText(tp.Output)
			tp.Output = cfg.ReplacementText
			if tp.Metadata == nil {
				tp.Metadata = make(map[string]any)
			}
			tp.Metadata["pruned"] = true
			tp.Metadata["pruned_tokens"] = original
			touched = true
		}
		if touched {
			compacted = append(compacted, m.ID)
		} else {
			preserved = append(preserved, m.ID)
		}
	}

	record := &models.CompactionRecord{
		ID:                  uuid.NewString(),
		SessionID:           c.SessionID,
		Policy:              models.PolicyToolPruning,
		CreatedAt:           time.Now(),
		OriginalTokens:      c.TokenCount,
		ResultTokens:        EstimateMessages(msgs),
		OriginalMessages:    len(c.Messages),
		ResultMessages:      len(msgs),
		CompactedMessageIDs: compacted,
		PreservedMessageIDs: preserved,
		ConfigSnapshot:      c.configSnapshot(),
	}
	return &PolicyResult{Status: StatusApplied, Messages: msgs, Record: record}, nil
}

// prunableSet returns the part ids walk would prune, keyed so Apply can
// find them again in the cloned messages (part ids survive cloning).
func (s ToolPruning) prunableSet(c *Context) map[string]bool {
	set := make(map[string]bool)
	s.walkParts(c, func(part *models.Part) {
		set[part.ID] = true
	})
	return set
}

func (s ToolPruning) walk(c *Context, fn func(*models.ToolPart)) {
	s.walkParts(c, func(part *models.Part) { fn(part.Tool) })
}

// walkParts visits every tool part eligible for pruning: outside the
// protected recent turns, past the protected token budget counted from the
// newest output backwards, not on the protected-tool list, not already
// pruned, and finished.
func (s ToolPruning) walkParts(c *Context, fn func(*models.Part)) {
	cfg := c.Config.ToolPruning
	boundary := recentTurnBoundary(c.Messages, cfg.ProtectRecentTurns)

	protected := make(map[string]bool, len(cfg.ProtectedTools))
	for _, name := range cfg.ProtectedTools {
		protected[name] = true
	}

	// Newest outputs first so the token budget shields the freshest ones.
	cumulative := 0
	for i := len(c.Messages) - 1; i >= 0; i-- {
		m := c.Messages[i]
		parts := m.ToolParts()
		for j := len(parts) - 1; j >= 0; j-- {
			part := parts[j]
			tp := part.Tool
			if tp.Status != models.ToolCompleted && tp.Status != models.ToolFailed {
				continue
			}
			if pruned, _ := tp.Metadata["pruned"].(bool); pruned {
				continue
			}
			cumulative += EstimateText(tp.Output)
			if cumulative <= cfg.ProtectTokenThreshold {
				continue
			}
			if i >= boundary {
				continue
			}
			if protected[tp.Name] {
				continue
			}
			fn(part)
		}
	}
}
