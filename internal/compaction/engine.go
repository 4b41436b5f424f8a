package compaction

import (
	"context"
	"log/slog"
	"sort"

	"github.com/haasonsaas/wolo/internal/config"
	"github.com/haasonsaas/wolo/pkg/models"
)

// Result is the outcome of one engine run: the (possibly unchanged) view
// to send on the next LLM call, the records to persist, and what each
// strategy did.
type Result struct {
	Messages   []*models.Message
	TokenCount int
	TokenLimit int
	Records    []*models.CompactionRecord
	Applied    []string
	Skipped    []string
	Failed     []string
	UnderLimit bool
}

// Engine runs strategies in priority order until the window fits.
type Engine struct {
	strategies []Strategy
	logger     *slog.Logger
}

// NewEngine builds the default pipeline: tool pruning first, summary as
// the heavier fallback. A nil summarizer disables the summary strategy.
func NewEngine(summarizer Summarizer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	strategies := []Strategy{ToolPruning{}}
	if summarizer != nil {
		strategies = append(strategies, Summary{Summarizer: summarizer})
	}
	return &Engine{strategies: strategies, logger: logger}
}

// NewEngineWith builds a pipeline from explicit strategies, for tests and
// custom setups.
func NewEngineWith(logger *slog.Logger, strategies ...Strategy) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{strategies: strategies, logger: logger}
}

// Compact runs the pipeline. Lower-priority strategies run first so the
// cheap ones get a chance before the summary rewrite; after each applied
// strategy the token count is recomputed and the run stops as soon as the
// window fits. A failing strategy is logged and the next one still runs.
func (e *Engine) Compact(ctx context.Context, sessionID, model string, msgs []*models.Message, reportedTokens, modelWindow int, cfg config.CompactionConfig) *Result {
	c := NewContext(sessionID, model, msgs, reportedTokens, modelWindow, cfg)
	res := &Result{
		Messages:   c.Messages,
		TokenCount: c.TokenCount,
		TokenLimit: c.TokenLimit,
	}

	ordered := make([]Strategy, len(e.strategies))
	copy(ordered, e.strategies)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})

	for _, s := range ordered {
		if res.TokenCount <= res.TokenLimit {
			res.UnderLimit = true
			break
		}
		if !s.ShouldApply(c) {
			res.Skipped = append(res.Skipped, s.Name())
			continue
		}
		pr, err := s.Apply(ctx, c)
		if err != nil || pr == nil || pr.Status == StatusFailed {
			reason := "nil result"
			if pr != nil {
				reason = pr.Reason
			}
			e.logger.Warn("compaction strategy failed",
				"strategy", s.Name(), "session", sessionID, "reason", reason, "error", err)
			res.Failed = append(res.Failed, s.Name())
			continue
		}
		if pr.Status == StatusSkipped {
			res.Skipped = append(res.Skipped, s.Name())
			continue
		}

		res.Applied = append(res.Applied, s.Name())
		if pr.Record != nil {
			res.Records = append(res.Records, pr.Record)
		}
		c = &Context{
			SessionID:  c.SessionID,
			Messages:   pr.Messages,
			TokenCount: EstimateMessages(pr.Messages),
			TokenLimit: c.TokenLimit,
			Model:      c.Model,
			Config:     c.Config,
		}
		res.Messages = c.Messages
		res.TokenCount = c.TokenCount
		e.logger.Info("compaction applied",
			"strategy", s.Name(), "session", sessionID,
			"tokens", res.TokenCount, "limit", res.TokenLimit)
	}

	res.UnderLimit = res.TokenCount <= res.TokenLimit
	if !res.UnderLimit && len(res.Applied) == 0 {
		e.logger.Warn("compaction made no progress",
			"session", sessionID, "tokens", res.TokenCount, "limit", res.TokenLimit)
	}
	return res
}
