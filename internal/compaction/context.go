package compaction

import (
	"fmt"

	"github.com/haasonsaas/wolo/internal/config"
	"github.com/haasonsaas/wolo/pkg/models"
)

// Context bundles what strategies need to decide and act. Messages is an
// immutable view; strategies copy before changing anything.
type Context struct {
	SessionID  string
	Messages   []*models.Message
	TokenCount int
	TokenLimit int
	Model      string
	Config     config.CompactionConfig
}

// Decision is the outcome of ShouldCompact.
type Decision struct {
	Compact    bool
	Reason     string
	TokenCount int
	TokenLimit int
	Ratio      float64
}

// NewContext computes the effective limit from the model window and the
// reserved-token headroom.
func NewContext(sessionID, model string, msgs []*models.Message, reportedTokens, modelWindow int, cfg config.CompactionConfig) *Context {
	limit := modelWindow - cfg.ReservedTokens
	if limit < 1 {
		limit = 1
	}
	return &Context{
		SessionID:  sessionID,
		Messages:   msgs,
		TokenCount: EffectiveTokens(msgs, reportedTokens),
		TokenLimit: limit,
		Model:      model,
		Config:     cfg,
	}
}

// ShouldCompact applies the trigger rule: enabled, auto-compact on, the
// overflow ratio at or past the threshold, and the step on the check
// interval.
func (c *Context) ShouldCompact(step int) Decision {
	d := Decision{
		TokenCount: c.TokenCount,
		TokenLimit: c.TokenLimit,
		Ratio:      float64(c.TokenCount) / float64(c.TokenLimit),
	}
	if !c.Config.Enabled {
		d.Reason = "compaction disabled"
		return d
	}
	if !c.Config.AutoCompact {
		d.Reason = "auto-compact disabled"
		return d
	}
	interval := c.Config.CheckIntervalSteps
	if interval < 1 {
		interval = 1
	}
	if step%interval != 0 {
		d.Reason = fmt.Sprintf("step %d not on check interval %d", step, interval)
		return d
	}
	if d.Ratio < c.Config.OverflowThreshold {
		d.Reason = fmt.Sprintf("ratio %.2f below threshold %.2f", d.Ratio, c.Config.OverflowThreshold)
		return d
	}
	d.Compact = true
	d.Reason = fmt.Sprintf("ratio %.2f at or above threshold %.2f", d.Ratio, c.Config.OverflowThreshold)
	return d
}

// configSnapshot freezes the thresholds for a CompactionRecord.
func (c *Context) configSnapshot() map[string]any {
	return map[string]any{
		"limit_base":           "model_max_tokens",
		"overflow_threshold":   c.Config.OverflowThreshold,
		"reserved_tokens":      c.Config.ReservedTokens,
		"check_interval_steps": c.Config.CheckIntervalSteps,
		"token_limit":          c.TokenLimit,
		"model":                c.Model,
	}
}
