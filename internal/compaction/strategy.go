package compaction

import (
	"context"

	"github.com/haasonsaas/wolo/pkg/models"
)

// Status of one strategy application.
type Status string

const (
	StatusApplied Status = "applied"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// PolicyResult is what a strategy returns from Apply.
type PolicyResult struct {
	Status   Status
	Reason   string
	Messages []*models.Message
	Record   *models.CompactionRecord
}

// Strategy is one compaction policy. Strategies never mutate the input
// messages; Apply returns fresh copies.
type Strategy interface {
	Name() string
	PolicyType() models.CompactionPolicy
	Priority() int
	ShouldApply(c *Context) bool
	Apply(ctx context.Context, c *Context) (*PolicyResult, error)
	EstimateSavings(c *Context) int
}

// cloneMessage copies a message deeply enough that part and metadata
// mutations do not reach the original.
func cloneMessage(m *models.Message) *models.Message {
	out := *m
	out.Parts = make([]models.Part, len(m.Parts))
	for i, p := range m.Parts {
		cp := p
		if p.Tool != nil {
			tool := *p.Tool
			if p.Tool.Input != nil {
				tool.Input = make(map[string]any, len(p.Tool.Input))
				for k, v := range p.Tool.Input {
					tool.Input[k] = v
				}
			}
			if p.Tool.Metadata != nil {
				tool.Metadata = make(map[string]any, len(p.Tool.Metadata))
				for k, v := range p.Tool.Metadata {
					tool.Metadata[k] = v
				}
			}
			cp.Tool = &tool
		}
		out.Parts[i] = cp
	}
	if m.Metadata != nil {
		out.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

func cloneMessages(msgs []*models.Message) []*models.Message {
	out := make([]*models.Message, len(msgs))
	for i, m := range msgs {
		out[i] = cloneMessage(m)
	}
	return out
}

// recentTurnBoundary returns the index of the first message belonging to
// the last n user-to-assistant turns. Everything at or after the boundary
// is protected.
func recentTurnBoundary(msgs []*models.Message, n int) int {
	if n <= 0 {
		return len(msgs)
	}
	turns := 0
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == models.RoleUser {
			turns++
			if turns == n {
				return i
			}
		}
	}
	return 0
}
