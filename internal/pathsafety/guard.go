package pathsafety

import (
	"github.com/haasonsaas/wolo/internal/errdefs"
)

// Metadata keys set on refused results.
const (
	MetaDeniedByUser  = "path_denied_by_user"
	MetaPathNotListed = "path_not_allowed"
)

// GuardResult is the uniform shape every guarded call produces.
type GuardResult struct {
	Output   string
	Metadata map[string]any
	Failed   bool
}

// Guard wraps write-capable tool functions with the whitelist check and
// the confirmation flow. Every built-in write tool, including each per-file
// step of multiedit, goes through Execute.
type Guard struct {
	Checker  *Checker
	Strategy ConfirmationStrategy
	Audit    *AuditLog
}

// NewGuard assembles the middleware.
func NewGuard(checker *Checker, strategy ConfirmationStrategy, audit *AuditLog) *Guard {
	return &Guard{Checker: checker, Strategy: strategy, Audit: audit}
}

// Execute checks path, runs the confirmation flow on a miss, and invokes fn
// only when the write is allowed. Refusals come back as a failed
// GuardResult; only user cancellation returns a non-nil error, which aborts
// the session.
func (g *Guard) Execute(path string, op Operation, fn func() (string, map[string]any, error)) (*GuardResult, error) {
	decision := g.Checker.Check(path, op)

	if decision.Verdict == NeedsConfirmation {
		ok, err := g.Strategy.Confirm(path, op)
		if err != nil {
			// Cancellation tunnels up to the loop.
			return nil, err
		}
		if !ok {
			g.record(path, op, "denied by user")
			return &GuardResult{
				Output:   "Write to " + path + " was denied by the user.",
				Metadata: map[string]any{MetaDeniedByUser: true, "path": path},
				Failed:   true,
			}, nil
		}
		// Re-check: a yes may have widened the confirmed set, or approved
		// just this call.
		decision = g.Checker.Check(path, op)
		if decision.Verdict == NeedsConfirmation {
			decision = Decision{Verdict: Allowed, Reason: "confirmed for this call"}
		}
	}

	if decision.Verdict == Denied {
		g.record(path, op, decision.Reason)
		return &GuardResult{
			Output:   "Write to " + path + " is not allowed: " + decision.Reason,
			Metadata: map[string]any{MetaPathNotListed: true, "path": path},
			Failed:   true,
		}, nil
	}

	output, meta, err := fn()
	if err != nil {
		if _, ok := errdefs.As(err); !ok {
			err = errdefs.WrapTool(string(op), err)
		}
		return nil, err
	}
	if meta == nil {
		meta = map[string]any{}
	}
	return &GuardResult{Output: output, Metadata: meta}, nil
}

func (g *Guard) record(path string, op Operation, reason string) {
	if g.Audit != nil {
		g.Audit.Record(path, string(op), reason)
	}
}
