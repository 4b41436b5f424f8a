package pathsafety

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/haasonsaas/wolo/internal/errdefs"
)

// DefaultConfirmationCap limits interactive prompts per session.
const DefaultConfirmationCap = 10

// ConfirmationStrategy decides whether a write outside the whitelist may
// proceed. Implementations return errdefs.TypeCancelledByUser to abort the
// whole session.
type ConfirmationStrategy interface {
	Confirm(path string, op Operation) (bool, error)
}

// AutoDeny refuses every confirmation. Used in non-interactive runs.
type AutoDeny struct{}

func (AutoDeny) Confirm(string, Operation) (bool, error) { return false, nil }

// AutoAllow approves every confirmation. Test use only.
type AutoAllow struct{}

func (AutoAllow) Confirm(string, Operation) (bool, error) { return true, nil }

// CLIStrategy prompts the user on the terminal with Y/n/a/q:
// yes once, no, always (confirm the parent directory for the rest of the
// session), or quit (cancel the session).
type CLIStrategy struct {
	In      io.Reader
	Out     io.Writer
	Checker *Checker
	Audit   *AuditLog
	Cap     int

	mu    sync.Mutex
	asked int
}

// NewCLIStrategy wires a terminal prompt to the checker's confirmed set.
func NewCLIStrategy(in io.Reader, out io.Writer, checker *Checker, audit *AuditLog) *CLIStrategy {
	return &CLIStrategy{In: in, Out: out, Checker: checker, Audit: audit, Cap: DefaultConfirmationCap}
}

// Confirm prompts once per call. Exceeding the session cap denies without
// prompting.
func (s *CLIStrategy) Confirm(path string, op Operation) (bool, error) {
	s.mu.Lock()
	s.asked++
	over := s.Cap > 0 && s.asked > s.Cap
	s.mu.Unlock()
	if over {
		s.audit(path, op, "confirmation cap exceeded")
		return false, nil
	}

	fmt.Fprintf(s.Out, "wolo wants to %s outside the allowed paths:\n  %s\nAllow? [Y/n/a/q] (yes / no / always for this directory / quit) ", op, path)
	reader := bufio.NewReader(s.In)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		s.audit(path, op, "prompt read failed")
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		return true, nil
	case "a", "always":
		parent := parentDir(path)
		s.Checker.ConfirmDir(parent, time.Now().UTC().Format(time.RFC3339))
		return true, nil
	case "q", "quit":
		return false, errdefs.PathSafety("session cancelled at confirmation prompt").
			WithType(errdefs.TypeCancelledByUser).
			WithContext("path", path)
	default:
		s.audit(path, op, "denied at prompt")
		return false, nil
	}
}

func (s *CLIStrategy) audit(path string, op Operation, reason string) {
	if s.Audit != nil {
		s.Audit.Record(path, string(op), reason)
	}
}

func parentDir(path string) string {
	resolved, err := resolvePath(path)
	if err != nil {
		resolved = path
	}
	return filepath.Dir(resolved)
}
