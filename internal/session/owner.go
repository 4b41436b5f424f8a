package session

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/haasonsaas/wolo/internal/errdefs"
	"github.com/haasonsaas/wolo/pkg/models"
)

// Acquire claims exclusive ownership of a session for this process. If the
// recorded PID still runs a Wolo process, acquisition fails with a locked
// session error; a stale PID (dead process, or recycled into something
// else) is overwritten.
func (s *Store) Acquire(id string) (*models.Session, error) {
	sess, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	if sess.PID != 0 && sess.PID != os.Getpid() && pidRunsWolo(sess.PID) {
		return nil, errdefs.Session("session is held by pid %d", sess.PID).
			WithSession(id).
			WithType(errdefs.TypeLocked).
			WithContext("pid", sess.PID)
	}
	sess.PID = os.Getpid()
	sess.Touch()
	if err := s.SaveSession(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Release clears the PID on normal exit. Best effort: a crash leaves the
// stale PID behind, which the next Acquire detects and reclaims.
func (s *Store) Release(id string) error {
	sess, err := s.Load(id)
	if err != nil {
		return err
	}
	if sess.PID != os.Getpid() {
		return nil
	}
	sess.PID = 0
	sess.Touch()
	return s.SaveSession(sess)
}

// pidRunsWolo reports whether pid is alive and looks like a Wolo process.
// The command line is sniffed via /proc when available; elsewhere a
// signal-0 liveness probe is the best we can do.
func pidRunsWolo(pid int) bool {
	if pid <= 0 {
		return false
	}
	if data, err := os.ReadFile(fmt.Sprintf("/proc/%d/cmdline", pid)); err == nil {
		cmdline := strings.ReplaceAll(string(data), "\x00", " ")
		return strings.Contains(cmdline, "wolo")
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
