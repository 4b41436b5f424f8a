package pathsafety

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"
)

// AuditLog appends denial records to a JSON-lines file. Failures to write
// are logged, never fatal; auditing must not block the agent.
type AuditLog struct {
	mu        sync.Mutex
	path      string
	sessionID string
}

type auditEntry struct {
	Time      string `json:"time"`
	SessionID string `json:"session_id,omitempty"`
	Path      string `json:"path"`
	Operation string `json:"operation"`
	Reason    string `json:"reason"`
}

// NewAuditLog creates an appender for the given file.
func NewAuditLog(path, sessionID string) *AuditLog {
	return &AuditLog{path: path, sessionID: sessionID}
}

// Record appends one denial.
func (a *AuditLog) Record(path, operation, reason string) {
	if a == nil || a.path == "" {
		return
	}
	entry := auditEntry{
		Time:      time.Now().UTC().Format(time.RFC3339),
		SessionID: a.sessionID,
		Path:      path,
		Operation: operation,
		Reason:    reason,
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		slog.Warn("audit log open failed", "path", a.path, "error", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		slog.Warn("audit log write failed", "path", a.path, "error", err)
	}
}
