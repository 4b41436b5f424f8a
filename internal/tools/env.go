package tools

import (
	"io"
	"os"

	"github.com/haasonsaas/wolo/internal/memory"
	"github.com/haasonsaas/wolo/internal/pathsafety"
	"github.com/haasonsaas/wolo/internal/session"
	"github.com/haasonsaas/wolo/internal/skills"
)

// Env bundles everything executors need: the session, the store, the path
// guard, and the interactive channel for the question tool.
type Env struct {
	SessionID string
	Workdir   string

	Store     *session.Store
	Guard     *pathsafety.Guard
	FileTimes *FileTimes
	Skills    []*skills.Skill
	Memory    *memory.Store

	// Interactive is true in coop and repl modes.
	Interactive bool

	// Stdin and Stdout carry the question tool's prompt. Defaults to the
	// process's terminal.
	Stdin  io.Reader
	Stdout io.Writer
}

// NewEnv fills in defaults for optional fields.
func NewEnv(sessionID, workdir string) *Env {
	return &Env{
		SessionID: sessionID,
		Workdir:   workdir,
		FileTimes: NewFileTimes(),
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
	}
}
