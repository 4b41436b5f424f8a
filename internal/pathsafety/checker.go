// Package pathsafety mediates every write-capable tool call through a
// directory whitelist. Reads are always allowed; writes outside the
// whitelist need an interactive confirmation, which can add the target's
// parent directory to a session-scoped confirmed set.
package pathsafety

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Operation classifies a tool's filesystem intent.
type Operation string

const (
	OpRead      Operation = "read"
	OpWrite     Operation = "write"
	OpEdit      Operation = "edit"
	OpMultiEdit Operation = "multiedit"
	OpDelete    Operation = "delete"
)

// writeClass reports whether the operation mutates the filesystem.
func (op Operation) writeClass() bool {
	return op != OpRead
}

// Verdict is the outcome of a whitelist check.
type Verdict int

const (
	Allowed Verdict = iota
	NeedsConfirmation
	Denied
)

// Decision carries a verdict plus a human-readable reason.
type Decision struct {
	Verdict Verdict
	Reason  string
}

// Checker answers whether a path may be written. Sources are consulted in
// priority order: working directory, CLI paths, config paths, the system
// temp directory, then session-confirmed directories.
type Checker struct {
	mu        sync.Mutex
	sources   []string
	confirmed map[string]ConfirmedDir
}

// ConfirmedDir records one interactively approved directory.
type ConfirmedDir struct {
	Path        string `json:"path"`
	Count       int    `json:"count"`
	ConfirmedAt string `json:"confirmed_at"`
}

// NewChecker builds a Checker from the priority-ordered static sources.
// Empty entries are skipped; all sources are normalized to absolute paths.
func NewChecker(workdir string, cliPaths, configPaths []string) *Checker {
	c := &Checker{confirmed: make(map[string]ConfirmedDir)}
	add := func(p string) {
		if p == "" {
			return
		}
		if abs, err := filepath.Abs(p); err == nil {
			c.sources = append(c.sources, abs)
		}
	}
	add(workdir)
	for _, p := range cliPaths {
		add(p)
	}
	for _, p := range configPaths {
		add(p)
	}
	add(os.TempDir())
	return c
}

// Check evaluates path for the given operation.
func (c *Checker) Check(path string, op Operation) Decision {
	if !op.writeClass() {
		return Decision{Verdict: Allowed, Reason: "read operations are always allowed"}
	}
	resolved, err := resolvePath(path)
	if err != nil {
		return Decision{Verdict: Denied, Reason: "cannot resolve path: " + err.Error()}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, src := range c.sources {
		if contains(src, resolved) {
			return Decision{Verdict: Allowed, Reason: "within " + src}
		}
	}
	for dir := range c.confirmed {
		if contains(dir, resolved) {
			return Decision{Verdict: Allowed, Reason: "previously confirmed: " + dir}
		}
	}
	return Decision{
		Verdict: NeedsConfirmation,
		Reason:  resolved + " is outside the allowed write paths",
	}
}

// ConfirmDir adds a directory to the session-confirmed set.
func (c *Checker) ConfirmDir(dir, timestamp string) {
	abs, err := resolvePath(dir)
	if err != nil {
		abs = dir
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := c.confirmed[abs]
	entry.Path = abs
	entry.Count++
	entry.ConfirmedAt = timestamp
	c.confirmed[abs] = entry
}

// ConfirmedDirs returns the confirmed set sorted by path, for persistence.
func (c *Checker) ConfirmedDirs() []ConfirmedDir {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ConfirmedDir, 0, len(c.confirmed))
	for _, d := range c.confirmed {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// RestoreConfirmedDirs loads a previously persisted confirmed set.
func (c *Checker) RestoreConfirmedDirs(dirs []ConfirmedDir) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range dirs {
		if d.Path != "" {
			c.confirmed[d.Path] = d
		}
	}
}

// resolvePath returns the absolute, symlink-resolved form of path. For
// paths that do not exist yet, the deepest existing ancestor is resolved
// and the remaining components are appended unchanged.
func resolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	dir := abs
	var tail []string
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		tail = append([]string{filepath.Base(dir)}, tail...)
		dir = parent
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...), nil
		}
	}
}

// contains reports whether candidate equals root or lives under it.
func contains(root, candidate string) bool {
	if root == candidate {
		return true
	}
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
