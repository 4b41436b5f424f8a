// Package taskstate provides per-task isolated state for agent loops:
// token usage counters, the doom-loop detection ring, and the session todos
// cache. Each loop carries its own *State through context.Context; spawned
// work inherits a snapshot via Fork, so mutations never escape back to the
// parent or leak across sibling loops in the same process.
package taskstate

import (
	"context"
	"sync"

	"github.com/haasonsaas/wolo/pkg/models"
)

// DefaultDoomCapacity is the doom-loop history ring size; it equals the
// detection threshold.
const DefaultDoomCapacity = 5

// DoomEntry is one remembered tool dispatch.
type DoomEntry struct {
	ToolName    string
	InputHash   uint64
	ContextHash uint64
}

// State holds the task-local values for one agent loop.
type State struct {
	mu       sync.Mutex
	usage    models.TokenUsage
	doom     []DoomEntry
	doomCap  int
	todos    []models.Todo
	hasTodos bool
}

// New creates an empty State with the default doom-history capacity.
func New() *State {
	return &State{doomCap: DefaultDoomCapacity}
}

// Usage returns a copy of the accumulated token usage.
func (s *State) Usage() models.TokenUsage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

// AddUsage accumulates a usage report. Counters only grow.
func (s *State) AddUsage(u models.TokenUsage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage.Add(u)
}

// PushDoom appends a dispatch to the bounded history, evicting the oldest
// entry once capacity is reached.
func (s *State) PushDoom(entry DoomEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doom = append(s.doom, entry)
	if len(s.doom) > s.doomCap {
		s.doom = s.doom[len(s.doom)-s.doomCap:]
	}
}

// DoomHistory returns a copy of the current ring, oldest first.
func (s *State) DoomHistory() []DoomEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DoomEntry, len(s.doom))
	copy(out, s.doom)
	return out
}

// DoomTriggered reports whether the ring is full and every entry equals
// the given dispatch.
func (s *State) DoomTriggered(entry DoomEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.doom) < s.doomCap {
		return false
	}
	for _, e := range s.doom {
		if e != entry {
			return false
		}
	}
	return true
}

// ResetDoom clears the history, e.g. after the model changes approach.
func (s *State) ResetDoom() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doom = nil
}

// Todos returns a copy of the cached todo list and whether a cache exists.
func (s *State) Todos() ([]models.Todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasTodos {
		return nil, false
	}
	out := make([]models.Todo, len(s.todos))
	copy(out, s.todos)
	return out, true
}

// SetTodos replaces the cached todo list.
func (s *State) SetTodos(todos []models.Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.todos = make([]models.Todo, len(todos))
	copy(s.todos, todos)
	s.hasTodos = true
}

// snapshot copies the state for inheritance by child tasks.
func (s *State) snapshot() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	child := &State{
		usage:    s.usage,
		doomCap:  s.doomCap,
		hasTodos: s.hasTodos,
	}
	child.doom = make([]DoomEntry, len(s.doom))
	copy(child.doom, s.doom)
	child.todos = make([]models.Todo, len(s.todos))
	copy(child.todos, s.todos)
	return child
}

type ctxKey struct{}

// WithState attaches a State to the context.
func WithState(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the context's State, creating a fresh one when the
// context carries none so callers never observe nil.
func FromContext(ctx context.Context) *State {
	if s, ok := ctx.Value(ctxKey{}).(*State); ok && s != nil {
		return s
	}
	return New()
}

// Fork returns a child context carrying a snapshot of the parent's state.
// The child's mutations do not propagate back.
func Fork(ctx context.Context) context.Context {
	parent := FromContext(ctx)
	return WithState(ctx, parent.snapshot())
}
