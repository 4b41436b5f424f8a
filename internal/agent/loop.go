// Package agent drives the conversation loop: it streams model output into
// session messages, executes requested tools, triggers compaction when the
// window fills, and enforces the doom-loop and step-budget guards.
package agent

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"

	"github.com/haasonsaas/wolo/internal/compaction"
	"github.com/haasonsaas/wolo/internal/config"
	"github.com/haasonsaas/wolo/internal/errdefs"
	"github.com/haasonsaas/wolo/internal/llm"
	"github.com/haasonsaas/wolo/internal/session"
	"github.com/haasonsaas/wolo/internal/taskstate"
	"github.com/haasonsaas/wolo/internal/tools"
	"github.com/haasonsaas/wolo/pkg/models"
)

// Mode selects the interaction contract.
type Mode string

const (
	// ModeSolo disables the question tool; confirmations auto-deny
	// without a TTY.
	ModeSolo Mode = "solo"

	// ModeCoop enables the question tool and interactive confirmations.
	ModeCoop Mode = "coop"

	// ModeRepl is coop plus continuation: the CLI reads another line and
	// runs the loop again instead of exiting.
	ModeRepl Mode = "repl"
)

// Interactive reports whether the mode exposes interactive tools.
func (m Mode) Interactive() bool {
	return m == ModeCoop || m == ModeRepl
}

// DefaultMaxSteps bounds one Run invocation.
const DefaultMaxSteps = 100

// Completer is the slice of the LLM client the loop needs; tests stub it.
type Completer interface {
	Complete(ctx context.Context, req *llm.Request) (<-chan *llm.Chunk, error)
	Model() string
	ContextWindow() int
}

// Loop binds one session to an LLM endpoint and a tool registry.
type Loop struct {
	Session  *models.Session
	Store    *session.Store
	Saver    *session.Saver
	LLM      Completer
	Registry *tools.Registry
	Env      *tools.Env
	Engine   *compaction.Engine
	Control  *Control
	Config   *config.Config
	Mode     Mode
	MaxSteps int
	Logger   *slog.Logger

	// OnText, when set, receives each text delta as it streams; surfaces
	// use it to echo output live.
	OnText func(delta string)
}

func (l *Loop) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l *Loop) maxSteps() int {
	if l.MaxSteps > 0 {
		return l.MaxSteps
	}
	return DefaultMaxSteps
}

// Run appends the prompt as a user message and iterates the state machine
// until the model finishes without tool calls, the budget runs out, or a
// guard trips. It always flushes the saver on the way out.
func (l *Loop) Run(ctx context.Context, prompt string) (err error) {
	defer func() {
		if ferr := l.Saver.Flush(); ferr != nil && err == nil {
			err = ferr
		}
	}()

	state := taskstate.FromContext(ctx)
	sid := l.Session.ID

	userMsg := models.NewUserMessage(prompt)
	userMsg.ID = l.Store.NewMessageID(sid)
	if err := l.Store.SaveMessage(sid, userMsg); err != nil {
		return err
	}
	l.Saver.Save()

	view, err := l.loadView(sid)
	if err != nil {
		return err
	}

	lastPromptTokens := 0
	for step := 1; step <= l.maxSteps(); step++ {
		if err := l.waitControl(ctx); err != nil {
			return err
		}
		if l.Control.Stopped() {
			return nil
		}

		if step > 1 {
			view = l.maybeCompact(ctx, view, lastPromptTokens, step)
		}

		assistant := models.NewMessage(models.RoleAssistant)
		assistant.ID = l.Store.NewMessageID(sid)
		view = append(view, assistant)

		finish, usage, err := l.stream(ctx, view, assistant)
		if usage != nil {
			state.AddUsage(*usage)
			lastPromptTokens = usage.PromptTokens
		}
		if err != nil {
			assistant.FinishReason = models.FinishError
			assistant.Finished = true
			l.saveMessage(sid, assistant)
			return err
		}

		assistant.FinishReason = finish
		toolParts := assistant.ToolParts()
		if finish != models.FinishToolCalls || len(toolParts) == 0 {
			assistant.Finished = true
			l.saveMessage(sid, assistant)
			return nil
		}
		l.saveMessage(sid, assistant)

		for _, part := range toolParts {
			if err := l.runTool(ctx, state, assistant, part); err != nil {
				l.saveMessage(sid, assistant)
				return err
			}
			l.saveMessage(sid, assistant)
			l.Saver.Save()
		}
		assistant.Finished = true
		l.saveMessage(sid, assistant)
	}

	return errdefs.Tool("step budget of %d exhausted without completion", l.maxSteps()).
		WithType(errdefs.TypeQuotaExceeded).
		WithSession(sid)
}

// stream consumes one completion and grows the assistant message in place.
func (l *Loop) stream(ctx context.Context, view []*models.Message, assistant *models.Message) (models.FinishReason, *models.TokenUsage, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	req := &llm.Request{
		SystemPrompt: SystemPrompt(l.Session.AgentType, l.Env.Skills),
		Messages:     view[:len(view)-1],
		Tools:        l.toolDefs(),
		EnableThink:  l.Config != nil && l.Config.EnableThink,
	}

	chunks, err := l.LLM.Complete(streamCtx, req)
	if err != nil {
		return models.FinishError, nil, err
	}

	finish := models.FinishNone
	var usage *models.TokenUsage
	for chunk := range chunks {
		if l.Control.Cancelled() {
			cancel()
			return models.FinishError, usage, errdefs.PathSafety("cancelled by user").
				WithType(errdefs.TypeCancelledByUser).
				WithSession(l.Session.ID)
		}
		switch {
		case chunk.Err != nil:
			return models.FinishError, usage, chunk.Err
		case chunk.Text != "":
			assistant.AppendText(chunk.Text)
			if l.OnText != nil {
				l.OnText(chunk.Text)
			}
			l.Saver.Save()
		case chunk.Reasoning != "":
			assistant.ReasoningContent += chunk.Reasoning
		case chunk.ToolCall != nil:
			part := models.NewToolPart(chunk.ToolCall.Name, chunk.ToolCall.Input)
			if chunk.ToolCall.ID != "" {
				part.ID = chunk.ToolCall.ID
			}
			assistant.Parts = append(assistant.Parts, part)
			l.Saver.Save()
		case chunk.Usage != nil:
			usage = chunk.Usage
		}
		if chunk.Done {
			finish = chunk.FinishReason
		}
	}
	return finish, usage, nil
}

// runTool dispatches one tool part through the doom guard and executor.
func (l *Loop) runTool(ctx context.Context, state *taskstate.State, assistant *models.Message, part *models.Part) error {
	tp := part.Tool
	if !isReadOnlyCall(tp.Name, tp.Input) {
		entry := taskstate.DoomEntry{
			ToolName:    tp.Name,
			InputHash:   inputHash(tp.Input),
			ContextHash: sessionHash(l.Session.ID),
		}
		if state.DoomTriggered(entry) {
			msg := fmt.Sprintf("doom loop detected: %s called %d times with identical input; change approach", tp.Name, taskstate.DefaultDoomCapacity)
			tp.Status = models.ToolFailed
			tp.Output = msg
			if tp.Metadata == nil {
				tp.Metadata = make(map[string]any)
			}
			tp.Metadata["error"] = errdefs.TypeDoomLoop
			return errdefs.Tool("%s", msg).
				WithType(errdefs.TypeDoomLoop).
				WithSession(l.Session.ID).
				WithContext("tool_name", tp.Name)
		}
		state.PushDoom(entry)
	}

	// Only cancellation unwinds; other failures are written into the part.
	return l.Registry.Execute(ctx, l.Env, part)
}

// loadView reloads the conversation and replays summary records, so a
// resumed session starts from the compacted window instead of re-feeding
// everything the summary replaced. Unreadable records degrade to the full
// history.
func (l *Loop) loadView(sid string) ([]*models.Message, error) {
	msgs, err := l.Store.LoadMessages(sid)
	if err != nil {
		return nil, err
	}
	stubs, err := l.Store.ListCompactionRecords(sid)
	if err != nil {
		l.logger().Warn("compaction index unreadable", "session", sid, "error", err)
		return msgs, nil
	}
	if len(stubs) == 0 {
		return msgs, nil
	}
	recs := make([]*models.CompactionRecord, 0, len(stubs))
	for _, stub := range stubs {
		rec, err := l.Store.LoadCompactionRecord(sid, stub.ID)
		if err != nil {
			l.logger().Warn("compaction record unreadable",
				"session", sid, "record", stub.ID, "error", err)
			continue
		}
		recs = append(recs, rec)
	}
	return compaction.ResumeView(msgs, recs), nil
}

// maybeCompact asks the engine for a compacted view. The view is only for
// the next call; summary messages and records are persisted, original
// message files are not touched.
func (l *Loop) maybeCompact(ctx context.Context, view []*models.Message, reportedTokens, step int) []*models.Message {
	cfg := l.Config
	if cfg == nil || l.Engine == nil {
		return view
	}
	cctx := compaction.NewContext(l.Session.ID, l.LLM.Model(), view, reportedTokens, l.LLM.ContextWindow(), cfg.Compaction)
	decision := cctx.ShouldCompact(step)
	if !decision.Compact {
		return view
	}
	l.logger().Info("compacting session",
		"session", l.Session.ID, "tokens", decision.TokenCount,
		"limit", decision.TokenLimit, "reason", decision.Reason)

	result := l.Engine.Compact(ctx, l.Session.ID, l.LLM.Model(), view, reportedTokens, l.LLM.ContextWindow(), cfg.Compaction)
	for _, rec := range result.Records {
		if rec.SummaryMessageID != "" {
			if summary := findMessage(result.Messages, rec.SummaryMessageID); summary != nil {
				summary.ID = l.Store.NewMessageID(l.Session.ID)
				rec.SummaryMessageID = summary.ID
				l.saveMessage(l.Session.ID, summary)
			}
		}
		if err := l.Store.AppendCompactionRecord(l.Session.ID, rec); err != nil {
			l.logger().Warn("compaction record not persisted", "session", l.Session.ID, "error", err)
		}
	}
	return result.Messages
}

// waitControl blocks while paused and honors context cancellation.
func (l *Loop) waitControl(ctx context.Context) error {
	for l.Control.Paused() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.Control.resumeChan():
		}
	}
	if l.Control.Cancelled() {
		return errdefs.PathSafety("cancelled by user").
			WithType(errdefs.TypeCancelledByUser).
			WithSession(l.Session.ID)
	}
	return ctx.Err()
}

func (l *Loop) toolDefs() []llm.ToolDef {
	entries := l.Registry.Schemas(l.Mode.Interactive())
	defs := make([]llm.ToolDef, len(entries))
	for i, e := range entries {
		defs[i] = llm.ToolDef{Name: e.Name, Description: e.Description, Parameters: e.Schema}
	}
	return defs
}

func (l *Loop) saveMessage(sid string, msg *models.Message) {
	if err := l.Store.SaveMessage(sid, msg); err != nil {
		l.logger().Warn("message not persisted", "session", sid, "message", msg.ID, "error", err)
	}
}

func findMessage(msgs []*models.Message, id string) *models.Message {
	for _, m := range msgs {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func sessionHash(id string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return h.Sum64()
}
