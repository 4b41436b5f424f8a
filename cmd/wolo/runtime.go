package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/haasonsaas/wolo/internal/agent"
	"github.com/haasonsaas/wolo/internal/compaction"
	"github.com/haasonsaas/wolo/internal/config"
	"github.com/haasonsaas/wolo/internal/errdefs"
	"github.com/haasonsaas/wolo/internal/llm"
	"github.com/haasonsaas/wolo/internal/memory"
	"github.com/haasonsaas/wolo/internal/pathsafety"
	"github.com/haasonsaas/wolo/internal/session"
	"github.com/haasonsaas/wolo/internal/skills"
	"github.com/haasonsaas/wolo/internal/taskstate"
	"github.com/haasonsaas/wolo/internal/tools"
	"github.com/haasonsaas/wolo/pkg/models"
)

// runtime bundles everything one agent run needs; build it once, run the
// loop one or more times (repl), then close.
type runtime struct {
	cfg     *config.Config
	store   *session.Store
	sess    *models.Session
	saver   *session.Saver
	loop    *agent.Loop
	checker *pathsafety.Checker
	memory  *memory.Store
	control *agent.Control
}

// runTask executes one prompt in solo or coop mode.
func runTask(ctx context.Context, opts *rootOptions, mode agent.Mode, prompt string) error {
	rt, err := buildRuntime(opts, mode, prompt)
	if err != nil {
		return err
	}
	defer rt.close()

	runCtx, stopSignals, sawTerm := rt.installSignals(ctx)
	defer stopSignals()

	err = rt.loop.Run(taskstate.WithState(runCtx, taskstate.New()), prompt)
	os.Stdout.WriteString("\n")
	rt.persistConfirmations()
	if sawTerm.Load() {
		return &exitError{code: errdefs.ExitTerminated, msg: "terminated"}
	}
	return err
}

// buildRuntime loads config, acquires the session, and wires the loop.
func buildRuntime(opts *rootOptions, mode agent.Mode, prompt string) (*runtime, error) {
	cfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		return nil, err
	}
	ep, err := cfg.Resolve(config.ResolveOptions{
		EndpointName: opts.endpoint,
		Model:        opts.model,
		APIKey:       opts.apiKey,
	})
	if err != nil {
		return nil, err
	}

	workdir, err := workdirOrCwd(opts.workdir)
	if err != nil {
		return nil, err
	}

	home := config.Home()
	store := session.NewStore(home)
	sess, err := openSession(store, opts, prompt)
	if err != nil {
		return nil, err
	}
	saver := session.NewSaver(store, sess)

	checker := pathsafety.NewChecker(workdir, opts.allowPaths, cfg.PathSafety.AllowedWritePaths)
	if dirs, err := store.LoadConfirmations(sess.ID); err == nil {
		checker.RestoreConfirmedDirs(dirs)
	}

	var audit *pathsafety.AuditLog
	if cfg.PathSafety.AuditDenied {
		audit = pathsafety.NewAuditLog(auditLogPath(cfg, home), sess.ID)
	}

	interactive := mode.Interactive() && stdinIsTerminal()
	var strategy pathsafety.ConfirmationStrategy
	if interactive {
		strategy = &pathsafety.CLIStrategy{
			In:      os.Stdin,
			Out:     os.Stderr,
			Checker: checker,
			Audit:   audit,
			Cap:     cfg.PathSafety.MaxConfirmationsPerSession,
		}
	} else {
		strategy = pathsafety.AutoDeny{}
	}
	guard := pathsafety.NewGuard(checker, strategy, audit)

	available := skills.Discover(skills.DefaultRoots(home, workdir)...)
	registry, err := tools.BuiltinRegistry(available)
	if err != nil {
		return nil, err
	}

	mem, err := memory.Open(home)
	if err != nil {
		slog.Warn("memory store unavailable", "error", err)
	}

	env := tools.NewEnv(sess.ID, workdir)
	env.Store = store
	env.Guard = guard
	env.Skills = available
	env.Memory = mem
	env.Interactive = interactive

	client := llm.New(ep, slog.Default())
	engine := compaction.NewEngine(client, slog.Default())

	rt := &runtime{
		cfg:     cfg,
		store:   store,
		sess:    sess,
		saver:   saver,
		checker: checker,
		memory:  mem,
		control: agent.NewControl(),
	}
	rt.loop = &agent.Loop{
		Session:  sess,
		Store:    store,
		Saver:    saver,
		LLM:      client,
		Registry: registry,
		Env:      env,
		Engine:   engine,
		Control:  rt.control,
		Config:   cfg,
		Mode:     mode,
		MaxSteps: opts.maxSteps,
		Logger:   slog.Default(),
		OnText: func(delta string) {
			os.Stdout.WriteString(delta)
		},
	}
	return rt, nil
}

// auditLogPath resolves the denial log location; the default matches the
// annotated config reference.
func auditLogPath(cfg *config.Config, home string) string {
	if cfg.PathSafety.AuditLogFile != "" {
		return cfg.PathSafety.AuditLogFile
	}
	return filepath.Join(home, "denied_paths.jsonl")
}

// openSession resolves -s/-r into an owned session, creating one when
// neither names an existing session.
func openSession(store *session.Store, opts *rootOptions, prompt string) (*models.Session, error) {
	switch {
	case opts.resumeID != "":
		return store.Acquire(opts.resumeID)
	case opts.sessionName != "":
		if store.Exists(opts.sessionName) {
			return store.Acquire(opts.sessionName)
		}
		if _, err := store.Create(opts.sessionName, deriveTitle(opts.sessionName, prompt), "", opts.agentType); err != nil {
			return nil, err
		}
		return store.Acquire(opts.sessionName)
	default:
		sess, err := store.Create("", "", "", opts.agentType)
		if err != nil {
			return nil, err
		}
		sess.Title = deriveTitle(sess.ID, prompt)
		return store.Acquire(sess.ID)
	}
}

// deriveTitle cuts the first prompt to 80 chars; with no prompt it
// title-cases the slug.
func deriveTitle(id, prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt != "" {
		if line := strings.SplitN(prompt, "\n", 2)[0]; line != "" {
			prompt = line
		}
		if len(prompt) > 80 {
			prompt = prompt[:80]
		}
		return prompt
	}
	return cases.Title(language.English).String(strings.ReplaceAll(id, "-", " "))
}

// installSignals maps SIGINT and SIGTERM onto the control manager so the
// loop flushes before exiting. The returned flag records a SIGTERM for the
// 131 exit contract.
func (rt *runtime) installSignals(ctx context.Context) (context.Context, func(), *atomic.Bool) {
	runCtx, cancel := context.WithCancel(ctx)
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sawTerm := &atomic.Bool{}

	go func() {
		for sig := range sigCh {
			if sig == syscall.SIGTERM {
				sawTerm.Store(true)
			}
			rt.control.Cancel()
			cancel()
		}
	}()

	stop := func() {
		signal.Stop(sigCh)
		close(sigCh)
		cancel()
	}
	return runCtx, stop, sawTerm
}

func (rt *runtime) persistConfirmations() {
	if err := rt.store.SaveConfirmations(rt.sess.ID, rt.checker.ConfirmedDirs()); err != nil {
		slog.Warn("confirmations not persisted", "session", rt.sess.ID, "error", err)
	}
}

func (rt *runtime) close() {
	if err := rt.saver.Close(); err != nil {
		slog.Warn("session flush failed", "session", rt.sess.ID, "error", err)
	}
	if rt.memory != nil {
		rt.memory.Close()
	}
	if err := rt.store.Release(rt.sess.ID); err != nil {
		slog.Warn("session release failed", "session", rt.sess.ID, "error", err)
	}
}
