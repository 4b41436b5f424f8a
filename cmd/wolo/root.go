package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/haasonsaas/wolo/internal/agent"
	"github.com/haasonsaas/wolo/internal/errdefs"
)

// rootOptions carries every root-level flag.
type rootOptions struct {
	sessionName string
	resumeID    string
	list        bool
	watchID     string
	agentType   string
	model       string
	maxSteps    int
	endpoint    string
	logLevel    string
	allowPaths  []string
	workdir     string
	apiKey      string
	solo        bool
	coop        bool
}

func buildRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "wolo [flags] [prompt]",
		Short: "Wolo - an AI coding agent for your terminal",
		Long: `Wolo runs an LLM-driven coding agent against your working directory.
Sessions are stored crash-safe under ~/.wolo/sessions; writes outside the
whitelisted paths require confirmation.`,
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(opts.logLevel)
			if err := validateFlags(opts); err != nil {
				return err
			}
			if opts.list {
				return runSessionList(cmd.OutOrStdout())
			}
			if opts.watchID != "" {
				return runSessionWatch(cmd.Context(), cmd.OutOrStdout(), opts.watchID)
			}

			prompt := strings.TrimSpace(strings.Join(args, " "))
			stdin := readPipedStdin()
			if prompt == "" && stdin == "" {
				if opts.resumeID != "" {
					return errdefs.Config("--resume requires a prompt")
				}
				return cmd.Help()
			}

			mode := agent.ModeSolo
			if opts.coop {
				mode = agent.ModeCoop
			}
			return runTask(cmd.Context(), opts, mode, agent.BuildPrompt(stdin, prompt))
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.sessionName, "session", "s", "", "named session to create or reuse")
	flags.StringVarP(&opts.resumeID, "resume", "r", "", "resume an existing session id (requires a prompt)")
	flags.BoolVarP(&opts.list, "list", "l", false, "list sessions and exit")
	flags.StringVarP(&opts.watchID, "watch", "w", "", "watch a session's messages and exit on interrupt")
	flags.StringVarP(&opts.agentType, "agent", "a", "", "agent type specialization (e.g. reviewer, planner)")
	flags.StringVarP(&opts.model, "model", "m", "", "model override")
	flags.IntVarP(&opts.maxSteps, "max-steps", "n", 0, "step budget for this run (default 100)")
	flags.StringVarP(&opts.endpoint, "endpoint", "e", "", "endpoint name from the config file")
	flags.StringVarP(&opts.logLevel, "log-level", "L", "warn", "log level: debug, info, warn, error")
	flags.StringArrayVarP(&opts.allowPaths, "allow-path", "P", nil, "additional writable path (repeatable)")
	flags.StringVarP(&opts.workdir, "workdir", "C", "", "working directory (default: current)")
	flags.StringVar(&opts.apiKey, "api-key", "", "API key override")
	flags.BoolVar(&opts.solo, "solo", false, "non-interactive mode, question tool disabled (default)")
	flags.BoolVar(&opts.coop, "coop", false, "interactive mode, question tool enabled")

	rootCmd.AddCommand(
		buildChatCmd(opts),
		buildSessionCmd(),
		buildConfigCmd(),
	)
	return rootCmd
}

func validateFlags(opts *rootOptions) error {
	if opts.sessionName != "" && opts.resumeID != "" {
		return errdefs.Config("--session and --resume are mutually exclusive")
	}
	if opts.solo && opts.coop {
		return errdefs.Config("--solo and --coop are mutually exclusive")
	}
	return nil
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
}

// readPipedStdin returns piped input, or "" when stdin is a terminal.
func readPipedStdin() string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(os.Stdin, 4<<20))
	if err != nil {
		return ""
	}
	return string(data)
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// exitError carries an explicit process exit code past main's default
// mapping.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func workdirOrCwd(workdir string) (string, error) {
	if workdir != "" {
		return workdir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	return wd, nil
}
