package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/wolo/internal/agent"
	"github.com/haasonsaas/wolo/internal/errdefs"
	"github.com/haasonsaas/wolo/internal/taskstate"
)

// buildChatCmd creates the continuous-conversation command. "repl" is an
// alias; both run the loop in repl mode until the user quits.
func buildChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "chat [prompt]",
		Aliases: []string{"repl"},
		Short:   "Continuous conversation mode",
		Long:    "Runs the agent in repl mode: after each answer, wolo reads another line. Quit with 'exit', 'quit', or EOF.",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(opts.logLevel)
			if err := validateFlags(opts); err != nil {
				return err
			}
			if !stdinIsTerminal() {
				return errdefs.Config("chat mode needs a terminal on stdin")
			}
			return runChat(cmd, opts, strings.TrimSpace(strings.Join(args, " ")))
		},
	}
}

func runChat(cmd *cobra.Command, opts *rootOptions, firstPrompt string) error {
	rt, err := buildRuntime(opts, agent.ModeRepl, firstPrompt)
	if err != nil {
		return err
	}
	defer rt.close()

	runCtx, stopSignals, sawTerm := rt.installSignals(cmd.Context())
	defer stopSignals()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "session %s (exit with 'quit')\n", rt.sess.ID)

	state := taskstate.New()
	reader := bufio.NewReader(os.Stdin)
	prompt := firstPrompt
	for {
		if prompt == "" {
			fmt.Fprint(out, "> ")
			line, err := reader.ReadString('\n')
			if err != nil {
				return nil // EOF quits
			}
			prompt = strings.TrimSpace(line)
			if prompt == "" {
				continue
			}
			if prompt == "exit" || prompt == "quit" {
				return nil
			}
		}

		err := rt.loop.Run(taskstate.WithState(runCtx, state), prompt)
		fmt.Fprintln(out)
		rt.persistConfirmations()
		if sawTerm.Load() {
			return &exitError{code: errdefs.ExitTerminated, msg: "terminated"}
		}
		if err != nil {
			return err
		}
		prompt = ""
	}
}
