package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/wolo/internal/agent"
	"github.com/haasonsaas/wolo/internal/config"
	"github.com/haasonsaas/wolo/internal/session"
	"github.com/haasonsaas/wolo/pkg/models"
)

func buildSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage stored sessions",
	}
	cmd.AddCommand(
		buildSessionListCmd(),
		buildSessionShowCmd(),
		buildSessionResumeCmd(),
		buildSessionWatchCmd(),
		buildSessionDeleteCmd(),
		buildSessionCleanCmd(),
	)
	return cmd
}

func sessionStore() *session.Store {
	return session.NewStore(config.Home())
}

func buildSessionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSessionList(cmd.OutOrStdout())
		},
	}
}

func runSessionList(out io.Writer) error {
	entries, err := sessionStore().List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "no sessions")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tMSGS\tLIVE\tLAST ACTIVITY")
	for _, e := range entries {
		live := ""
		if e.Live {
			live = fmt.Sprintf("pid %d", e.PID)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			e.ID, e.Title, e.Messages, live, e.LastActivity.Format(time.RFC3339))
	}
	return w.Flush()
}

func buildSessionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a session's conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := sessionStore()
			sess, err := store.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "session %s  %q  created %s\n\n",
				sess.ID, sess.Title, sess.CreatedAt.Format(time.RFC3339))

			msgs, err := store.LoadMessages(sess.ID)
			if err != nil {
				return err
			}
			for _, m := range msgs {
				printMessage(out, m)
			}
			return nil
		},
	}
}

func printMessage(out io.Writer, m *models.Message) {
	fmt.Fprintf(out, "[%s] %s\n", m.Role, strings.TrimSpace(m.Text()))
	for _, p := range m.ToolParts() {
		line := p.Tool.Output
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i] + " ..."
		}
		fmt.Fprintf(out, "  tool %s (%s): %s\n", p.Tool.Name, p.Tool.Status, line)
	}
	fmt.Fprintln(out)
}

func buildSessionResumeCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "resume <id> <prompt>",
		Short: "Resume a session with a new prompt",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(opts.logLevel)
			opts.resumeID = args[0]
			prompt := strings.Join(args[1:], " ")
			mode := agent.ModeSolo
			if opts.coop {
				mode = agent.ModeCoop
			}
			return runTask(cmd.Context(), opts, mode, agent.BuildPrompt(readPipedStdin(), prompt))
		},
	}
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "model override")
	cmd.Flags().StringVarP(&opts.endpoint, "endpoint", "e", "", "endpoint name")
	cmd.Flags().StringVarP(&opts.logLevel, "log-level", "L", "warn", "log level")
	cmd.Flags().BoolVar(&opts.coop, "coop", false, "interactive mode")
	return cmd
}

func buildSessionWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <id>",
		Short: "Stream a live session's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionWatch(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}
}

func runSessionWatch(ctx context.Context, out io.Writer, id string) error {
	store := sessionStore()
	if _, err := store.Load(id); err != nil {
		return err
	}
	events, err := store.Watch(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "watching session %s (interrupt to stop)\n", id)
	for ev := range events {
		if ev.Message != nil {
			printMessage(out, ev.Message)
		}
	}
	return nil
}

func buildSessionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session and all its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sessionStore().Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func buildSessionCleanCmd() *cobra.Command {
	var maxAgeDays int
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete idle sessions older than the age limit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := sessionStore().Clean(time.Duration(maxAgeDays) * 24 * time.Hour)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d, kept %d\n", len(res.Deleted), len(res.Kept))
			return nil
		},
	}
	cmd.Flags().IntVar(&maxAgeDays, "max-age", 30, "age limit in days")
	return cmd
}
