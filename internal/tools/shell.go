package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/haasonsaas/wolo/internal/errdefs"
)

// DefaultShellTimeout bounds shell commands that do not set their own.
const DefaultShellTimeout = 120 * time.Second

// gracePeriod between SIGTERM and SIGKILL.
const shellGracePeriod = 5 * time.Second

// ShellSpec runs a command in the working directory.
func ShellSpec() *Spec {
	return &Spec{
		Name:        "shell",
		Description: "Run a shell command in the working directory. Stdout and stderr are combined.",
		Category:    "exec",
		Icon:        "💻",
		WriteClass:  true,
		ShowOutput:  true,
		Schema: mustSchema(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{
					"type":        "string",
					"description": "Command line to run via sh -c.",
				},
				"timeout_ms": map[string]any{
					"type":        "integer",
					"description": "Timeout in milliseconds (default: 120000).",
					"minimum":     1,
				},
			},
			"required": []string{"command"},
		}),
		Brief: func(input map[string]any) string {
			cmd := stringParam(input, "command")
			if len(cmd) > 60 {
				cmd = cmd[:60] + "…"
			}
			return "$ " + cmd
		},
		Handler: shellHandler,
	}
}

func shellHandler(ctx context.Context, env *Env, input map[string]any) (*Result, error) {
	command := strings.TrimSpace(stringParam(input, "command"))
	if command == "" {
		return nil, errdefs.Tool("command must not be empty")
	}
	timeout := DefaultShellTimeout
	if ms := intParam(input, "timeout_ms"); ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}

	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = env.Workdir
	// Own process group so the whole pipeline can be signalled.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	if err := cmd.Start(); err != nil {
		return nil, errdefs.WrapTool("shell", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var waitErr error
	timedOut := false
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		terminate(cmd, done)
		return nil, errdefs.Tool("command cancelled").
			WithType(errdefs.TypeCancelledByUser).
			WithCause(ctx.Err())
	case <-timer.C:
		timedOut = true
		terminate(cmd, done)
	}

	output := buf.String()
	meta := map[string]any{"command": command}
	if cmd.ProcessState != nil {
		meta["exit_code"] = cmd.ProcessState.ExitCode()
	}
	if timedOut {
		// Output captured before the kill stays visible so the model knows
		// how far the command got.
		meta["error"] = errdefs.TypeTimeout
		meta["timeout"] = timeout.String()
		return &Result{
			Title:    "command timed out",
			Output:   truncateOutput(output+fmt.Sprintf("\n[timed out after %s]", timeout), meta),
			Metadata: meta,
			Failed:   true,
		}, nil
	}
	if waitErr != nil {
		// Non-zero exit is a normal tool outcome, not a structural error;
		// the model sees the output plus the exit status.
		meta["error"] = waitErr.Error()
		return &Result{
			Title:    "command failed",
			Output:   truncateOutput(output+fmt.Sprintf("\n[exit status: %v]", waitErr), meta),
			Metadata: meta,
			Failed:   true,
		}, nil
	}
	if output == "" {
		output = "(no output)"
	}
	return &Result{
		Title:    "command succeeded",
		Output:   truncateOutput(output, meta),
		Metadata: meta,
	}, nil
}

// terminate signals the process group with SIGTERM, then SIGKILL if it
// does not exit within the grace period.
func terminate(cmd *exec.Cmd, done <-chan error) {
	if cmd.Process == nil {
		return
	}
	pgid := -cmd.Process.Pid
	_ = syscall.Kill(pgid, syscall.SIGTERM)
	select {
	case <-done:
		return
	case <-time.After(shellGracePeriod):
	}
	_ = syscall.Kill(pgid, syscall.SIGKILL)
	<-done
}
