// Package main is the wolo CLI: an AI coding agent with crash-safe
// sessions, compaction, and path-safe tool execution.
//
// Basic usage:
//
//	wolo "fix the failing test in ./parser"
//	git diff | wolo "review this change"
//	wolo chat
//	wolo session list
//
// Exit codes: 0 success, 1 general error, 2 step/token quota, 3 session
// error, 4 configuration error, 130 interrupted, 131 terminated.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/haasonsaas/wolo/internal/errdefs"
)

var version = "dev"

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if hint := errdefs.Remediation(err); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(errdefs.ExitCode(err))
	}
}
