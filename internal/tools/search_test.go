package tools

import (
	"strings"
	"testing"

	"github.com/haasonsaas/wolo/pkg/models"
)

func TestGrepFindsMatches(t *testing.T) {
	r := mustRegistry(t)
	env := testEnv(t)
	writeWorkFile(t, env, "a.go", "package main\nfunc Alpha() {}\n")
	writeWorkFile(t, env, "sub/b.go", "package sub\nfunc Beta() {}\n")
	writeWorkFile(t, env, "c.txt", "no functions here\n")

	part := runTool(t, r, env, "grep", map[string]any{"pattern": `func \w+\(\)`})
	if part.Tool.Status != models.ToolCompleted {
		t.Fatalf("status = %s, output = %s", part.Tool.Status, part.Tool.Output)
	}
	out := part.Tool.Output
	if !strings.Contains(out, "a.go:2") || !strings.Contains(out, "Beta") {
		t.Errorf("output = %q", out)
	}
	if part.Tool.Metadata["matches"] != 2 {
		t.Errorf("matches = %v", part.Tool.Metadata["matches"])
	}
}

func TestGrepGlobFilter(t *testing.T) {
	r := mustRegistry(t)
	env := testEnv(t)
	writeWorkFile(t, env, "a.go", "needle\n")
	writeWorkFile(t, env, "a.txt", "needle\n")

	part := runTool(t, r, env, "grep", map[string]any{
		"pattern": "needle", "glob": "**/*.go",
	})
	out := part.Tool.Output
	if !strings.Contains(out, "a.go") || strings.Contains(out, "a.txt") {
		t.Errorf("output = %q", out)
	}
}

func TestGrepInvalidPattern(t *testing.T) {
	r := mustRegistry(t)
	part := runTool(t, r, testEnv(t), "grep", map[string]any{"pattern": "[unclosed"})
	if part.Tool.Status != models.ToolFailed {
		t.Error("invalid regex did not fail")
	}
}

func TestGrepNoMatches(t *testing.T) {
	r := mustRegistry(t)
	env := testEnv(t)
	writeWorkFile(t, env, "a.txt", "nothing\n")
	part := runTool(t, r, env, "grep", map[string]any{"pattern": "zzz-absent"})
	if part.Tool.Output != "no matches" {
		t.Errorf("output = %q", part.Tool.Output)
	}
}

func TestGlobFindsFiles(t *testing.T) {
	r := mustRegistry(t)
	env := testEnv(t)
	writeWorkFile(t, env, "x/deep/file.go", "package deep\n")
	writeWorkFile(t, env, "top.go", "package top\n")
	writeWorkFile(t, env, "other.txt", "text\n")

	part := runTool(t, r, env, "glob", map[string]any{"pattern": "**/*.go"})
	out := part.Tool.Output
	if !strings.Contains(out, "x/deep/file.go") || !strings.Contains(out, "top.go") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "other.txt") {
		t.Errorf("glob leaked non-matching file: %q", out)
	}
}
