package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/haasonsaas/wolo/internal/errdefs"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Compaction.Enabled || cfg.Compaction.OverflowThreshold != 0.9 {
		t.Errorf("defaults not applied: %+v", cfg.Compaction)
	}
	if cfg.PathSafety.MaxConfirmationsPerSession != 10 {
		t.Errorf("path safety default = %d, want 10", cfg.PathSafety.MaxConfirmationsPerSession)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
endpoints:
  - name: main
    model: gpt-4o
    api_base: https://example.test/v1
default_endpoint: main
enable_think: true
compaction:
  enabled: true
  auto_compact: false
  overflow_threshold: 0.8
  check_interval_steps: 5
  reserved_tokens: 1000
  tool_pruning:
    enabled: true
    protect_recent_turns: 3
    protect_token_threshold: 40000
    minimum_prune_tokens: 20000
    replacement_text: "[pruned]"
  summary:
    enabled: false
    recent_exchanges_to_keep: 4
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultEndpoint != "main" || !cfg.EnableThink {
		t.Errorf("top-level fields wrong: %+v", cfg)
	}
	if cfg.Compaction.AutoCompact {
		t.Error("auto_compact not overridden")
	}
	if cfg.Compaction.ToolPruning.ProtectRecentTurns != 3 {
		t.Error("nested tool_pruning not decoded")
	}
}

func TestLoadJSON5(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.json5", `{
  // comments are allowed
  endpoints: [{name: "j5", model: "gpt-4o", api_base: "https://example.test"}],
  default_endpoint: "j5",
}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultEndpoint != "j5" {
		t.Errorf("default_endpoint = %q", cfg.DefaultEndpoint)
	}
}

func TestLoadRejectsUnknownCoreKeys(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "endpointz: []\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	if !errdefs.IsKind(err, errdefs.KindConfig) {
		t.Errorf("kind = %v, want config", err)
	}
}

func TestLoadPassthroughSections(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
claude:
  anything: goes
  nested:
    deeply: true
mcp:
  servers:
    - name: fs
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Claude["anything"] != "goes" {
		t.Errorf("claude passthrough lost: %v", cfg.Claude)
	}
	if cfg.MCP["servers"] == nil {
		t.Errorf("mcp passthrough lost: %v", cfg.MCP)
	}
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("WOLO_TEST_BASE", "https://env.test/v1")
	path := writeFile(t, t.TempDir(), "config.yaml", `
endpoints:
  - name: main
    model: gpt-4o
    api_base: ${WOLO_TEST_BASE}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Endpoints[0].APIBase != "https://env.test/v1" {
		t.Errorf("env not expanded: %q", cfg.Endpoints[0].APIBase)
	}
}

func TestLoadInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "compaction.yaml", `
enabled: true
auto_compact: true
overflow_threshold: 0.75
check_interval_steps: 2
reserved_tokens: 500
tool_pruning:
  enabled: true
  protect_recent_turns: 2
  protect_token_threshold: 40000
  minimum_prune_tokens: 20000
  replacement_text: "[pruned]"
summary:
  enabled: true
  recent_exchanges_to_keep: 6
`)
	path := writeFile(t, dir, "config.yaml", `
compaction:
  $include: compaction.yaml
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Compaction.OverflowThreshold != 0.75 {
		t.Errorf("include not resolved: %+v", cfg.Compaction)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"duplicate endpoint", "endpoints:\n  - name: a\n  - name: a\n"},
		{"dangling default", "default_endpoint: ghost\n"},
		{"bad threshold", "compaction:\n  enabled: true\n  auto_compact: true\n  overflow_threshold: 1.5\n  check_interval_steps: 3\n  reserved_tokens: 0\n  tool_pruning:\n    enabled: false\n    protect_recent_turns: 0\n    protect_token_threshold: 0\n    minimum_prune_tokens: 0\n    replacement_text: x\n  summary:\n    enabled: false\n    recent_exchanges_to_keep: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", tt.content)
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestResolvePrecedence(t *testing.T) {
	cfg := Default()
	cfg.Endpoints = []Endpoint{{
		Name:    "main",
		Model:   "file-model",
		APIBase: "https://file.test/v1",
		APIKey:  "file-key",
	}}
	cfg.DefaultEndpoint = "main"

	t.Setenv("WOLO_API_KEY", "env-key")
	t.Setenv("WOLO_MODEL", "env-model")

	ep, err := cfg.Resolve(ResolveOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if ep.APIKey != "env-key" || ep.Model != "env-model" {
		t.Errorf("env should beat file: %+v", ep)
	}

	ep, err = cfg.Resolve(ResolveOptions{Model: "cli-model", APIKey: "cli-key"})
	if err != nil {
		t.Fatal(err)
	}
	if ep.APIKey != "cli-key" || ep.Model != "cli-model" {
		t.Errorf("cli should beat env: %+v", ep)
	}
}

func TestResolveMissingKey(t *testing.T) {
	t.Setenv("WOLO_API_KEY", "")
	t.Setenv("WOLO_API_BASE", "")
	cfg := Default()
	cfg.Endpoints = []Endpoint{{Name: "main", Model: "m", APIBase: "https://x"}}
	_, err := cfg.Resolve(ResolveOptions{})
	if !errdefs.IsKind(err, errdefs.KindConfig) {
		t.Errorf("want config error, got %v", err)
	}
}

func TestDocsMentionsKeySections(t *testing.T) {
	docs := Docs()
	for _, want := range []string{"endpoints:", "compaction:", "path_safety:", "WOLO_API_KEY"} {
		if !strings.Contains(docs, want) {
			t.Errorf("docs missing %q", want)
		}
	}
}
