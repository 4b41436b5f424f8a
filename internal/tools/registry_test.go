package tools

import (
	"context"
	"testing"

	"github.com/haasonsaas/wolo/internal/pathsafety"
	"github.com/haasonsaas/wolo/internal/session"
	"github.com/haasonsaas/wolo/pkg/models"
)

func testEnv(t *testing.T) *Env {
	t.Helper()
	work := t.TempDir()
	env := NewEnv("test-session", work)
	env.Guard = pathsafety.NewGuard(pathsafety.NewChecker(work, nil, nil), pathsafety.AutoDeny{}, nil)
	env.Store = session.NewStore(t.TempDir())
	if _, err := env.Store.Create(env.SessionID, "", "", ""); err != nil {
		t.Fatal(err)
	}
	return env
}

func mustRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := BuiltinRegistry(nil)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func runTool(t *testing.T, r *Registry, env *Env, name string, input map[string]any) *models.Part {
	t.Helper()
	part := models.NewToolPart(name, input)
	if err := r.Execute(context.Background(), env, &part); err != nil {
		t.Fatalf("%s: structural error: %v", name, err)
	}
	return &part
}

func TestRegistryUnknownTool(t *testing.T) {
	r := mustRegistry(t)
	part := runTool(t, r, testEnv(t), "frobnicate", nil)
	if part.Tool.Status != models.ToolFailed {
		t.Errorf("status = %s, want failed", part.Tool.Status)
	}
}

func TestRegistrySchemaValidation(t *testing.T) {
	r := mustRegistry(t)
	// read requires file_path.
	part := runTool(t, r, testEnv(t), "read", map[string]any{})
	if part.Tool.Status != models.ToolFailed {
		t.Errorf("status = %s, want failed", part.Tool.Status)
	}
	if part.Tool.Metadata["error"] != "invalid_parameters" {
		t.Errorf("metadata = %v", part.Tool.Metadata)
	}
}

func TestRegistryDuplicateRejected(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(ReadSpec()); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(ReadSpec()); err == nil {
		t.Error("duplicate registration succeeded")
	}
}

func TestSchemasHideQuestionInSolo(t *testing.T) {
	r := mustRegistry(t)
	has := func(entries []SchemaEntry, name string) bool {
		for _, e := range entries {
			if e.Name == name {
				return true
			}
		}
		return false
	}
	if has(r.Schemas(false), "question") {
		t.Error("question advertised in solo mode")
	}
	if !has(r.Schemas(true), "question") {
		t.Error("question missing in interactive mode")
	}
	if !has(r.Schemas(false), "read") {
		t.Error("read missing in solo mode")
	}
}

func TestExecuteSetsTiming(t *testing.T) {
	r := mustRegistry(t)
	env := testEnv(t)
	part := runTool(t, r, env, "todoread", map[string]any{})
	tp := part.Tool
	if tp.StartTime.IsZero() || tp.EndTime.IsZero() || tp.EndTime.Before(tp.StartTime) {
		t.Errorf("timing not recorded: start=%v end=%v", tp.StartTime, tp.EndTime)
	}
}
