package tools

import (
	"strings"
	"testing"

	"github.com/haasonsaas/wolo/internal/skills"
	"github.com/haasonsaas/wolo/pkg/models"
)

func TestTodoWriteAndRead(t *testing.T) {
	r := mustRegistry(t)
	env := testEnv(t)

	part := runTool(t, r, env, "todowrite", map[string]any{
		"todos": []any{
			map[string]any{"content": "plan", "status": "completed"},
			map[string]any{"content": "build", "status": "in_progress"},
			map[string]any{"content": "test", "status": "pending"},
		},
	})
	if part.Tool.Status != models.ToolCompleted {
		t.Fatalf("status = %s, output = %s", part.Tool.Status, part.Tool.Output)
	}

	read := runTool(t, r, env, "todoread", map[string]any{})
	out := read.Tool.Output
	if !strings.Contains(out, "[x] plan") || !strings.Contains(out, "[~] build") || !strings.Contains(out, "[ ] test") {
		t.Errorf("output = %q", out)
	}

	// Persisted too, not just cached.
	todos, err := env.Store.LoadTodos(env.SessionID)
	if err != nil || len(todos) != 3 {
		t.Errorf("persisted todos = %v, err = %v", todos, err)
	}
}

func TestTodoWriteRejectsTwoInProgress(t *testing.T) {
	r := mustRegistry(t)
	part := runTool(t, r, testEnv(t), "todowrite", map[string]any{
		"todos": []any{
			map[string]any{"content": "a", "status": "in_progress"},
			map[string]any{"content": "b", "status": "in_progress"},
		},
	})
	if part.Tool.Status != models.ToolFailed {
		t.Error("two in_progress todos accepted")
	}
}

func TestSkillToolLoadsContent(t *testing.T) {
	available := []*skills.Skill{
		{Name: "deploy", Description: "how to deploy", Content: "run make deploy"},
	}
	r, err := BuiltinRegistry(available)
	if err != nil {
		t.Fatal(err)
	}
	env := testEnv(t)
	env.Skills = available

	spec, _ := r.Get("skill")
	if !strings.Contains(spec.Description, "- deploy: how to deploy") {
		t.Errorf("description missing skill list: %q", spec.Description)
	}

	part := runTool(t, r, env, "skill", map[string]any{"name": "deploy"})
	if part.Tool.Output != "run make deploy" {
		t.Errorf("output = %q", part.Tool.Output)
	}

	missing := runTool(t, r, env, "skill", map[string]any{"name": "ghost"})
	if missing.Tool.Status != models.ToolFailed {
		t.Error("unknown skill did not fail")
	}
}

func TestQuestionSoloUnavailable(t *testing.T) {
	r := mustRegistry(t)
	env := testEnv(t)
	env.Interactive = false
	part := runTool(t, r, env, "question", map[string]any{"question": "which db?"})
	if part.Tool.Status != models.ToolFailed {
		t.Error("question ran in solo mode")
	}
}

func TestQuestionReadsAnswer(t *testing.T) {
	r := mustRegistry(t)
	env := testEnv(t)
	env.Interactive = true
	env.Stdin = strings.NewReader("postgres\n")
	var out strings.Builder
	env.Stdout = &out

	part := runTool(t, r, env, "question", map[string]any{"question": "which db?"})
	if part.Tool.Status != models.ToolCompleted {
		t.Fatalf("status = %s, output = %s", part.Tool.Status, part.Tool.Output)
	}
	if part.Tool.Output != "postgres" {
		t.Errorf("answer = %q", part.Tool.Output)
	}
	if !strings.Contains(out.String(), "which db?") {
		t.Errorf("prompt = %q", out.String())
	}
}

func TestTruncateOutput(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < MaxOutputLines+500; i++ {
		sb.WriteString("line\n")
	}
	meta := map[string]any{}
	out := truncateOutput(sb.String(), meta)
	if meta["truncated"] != true {
		t.Fatal("not marked truncated")
	}
	if !strings.Contains(out, "use grep") {
		t.Errorf("guidance missing: %q", out[len(out)-200:])
	}
	if meta["shown_lines"].(int) > MaxOutputLines {
		t.Errorf("shown_lines = %v", meta["shown_lines"])
	}

	small := truncateOutput("tiny", map[string]any{})
	if small != "tiny" {
		t.Errorf("small output altered: %q", small)
	}
}
