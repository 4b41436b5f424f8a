package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/wolo/internal/errdefs"
	"github.com/haasonsaas/wolo/internal/taskstate"
	"github.com/haasonsaas/wolo/pkg/models"
)

// TodoWriteSpec replaces the session's todo list.
func TodoWriteSpec() *Spec {
	return &Spec{
		Name:        "todowrite",
		Description: "Replace the session todo list. At most one item may be in_progress.",
		Category:    "planning",
		Icon:        "☑️",
		Schema: mustSchema(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"todos": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"id":      map[string]any{"type": "string"},
							"content": map[string]any{"type": "string"},
							"status": map[string]any{
								"type": "string",
								"enum": []string{"pending", "in_progress", "completed", "cancelled"},
							},
							"active_form": map[string]any{"type": "string"},
						},
						"required": []string{"content", "status"},
					},
				},
			},
			"required": []string{"todos"},
		}),
		Brief: func(input map[string]any) string {
			if todos, ok := input["todos"].([]any); ok {
				return fmt.Sprintf("update todos (%d items)", len(todos))
			}
			return "update todos"
		},
		Handler: todoWriteHandler,
	}
}

func todoWriteHandler(ctx context.Context, env *Env, input map[string]any) (*Result, error) {
	raw, _ := input["todos"].([]any)
	todos := make([]models.Todo, 0, len(raw))
	inProgress := 0
	for i, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			return nil, errdefs.Tool("todo %d is not an object", i+1)
		}
		todo := models.Todo{
			ID:         stringParam(m, "id"),
			Content:    stringParam(m, "content"),
			Status:     models.TodoStatus(stringParam(m, "status")),
			ActiveForm: stringParam(m, "active_form"),
			Index:      i,
		}
		if todo.ID == "" {
			todo.ID = fmt.Sprintf("%d", i+1)
		}
		if todo.Status == models.TodoInProgress {
			inProgress++
		}
		todos = append(todos, todo)
	}
	if inProgress > 1 {
		return nil, errdefs.Tool("at most one todo may be in_progress, got %d", inProgress)
	}

	if err := env.Store.SaveTodos(env.SessionID, todos); err != nil {
		return nil, err
	}
	taskstate.FromContext(ctx).SetTodos(todos)

	return &Result{
		Title:    fmt.Sprintf("%d todos", len(todos)),
		Output:   renderTodos(todos),
		Metadata: map[string]any{"count": len(todos)},
	}, nil
}

// TodoReadSpec returns the current todo list.
func TodoReadSpec() *Spec {
	return &Spec{
		Name:        "todoread",
		Description: "Read the session todo list.",
		Category:    "planning",
		Icon:        "📋",
		Schema:      mustSchema(map[string]any{"type": "object", "properties": map[string]any{}}),
		Handler:     todoReadHandler,
	}
}

func todoReadHandler(ctx context.Context, env *Env, _ map[string]any) (*Result, error) {
	todos, ok := taskstate.FromContext(ctx).Todos()
	if !ok {
		var err error
		todos, err = env.Store.LoadTodos(env.SessionID)
		if err != nil {
			return nil, err
		}
		taskstate.FromContext(ctx).SetTodos(todos)
	}
	return &Result{
		Title:    fmt.Sprintf("%d todos", len(todos)),
		Output:   renderTodos(todos),
		Metadata: map[string]any{"count": len(todos)},
	}, nil
}

func renderTodos(todos []models.Todo) string {
	if len(todos) == 0 {
		return "(no todos)"
	}
	marks := map[models.TodoStatus]string{
		models.TodoPending:    "[ ]",
		models.TodoInProgress: "[~]",
		models.TodoCompleted:  "[x]",
		models.TodoCancelled:  "[-]",
	}
	lines := make([]string, len(todos))
	for i, t := range todos {
		lines[i] = fmt.Sprintf("%s %s", marks[t.Status], t.Content)
	}
	return strings.Join(lines, "\n")
}
