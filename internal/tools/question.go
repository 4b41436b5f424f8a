package tools

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/wolo/internal/errdefs"
)

// QuestionSpec asks the user a free-form question. Only advertised in
// coop and repl modes.
func QuestionSpec() *Spec {
	return &Spec{
		Name:            "question",
		Description:     "Ask the user a question and wait for their answer. Use when a decision genuinely needs their input.",
		Category:        "interaction",
		Icon:            "❓",
		InteractiveOnly: true,
		Schema: mustSchema(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{
					"type":        "string",
					"description": "The question to ask.",
				},
				"options": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Optional multiple-choice answers.",
				},
			},
			"required": []string{"question"},
		}),
		Brief: func(input map[string]any) string {
			return "ask: " + stringParam(input, "question")
		},
		Handler: questionHandler,
	}
}

func questionHandler(_ context.Context, env *Env, input map[string]any) (*Result, error) {
	if !env.Interactive {
		return nil, errdefs.Tool("question tool is unavailable in solo mode")
	}
	q := stringParam(input, "question")
	fmt.Fprintf(env.Stdout, "\n%s\n", q)
	if raw, ok := input["options"].([]any); ok && len(raw) > 0 {
		for i, o := range raw {
			fmt.Fprintf(env.Stdout, "  %d) %v\n", i+1, o)
		}
	}
	fmt.Fprint(env.Stdout, "> ")

	reader := bufio.NewReader(env.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return nil, errdefs.Tool("no answer received").WithCause(err)
	}
	answer := strings.TrimSpace(line)
	return &Result{
		Title:    "user answered",
		Output:   answer,
		Metadata: map[string]any{"question": q},
	}, nil
}
