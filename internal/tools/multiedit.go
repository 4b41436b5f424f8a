package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/wolo/internal/errdefs"
)

// MultiEditSpec applies a list of edits in order. Each per-file step goes
// through the path guard independently; a user quit at any confirmation
// aborts the rest.
func MultiEditSpec() *Spec {
	return &Spec{
		Name:        "multiedit",
		Description: "Apply several edits in one call. Each edit is {file_path, old_text, new_text}, applied in order.",
		Category:    "files",
		Icon:        "🔧",
		WriteClass:  true,
		Schema: mustSchema(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"edits": map[string]any{
					"type":        "array",
					"minItems":    1,
					"description": "Edits to apply in order.",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"file_path": map[string]any{"type": "string"},
							"old_text":  map[string]any{"type": "string"},
							"new_text":  map[string]any{"type": "string"},
						},
						"required": []string{"file_path", "old_text", "new_text"},
					},
				},
			},
			"required": []string{"edits"},
		}),
		Brief: func(input map[string]any) string {
			if edits, ok := input["edits"].([]any); ok {
				return fmt.Sprintf("multiedit (%d edits)", len(edits))
			}
			return "multiedit"
		},
		Handler: multiEditHandler,
	}
}

func multiEditHandler(ctx context.Context, env *Env, input map[string]any) (*Result, error) {
	rawEdits, _ := input["edits"].([]any)
	if len(rawEdits) == 0 {
		return nil, errdefs.Tool("edits must not be empty")
	}

	var (
		lines      []string
		additions  int
		deletions  int
		anyFailed  bool
		anyApplied bool
	)
	for i, raw := range rawEdits {
		edit, ok := raw.(map[string]any)
		if !ok {
			return nil, errdefs.Tool("edit %d is not an object", i+1)
		}
		res, err := editHandler(ctx, env, edit)
		if err != nil {
			if errdefs.IsType(err, errdefs.TypeCancelledByUser) {
				// Quit aborts the remaining edits.
				return nil, err
			}
			e, _ := errdefs.As(err)
			msg := err.Error()
			if e != nil {
				msg = e.Message
			}
			lines = append(lines, fmt.Sprintf("%d. %s: FAILED (%s)", i+1, stringParam(edit, "file_path"), msg))
			anyFailed = true
			continue
		}
		if res.Failed {
			lines = append(lines, fmt.Sprintf("%d. %s: DENIED", i+1, stringParam(edit, "file_path")))
			anyFailed = true
			continue
		}
		additions += intFromMeta(res.Metadata, "additions")
		deletions += intFromMeta(res.Metadata, "deletions")
		anyApplied = true
		lines = append(lines, fmt.Sprintf("%d. %s: +%d -%d",
			i+1, stringParam(edit, "file_path"),
			intFromMeta(res.Metadata, "additions"),
			intFromMeta(res.Metadata, "deletions")))
	}

	meta := map[string]any{
		"edits":     len(rawEdits),
		"additions": additions,
		"deletions": deletions,
	}
	return &Result{
		Title:    fmt.Sprintf("%d edits", len(rawEdits)),
		Output:   strings.Join(lines, "\n"),
		Metadata: meta,
		Failed:   anyFailed && !anyApplied,
	}, nil
}

func intFromMeta(meta map[string]any, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
