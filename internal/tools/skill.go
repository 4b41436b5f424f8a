package tools

import (
	"context"
	"fmt"

	"github.com/haasonsaas/wolo/internal/errdefs"
	"github.com/haasonsaas/wolo/internal/skills"
)

// SkillSpec loads a named skill document. The description embeds the
// discovered skill list so the model knows what it can ask for.
func SkillSpec(available []*skills.Skill) *Spec {
	return &Spec{
		Name: "skill",
		Description: "Load a skill document by name. Skills extend your abilities with project-specific instructions.\n\n" +
			skills.AvailableList(available),
		Category: "knowledge",
		Icon:     "🎓",
		Schema: mustSchema(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "Skill name from the available_skills list.",
				},
			},
			"required": []string{"name"},
		}),
		Brief: func(input map[string]any) string {
			return "skill " + stringParam(input, "name")
		},
		Handler: skillHandler,
	}
}

func skillHandler(_ context.Context, env *Env, input map[string]any) (*Result, error) {
	name := stringParam(input, "name")
	for _, s := range env.Skills {
		if s.Name == name {
			return &Result{
				Title:    name,
				Output:   s.Content,
				Metadata: map[string]any{"skill": name, "path": s.Path},
			}, nil
		}
	}
	return nil, errdefs.Tool("no skill named %q; see the available_skills list in the tool description", name).
		WithType(errdefs.TypeNotFound).
		WithContext("skill", name)
}

// MemorySpec appends a note to the user-scope memory store.
func MemorySpec() *Spec {
	return &Spec{
		Name:        "memory",
		Description: "Save a note to persistent memory. Notes survive across sessions.",
		Category:    "knowledge",
		Icon:        "🧠",
		Schema: mustSchema(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"content": map[string]any{
					"type":        "string",
					"description": "The note to remember.",
				},
				"tags": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Optional labels for later retrieval.",
				},
			},
			"required": []string{"content"},
		}),
		Brief: func(input map[string]any) string {
			return "remember note"
		},
		Handler: memoryHandler,
	}
}

func memoryHandler(ctx context.Context, env *Env, input map[string]any) (*Result, error) {
	if env.Memory == nil {
		return nil, errdefs.Tool("memory store unavailable")
	}
	content := stringParam(input, "content")
	var tags []string
	if raw, ok := input["tags"].([]any); ok {
		for _, t := range raw {
			if s, ok := t.(string); ok {
				tags = append(tags, s)
			}
		}
	}
	note, err := env.Memory.Append(ctx, content, env.SessionID, tags)
	if err != nil {
		return nil, err
	}
	return &Result{
		Title:    "note saved",
		Output:   fmt.Sprintf("Saved note %s.", note.ID),
		Metadata: map[string]any{"note_id": note.ID},
	}, nil
}
