package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/haasonsaas/wolo/internal/errdefs"
	"github.com/haasonsaas/wolo/internal/pathsafety"
)

// WriteSpec creates or overwrites a file, guarded by the path whitelist
// and the external-modification check.
func WriteSpec() *Spec {
	return &Spec{
		Name:        "write",
		Description: "Create or overwrite a file with the given content.",
		Category:    "files",
		Icon:        "✏️",
		WriteClass:  true,
		Schema: mustSchema(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_path": map[string]any{
					"type":        "string",
					"description": "Path to write.",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Full file content.",
				},
			},
			"required": []string{"file_path", "content"},
		}),
		Brief: func(input map[string]any) string {
			return "write " + stringParam(input, "file_path")
		},
		Handler: writeHandler,
	}
}

func writeHandler(_ context.Context, env *Env, input map[string]any) (*Result, error) {
	path := resolveAgainst(env.Workdir, stringParam(input, "file_path"))
	content := stringParam(input, "content")

	if env.FileTimes.ModifiedExternally(path) {
		return nil, errdefs.Tool("%s was modified outside this session since it was last read; read it again before writing", path).
			WithType(errdefs.TypeExternalModification).
			WithContext("path", path)
	}

	res, err := env.Guard.Execute(path, pathsafety.OpWrite, func() (string, map[string]any, error) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", nil, err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return "", nil, err
		}
		env.FileTimes.RecordRead(path)
		return fmt.Sprintf("Wrote %d bytes to %s", len(content), path),
			map[string]any{"path": path, "bytes": len(content)}, nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		Title:    filepath.Base(path),
		Output:   res.Output,
		Metadata: res.Metadata,
		Failed:   res.Failed,
	}, nil
}
