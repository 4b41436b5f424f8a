package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/haasonsaas/wolo/internal/errdefs"
)

// ReadSpec is the file reader. Output lines carry 1-based numbering so the
// model can reference exact locations in later edits.
func ReadSpec() *Spec {
	return &Spec{
		Name:        "read",
		Description: "Read a text file with 1-based line numbers. Use offset/limit for large files.",
		Category:    "files",
		Icon:        "📄",
		Schema: mustSchema(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_path": map[string]any{
					"type":        "string",
					"description": "Path to the file to read.",
				},
				"offset": map[string]any{
					"type":        "integer",
					"description": "1-based line to start from (default: 1).",
					"minimum":     1,
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum lines to return.",
					"minimum":     1,
				},
			},
			"required": []string{"file_path"},
		}),
		Brief: func(input map[string]any) string {
			return "read " + stringParam(input, "file_path")
		},
		Handler: readHandler,
	}
}

func readHandler(_ context.Context, env *Env, input map[string]any) (*Result, error) {
	path := resolveAgainst(env.Workdir, stringParam(input, "file_path"))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errdefs.Tool("file not found: %s", path).
				WithType(errdefs.TypeFileNotFound).
				WithContext("path", path)
		}
		return nil, errdefs.WrapTool("read", err)
	}
	if isBinary(data) {
		return nil, errdefs.Tool("%s looks binary; refusing to read it as text", path).
			WithType(errdefs.TypeBinaryRefused).
			WithContext("path", path)
	}

	env.FileTimes.RecordRead(path)

	lines := strings.Split(string(data), "\n")
	offset := intParam(input, "offset")
	if offset < 1 {
		offset = 1
	}
	limit := intParam(input, "limit")
	if limit <= 0 || limit > MaxOutputLines {
		limit = MaxOutputLines
	}
	if offset > len(lines) {
		return nil, errdefs.Tool("offset %d is past the end of %s (%d lines)", offset, path, len(lines)).
			WithContext("path", path)
	}
	end := offset - 1 + limit
	if end > len(lines) {
		end = len(lines)
	}

	var sb strings.Builder
	for i := offset - 1; i < end; i++ {
		fmt.Fprintf(&sb, "%5d| %s\n", i+1, lines[i])
	}

	meta := map[string]any{
		"path":        path,
		"total_lines": len(lines),
		"offset":      offset,
		"shown":       end - offset + 1,
	}
	output := truncateOutput(strings.TrimSuffix(sb.String(), "\n"), meta)
	return &Result{
		Title:    filepath.Base(path),
		Output:   output,
		Metadata: meta,
	}, nil
}

// isBinary uses the same sniff as git: a NUL byte or invalid UTF-8 in the
// first 8000 bytes.
func isBinary(data []byte) bool {
	probe := data
	if len(probe) > 8000 {
		probe = probe[:8000]
	}
	if bytes.IndexByte(probe, 0) >= 0 {
		return true
	}
	return !utf8.Valid(probe)
}

// resolveAgainst makes path absolute relative to the working directory.
func resolveAgainst(workdir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workdir, path)
}
