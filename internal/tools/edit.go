package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/haasonsaas/wolo/internal/errdefs"
	"github.com/haasonsaas/wolo/internal/pathsafety"
)

// EditSpec replaces one block of text in a file. Matching cascades from
// exact through whitespace-normalized to indentation-flexible, so the
// model's quoting mistakes around whitespace still land.
func EditSpec() *Spec {
	return &Spec{
		Name:        "edit",
		Description: "Replace old_text with new_text in a file. old_text must match exactly one location.",
		Category:    "files",
		Icon:        "🔧",
		WriteClass:  true,
		Schema: mustSchema(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_path": map[string]any{
					"type":        "string",
					"description": "Path to edit.",
				},
				"old_text": map[string]any{
					"type":        "string",
					"description": "Text to replace; must be unique in the file.",
				},
				"new_text": map[string]any{
					"type":        "string",
					"description": "Replacement text.",
				},
			},
			"required": []string{"file_path", "old_text", "new_text"},
		}),
		Brief: func(input map[string]any) string {
			return "edit " + stringParam(input, "file_path")
		},
		Handler: editHandler,
	}
}

func editHandler(_ context.Context, env *Env, input map[string]any) (*Result, error) {
	path := resolveAgainst(env.Workdir, stringParam(input, "file_path"))
	oldText := stringParam(input, "old_text")
	newText := stringParam(input, "new_text")
	if oldText == "" {
		return nil, errdefs.Tool("old_text must not be empty")
	}

	if env.FileTimes.ModifiedExternally(path) {
		return nil, errdefs.Tool("%s was modified outside this session since it was last read; read it again before editing", path).
			WithType(errdefs.TypeExternalModification).
			WithContext("path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errdefs.Tool("file not found: %s", path).
				WithType(errdefs.TypeFileNotFound).
				WithContext("path", path)
		}
		return nil, errdefs.WrapTool("edit", err)
	}
	content := string(data)

	updated, replacedOld, err := applyEdit(content, oldText, newText)
	if err != nil {
		if e, ok := errdefs.As(err); ok {
			e.WithContext("path", path)
		}
		return nil, err
	}

	diff, additions, deletions := renderDiff(path, replacedOld, newText)

	res, err := env.Guard.Execute(path, pathsafety.OpEdit, func() (string, map[string]any, error) {
		if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
			return "", nil, err
		}
		env.FileTimes.RecordRead(path)
		return diff, map[string]any{
			"path":      path,
			"additions": additions,
			"deletions": deletions,
		}, nil
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

// applyEdit runs the matcher cascade and returns the updated content plus
// the exact text that was replaced (which may differ from oldText when a
// relaxed matcher fired).
func applyEdit(content, oldText, newText string) (string, string, error) {
	// Stage 1: exact.
	switch strings.Count(content, oldText) {
	case 1:
		return strings.Replace(content, oldText, newText, 1), oldText, nil
	case 0:
		// fall through to relaxed matchers
	default:
		return "", "", errdefs.Tool("old_text matches multiple locations; include more surrounding context").
			WithType(errdefs.TypeMultipleMatches)
	}

	lines := strings.Split(content, "\n")
	oldLines := strings.Split(oldText, "\n")

	// Stage 2: whitespace-normalized line comparison.
	if start, count, err := findBlock(lines, oldLines, normalizeSpace); err != nil {
		return "", "", err
	} else if count == 1 {
		return spliceLines(lines, start, len(oldLines), strings.Split(newText, "\n")),
			strings.Join(lines[start:start+len(oldLines)], "\n"), nil
	}

	// Stage 3: indentation-flexible; replacement lines are re-indented to
	// the block actually found in the file.
	if start, count, err := findBlock(lines, oldLines, stripIndent); err != nil {
		return "", "", err
	} else if count == 1 {
		matched := lines[start : start+len(oldLines)]
		reindented := reindent(strings.Split(newText, "\n"), leadingIndent(oldLines[0]), leadingIndent(matched[0]))
		return spliceLines(lines, start, len(oldLines), reindented),
			strings.Join(matched, "\n"), nil
	}

	return "", "", errdefs.Tool("old_text not found in file").
		WithType(errdefs.TypeTextNotFound)
}

// findBlock slides a window over lines comparing each line through the
// canonicalizer. Returns the first match start and the match count.
func findBlock(lines, block []string, canon func(string) string) (int, int, error) {
	if len(block) == 0 || len(block) > len(lines) {
		return 0, 0, nil
	}
	start, count := -1, 0
	for i := 0; i+len(block) <= len(lines); i++ {
		match := true
		for j := range block {
			if canon(lines[i+j]) != canon(block[j]) {
				match = false
				break
			}
		}
		if match {
			count++
			if start < 0 {
				start = i
			}
		}
	}
	if count > 1 {
		return 0, 0, errdefs.Tool("old_text matches multiple locations; include more surrounding context").
			WithType(errdefs.TypeMultipleMatches)
	}
	return start, count, nil
}

func spliceLines(lines []string, start, removed int, replacement []string) string {
	out := make([]string, 0, len(lines)-removed+len(replacement))
	out = append(out, lines[:start]...)
	out = append(out, replacement...)
	out = append(out, lines[start+removed:]...)
	return strings.Join(out, "\n")
}

// normalizeSpace collapses runs of spaces and tabs inside a line while
// keeping the leading indent, so indentation mismatches fall through to
// the next matcher stage.
func normalizeSpace(line string) string {
	return leadingIndent(line) + strings.Join(strings.Fields(line), " ")
}

// stripIndent removes leading whitespace only.
func stripIndent(line string) string {
	return strings.TrimLeft(line, " \t")
}

func leadingIndent(line string) string {
	return line[:len(line)-len(stripIndent(line))]
}

// reindent shifts replacement lines from the indent the model quoted to
// the indent actually present in the file.
func reindent(lines []string, quoted, actual string) []string {
	if quoted == actual {
		return lines
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		if strings.HasPrefix(line, quoted) {
			out[i] = actual + line[len(quoted):]
		} else {
			out[i] = line
		}
	}
	return out
}

// renderDiff emits a minimal unified diff of the replaced block.
func renderDiff(path, oldBlock, newBlock string) (string, int, int) {
	oldLines := strings.Split(oldBlock, "\n")
	newLines := strings.Split(newBlock, "\n")
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n+++ %s\n@@ -%d +%d @@\n", path, path, len(oldLines), len(newLines))
	for _, l := range oldLines {
		sb.WriteString("-" + l + "\n")
	}
	for _, l := range newLines {
		sb.WriteString("+" + l + "\n")
	}
	return strings.TrimSuffix(sb.String(), "\n"), len(newLines), len(oldLines)
}
