package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/haasonsaas/wolo/internal/errdefs"
)

const defaultGrepResults = 100

// GrepSpec searches file contents with a regular expression.
func GrepSpec() *Spec {
	return &Spec{
		Name:        "grep",
		Description: "Search file contents with a regular expression. Results are grouped by file, newest files first.",
		Category:    "search",
		Icon:        "🔍",
		Schema: mustSchema(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pattern": map[string]any{
					"type":        "string",
					"description": "Regular expression to search for.",
				},
				"path": map[string]any{
					"type":        "string",
					"description": "Directory to search (default: working directory).",
				},
				"glob": map[string]any{
					"type":        "string",
					"description": "Restrict to files matching this glob, e.g. **/*.go.",
				},
				"max_results": map[string]any{
					"type":        "integer",
					"description": "Cap on matching lines (default: 100).",
					"minimum":     1,
				},
			},
			"required": []string{"pattern"},
		}),
		Brief: func(input map[string]any) string {
			return "grep " + stringParam(input, "pattern")
		},
		Handler: grepHandler,
	}
}

type fileMatches struct {
	path    string
	modTime time.Time
	lines   []string
}

func grepHandler(ctx context.Context, env *Env, input map[string]any) (*Result, error) {
	re, err := regexp.Compile(stringParam(input, "pattern"))
	if err != nil {
		return nil, errdefs.Tool("invalid pattern: %v", err).WithCause(err)
	}
	root := resolveAgainst(env.Workdir, stringParam(input, "path"))
	if root == "" {
		root = env.Workdir
	}
	globPat := stringParam(input, "glob")
	maxResults := intParam(input, "max_results")
	if maxResults <= 0 {
		maxResults = defaultGrepResults
	}

	var files []fileMatches
	total := 0
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		if globPat != "" {
			ok, err := doublestar.Match(globPat, filepath.ToSlash(rel))
			if err != nil || !ok {
				return nil
			}
		}
		data, err := os.ReadFile(path)
		if err != nil || isBinary(data) {
			return nil
		}
		var matched []string
		for i, line := range strings.Split(string(data), "\n") {
			if re.MatchString(line) {
				matched = append(matched, fmt.Sprintf("%s:%d: %s", rel, i+1, line))
				total++
			}
		}
		if len(matched) > 0 {
			info, _ := d.Info()
			fm := fileMatches{path: rel, lines: matched}
			if info != nil {
				fm.modTime = info.ModTime()
			}
			files = append(files, fm)
		}
		return nil
	})
	if err != nil && ctx.Err() != nil {
		return nil, errdefs.WrapTool("grep", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.After(files[j].modTime) })

	var lines []string
	for _, f := range files {
		lines = append(lines, f.lines...)
		if len(lines) >= maxResults {
			lines = lines[:maxResults]
			break
		}
	}

	meta := map[string]any{"matches": total, "shown": len(lines)}
	output := "no matches"
	if len(lines) > 0 {
		output = truncateOutput(strings.Join(lines, "\n"), meta)
	}
	return &Result{
		Title:    fmt.Sprintf("%d matches", total),
		Output:   output,
		Metadata: meta,
	}, nil
}

// GlobSpec finds files by name pattern.
func GlobSpec() *Spec {
	return &Spec{
		Name:        "glob",
		Description: "Find files matching a glob pattern such as **/*.go. Results are sorted by modification time, newest first.",
		Category:    "search",
		Icon:        "🗂",
		Schema: mustSchema(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pattern": map[string]any{
					"type":        "string",
					"description": "Glob pattern, ** matches across directories.",
				},
				"path": map[string]any{
					"type":        "string",
					"description": "Directory to search (default: working directory).",
				},
			},
			"required": []string{"pattern"},
		}),
		Brief: func(input map[string]any) string {
			return "glob " + stringParam(input, "pattern")
		},
		Handler: globHandler,
	}
}

func globHandler(_ context.Context, env *Env, input map[string]any) (*Result, error) {
	root := resolveAgainst(env.Workdir, stringParam(input, "path"))
	if root == "" {
		root = env.Workdir
	}
	pattern := stringParam(input, "pattern")
	matches, err := doublestar.Glob(os.DirFS(root), pattern)
	if err != nil {
		return nil, errdefs.Tool("invalid glob pattern: %v", err).WithCause(err)
	}

	type hit struct {
		path    string
		modTime time.Time
	}
	hits := make([]hit, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(filepath.Join(root, m))
		if err != nil || info.IsDir() {
			continue
		}
		hits = append(hits, hit{path: m, modTime: info.ModTime()})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].modTime.After(hits[j].modTime) })

	lines := make([]string, len(hits))
	for i, h := range hits {
		lines[i] = h.path
	}
	meta := map[string]any{"matches": len(lines)}
	output := "no matches"
	if len(lines) > 0 {
		output = truncateOutput(strings.Join(lines, "\n"), meta)
	}
	return &Result{
		Title:    fmt.Sprintf("%d files", len(lines)),
		Output:   output,
		Metadata: meta,
	}, nil
}

func skipDir(name string) bool {
	switch name {
	case ".git", "node_modules", ".venv", "__pycache__", "vendor":
		return true
	}
	return false
}
