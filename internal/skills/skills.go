// Package skills discovers SKILL.md documents the model can load on
// demand. Each skill is a directory containing a SKILL.md with YAML
// frontmatter (name, description) followed by the markdown body.
package skills

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SkillFilename is the expected file name inside each skill directory.
const SkillFilename = "SKILL.md"

const frontmatterDelimiter = "---"

// Skill is one parsed skill document.
type Skill struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Path        string `yaml:"-"`
	Content     string `yaml:"-"`
}

// Parse reads SKILL.md content. The frontmatter must carry name and
// description; the body becomes Content with {baseDir} expanded.
func Parse(data []byte, dir string) (*Skill, error) {
	front, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	var s Skill
	if err := yaml.Unmarshal(front, &s); err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("skill name is required")
	}
	for _, r := range s.Name {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
			return nil, fmt.Errorf("skill name must be lowercase alphanumeric with hyphens: %q", s.Name)
		}
	}
	if s.Description == "" {
		return nil, fmt.Errorf("skill description is required")
	}
	s.Path = dir
	s.Content = strings.ReplaceAll(strings.TrimSpace(string(body)), "{baseDir}", dir)
	return &s, nil
}

func splitFrontmatter(data []byte) ([]byte, []byte, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != frontmatterDelimiter {
		return nil, nil, fmt.Errorf("missing opening frontmatter delimiter")
	}
	var front []string
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == frontmatterDelimiter {
			closed = true
			break
		}
		front = append(front, line)
	}
	if !closed {
		return nil, nil, fmt.Errorf("missing closing frontmatter delimiter")
	}
	var body []string
	for scanner.Scan() {
		body = append(body, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return []byte(strings.Join(front, "\n")), []byte(strings.Join(body, "\n")), nil
}

// Discover scans skill roots in priority order; later roots win name
// conflicts. Unparseable skills are logged and skipped. Results are sorted
// by name for stable tool descriptions.
func Discover(roots ...string) []*Skill {
	byName := make(map[string]*Skill)
	for _, root := range roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			dir := filepath.Join(root, e.Name())
			data, err := os.ReadFile(filepath.Join(dir, SkillFilename))
			if err != nil {
				continue
			}
			s, err := Parse(data, dir)
			if err != nil {
				slog.Warn("skipping invalid skill", "path", dir, "error", err)
				continue
			}
			byName[s.Name] = s
		}
	}
	out := make([]*Skill, 0, len(byName))
	for _, s := range byName {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DefaultRoots returns the skill directories for a home and workspace, in
// ascending priority.
func DefaultRoots(home, workdir string) []string {
	roots := []string{filepath.Join(home, "skills")}
	if workdir != "" {
		roots = append(roots, filepath.Join(workdir, "skills"))
	}
	return roots
}

// AvailableList renders the <available_skills> block embedded in the skill
// tool's description so the model can see what exists before loading.
func AvailableList(all []*Skill) string {
	if len(all) == 0 {
		return "<available_skills>\n(none installed)\n</available_skills>"
	}
	var sb strings.Builder
	sb.WriteString("<available_skills>\n")
	for _, s := range all {
		fmt.Fprintf(&sb, "- %s: %s\n", s.Name, s.Description)
	}
	sb.WriteString("</available_skills>")
	return sb.String()
}
