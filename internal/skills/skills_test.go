package skills

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleSkill = `---
name: code-review
description: Review diffs for common mistakes
---

# Code review

Look at {baseDir}/checklist.md first.
`

func writeSkill(t *testing.T, root, dirName, content string) {
	t.Helper()
	dir := filepath.Join(root, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, SkillFilename), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParse(t *testing.T) {
	s, err := Parse([]byte(sampleSkill), "/skills/code-review")
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "code-review" || s.Description == "" {
		t.Errorf("parsed = %+v", s)
	}
	if !strings.Contains(s.Content, "/skills/code-review/checklist.md") {
		t.Errorf("baseDir not expanded: %q", s.Content)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no frontmatter", "just markdown\n"},
		{"unclosed frontmatter", "---\nname: x\n"},
		{"missing name", "---\ndescription: d\n---\nbody\n"},
		{"missing description", "---\nname: x\n---\nbody\n"},
		{"bad name", "---\nname: Has Spaces\ndescription: d\n---\nbody\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.content), "/x"); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestDiscoverPriority(t *testing.T) {
	low := t.TempDir()
	high := t.TempDir()
	writeSkill(t, low, "review", "---\nname: review\ndescription: from low\n---\nlow body\n")
	writeSkill(t, high, "review", "---\nname: review\ndescription: from high\n---\nhigh body\n")
	writeSkill(t, low, "only-low", "---\nname: only-low\ndescription: unique\n---\nbody\n")
	writeSkill(t, low, "broken", "no frontmatter\n")

	all := Discover(low, high)
	if len(all) != 2 {
		t.Fatalf("discovered %d skills, want 2", len(all))
	}
	byName := map[string]*Skill{}
	for _, s := range all {
		byName[s.Name] = s
	}
	if byName["review"].Description != "from high" {
		t.Error("later root did not win conflict")
	}
}

func TestAvailableList(t *testing.T) {
	got := AvailableList([]*Skill{{Name: "a", Description: "first"}})
	if !strings.Contains(got, "<available_skills>") || !strings.Contains(got, "- a: first") {
		t.Errorf("list = %q", got)
	}
	empty := AvailableList(nil)
	if !strings.Contains(empty, "(none installed)") {
		t.Errorf("empty list = %q", empty)
	}
}
