package memory

import (
	"context"
	"testing"
)

func TestAppendAndRecent(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx := context.Background()
	if _, err := s.Append(ctx, "prefers table-driven tests", "brave-fox", []string{"style"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Append(ctx, "deploys on Fridays", "", nil); err != nil {
		t.Fatal(err)
	}

	notes, err := s.Recent(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 2 {
		t.Fatalf("len = %d, want 2", len(notes))
	}
	if notes[0].Content != "deploys on Fridays" {
		t.Errorf("newest first violated: %q", notes[0].Content)
	}
}

func TestRecentTagFilter(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx := context.Background()
	s.Append(ctx, "tagged", "", []string{"keep"})
	s.Append(ctx, "untagged", "", nil)

	notes, err := s.Recent(ctx, "keep", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 || notes[0].Content != "tagged" {
		t.Errorf("notes = %+v", notes)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s1, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	s1.Append(context.Background(), "persisted", "", nil)
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	notes, err := s2.Recent(context.Background(), "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 {
		t.Errorf("persisted notes = %d, want 1", len(notes))
	}
}
