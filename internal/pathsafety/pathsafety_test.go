package pathsafety

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/haasonsaas/wolo/internal/errdefs"
)

func TestCheckReadAlwaysAllowed(t *testing.T) {
	c := NewChecker(t.TempDir(), nil, nil)
	d := c.Check("/etc/passwd", OpRead)
	if d.Verdict != Allowed {
		t.Errorf("read verdict = %v, want allowed", d.Verdict)
	}
}

func TestCheckWhitelistContainment(t *testing.T) {
	work := t.TempDir()
	extra := t.TempDir()
	c := NewChecker(work, []string{extra}, nil)

	tests := []struct {
		name string
		path string
		want Verdict
	}{
		{"inside workdir", filepath.Join(work, "a.txt"), Allowed},
		{"nested inside workdir", filepath.Join(work, "sub", "b.txt"), Allowed},
		{"workdir itself", work, Allowed},
		{"inside cli path", filepath.Join(extra, "c.txt"), Allowed},
		{"inside temp dir", filepath.Join(os.TempDir(), "scratch.txt"), Allowed},
		{"sibling prefix trap", work + "-evil/x.txt", NeedsConfirmation},
		{"outside everything", "/no/such/root/x.txt", NeedsConfirmation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if d := c.Check(tt.path, OpWrite); d.Verdict != tt.want {
				t.Errorf("Check(%q) = %v (%s), want %v", tt.path, d.Verdict, d.Reason, tt.want)
			}
		})
	}
}

func TestCheckResolvesSymlinks(t *testing.T) {
	work := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(work, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skip("symlinks unavailable")
	}
	c := NewChecker(work, nil, nil)
	// Path appears to live under work but resolves outside it.
	if d := c.Check(filepath.Join(link, "x.txt"), OpWrite); d.Verdict != NeedsConfirmation {
		t.Errorf("symlinked escape verdict = %v, want NeedsConfirmation", d.Verdict)
	}
}

func TestConfirmedDirsRoundTrip(t *testing.T) {
	c := NewChecker(t.TempDir(), nil, nil)
	target := t.TempDir()
	c.ConfirmDir(target, "2026-08-24T00:00:00Z")

	if d := c.Check(filepath.Join(target, "x.txt"), OpWrite); d.Verdict != Allowed {
		t.Fatalf("confirmed dir not honored: %v", d.Reason)
	}

	saved := c.ConfirmedDirs()
	fresh := NewChecker(t.TempDir(), nil, nil)
	fresh.RestoreConfirmedDirs(saved)
	if d := fresh.Check(filepath.Join(target, "x.txt"), OpWrite); d.Verdict != Allowed {
		t.Error("restored confirmed set not honored")
	}
}

func TestCLIStrategyResponses(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantOK   bool
		wantErr  bool
		confirms bool
	}{
		{"yes", "y\n", true, false, false},
		{"default yes", "\n", true, false, false},
		{"no", "n\n", false, false, false},
		{"always", "a\n", true, false, true},
		{"quit", "q\n", false, true, false},
		{"garbage", "wat\n", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewChecker(t.TempDir(), nil, nil)
			s := NewCLIStrategy(strings.NewReader(tt.input), &strings.Builder{}, checker, nil)
			target := filepath.Join(t.TempDir(), "out.txt")
			ok, err := s.Confirm(target, OpWrite)
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errdefs.IsType(err, errdefs.TypeCancelledByUser) {
				t.Errorf("quit should cancel the session, got %v", err)
			}
			if tt.confirms {
				if d := checker.Check(target, OpWrite); d.Verdict != Allowed {
					t.Error("always did not confirm the parent directory")
				}
			}
		})
	}
}

func TestCLIStrategyCap(t *testing.T) {
	checker := NewChecker(t.TempDir(), nil, nil)
	s := NewCLIStrategy(strings.NewReader(strings.Repeat("y\n", 20)), &strings.Builder{}, checker, nil)
	s.Cap = 2
	for i := 0; i < 2; i++ {
		if ok, _ := s.Confirm("/outside/x", OpWrite); !ok {
			t.Fatalf("prompt %d unexpectedly denied", i+1)
		}
	}
	if ok, _ := s.Confirm("/outside/x", OpWrite); ok {
		t.Error("cap not enforced")
	}
}

func TestGuardDenialShape(t *testing.T) {
	checker := NewChecker(t.TempDir(), nil, nil)
	g := NewGuard(checker, AutoDeny{}, nil)
	ran := false
	res, err := g.Execute("/not-allowed/x.txt", OpWrite, func() (string, map[string]any, error) {
		ran = true
		return "wrote", nil, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if ran {
		t.Error("tool ran despite denial")
	}
	if !res.Failed {
		t.Error("result not marked failed")
	}
	if res.Metadata[MetaDeniedByUser] != true {
		t.Errorf("metadata = %v, want %s", res.Metadata, MetaDeniedByUser)
	}
}

func TestGuardAllowsAndRuns(t *testing.T) {
	work := t.TempDir()
	g := NewGuard(NewChecker(work, nil, nil), AutoDeny{}, nil)
	res, err := g.Execute(filepath.Join(work, "x.txt"), OpWrite, func() (string, map[string]any, error) {
		return "done", map[string]any{"bytes": 4}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed || res.Output != "done" || res.Metadata["bytes"] != 4 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestGuardConfirmationAllowsOnce(t *testing.T) {
	g := NewGuard(NewChecker(t.TempDir(), nil, nil), AutoAllow{}, nil)
	res, err := g.Execute("/outside/y.txt", OpWrite, func() (string, map[string]any, error) {
		return "ok", nil, nil
	})
	if err != nil || res.Failed {
		t.Fatalf("confirmed write failed: res=%+v err=%v", res, err)
	}
}

func TestGuardCancellationPropagates(t *testing.T) {
	checker := NewChecker(t.TempDir(), nil, nil)
	s := NewCLIStrategy(strings.NewReader("q\n"), &strings.Builder{}, checker, nil)
	g := NewGuard(checker, s, nil)
	_, err := g.Execute("/outside/z.txt", OpWrite, func() (string, map[string]any, error) {
		return "", nil, nil
	})
	if !errdefs.IsType(err, errdefs.TypeCancelledByUser) {
		t.Errorf("want cancelled_by_user, got %v", err)
	}
}

func TestAuditLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "denied.jsonl")
	a := NewAuditLog(path, "brave-fox")
	a.Record("/x", "write", "denied by user")
	a.Record("/y", "edit", "cap exceeded")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["session_id"] != "brave-fox" || entry["path"] != "/x" {
		t.Errorf("entry = %v", entry)
	}
}
