package session

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/haasonsaas/wolo/internal/errdefs"
	"github.com/haasonsaas/wolo/internal/pathsafety"
	"github.com/haasonsaas/wolo/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir())
}

func TestCreateAndLoad(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.Create("", "fix the parser", "", "coder")
	if err != nil {
		t.Fatal(err)
	}
	if sess.ID == "" {
		t.Fatal("empty session id")
	}
	loaded, err := s.Load(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Title != "fix the parser" || loaded.AgentType != "coder" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestCreateDuplicateFails(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create("taken", "", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create("taken", "", "", ""); err == nil {
		t.Error("duplicate create succeeded")
	}
}

func TestLoadMissingSession(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load("ghost")
	if !errdefs.IsType(err, errdefs.TypeNotFound) {
		t.Errorf("want not_found, got %v", err)
	}
}

func TestLoadCorruptedSession(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.Create("", "", "", "")
	if err := os.WriteFile(s.sessionFile(sess.ID), []byte("{nope"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := s.Load(sess.ID)
	if !errdefs.IsType(err, errdefs.TypeCorrupted) {
		t.Errorf("want corrupted, got %v", err)
	}
}

func TestMessagesKeepCreationOrder(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.Create("", "", "", "")

	var ids []string
	for i, text := range []string{"first", "second", "third"} {
		msg := models.NewUserMessage(text)
		msg.ID = s.NewMessageID(sess.ID)
		ids = append(ids, msg.ID)
		if err := s.SaveMessage(sess.ID, msg); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	if !sort.StringsAreSorted(ids) {
		t.Errorf("minted ids do not sort in creation order: %v", ids)
	}

	msgs, err := s.LoadMessages(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3", len(msgs))
	}
	for i, want := range []string{"first", "second", "third"} {
		if msgs[i].Text() != want {
			t.Errorf("msg[%d] = %q, want %q", i, msgs[i].Text(), want)
		}
	}
}

func TestNewMessageIDResumesSequence(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.Create("", "", "", "")
	msg := models.NewUserMessage("one")
	msg.ID = s.NewMessageID(sess.ID)
	if err := s.SaveMessage(sess.ID, msg); err != nil {
		t.Fatal(err)
	}

	// A fresh store (new process) must mint ids after the existing ones.
	fresh := NewStore(filepath.Dir(s.Root()))
	next := fresh.NewMessageID(sess.ID)
	if next <= msg.ID {
		t.Errorf("resumed id %q does not sort after %q", next, msg.ID)
	}
}

func TestAtomicWriteLeavesNoTmp(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.Create("", "", "", "")
	msg := models.NewUserMessage("hello")
	msg.ID = s.NewMessageID(sess.ID)
	if err := s.SaveMessage(sess.ID, msg); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(s.messagesDir(sess.ID))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("stray tmp file %s", e.Name())
		}
	}
}

func TestTodosRoundTrip(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.Create("", "", "", "")

	if todos, err := s.LoadTodos(sess.ID); err != nil || todos != nil {
		t.Fatalf("fresh session todos = %v, %v", todos, err)
	}
	in := []models.Todo{
		{ID: "1", Content: "write tests", Status: models.TodoInProgress},
		{ID: "2", Content: "ship it", Status: models.TodoPending},
	}
	if err := s.SaveTodos(sess.ID, in); err != nil {
		t.Fatal(err)
	}
	out, err := s.LoadTodos(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].Status != models.TodoInProgress {
		t.Errorf("out = %+v", out)
	}
}

func TestCompactionRecordsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.Create("", "", "", "")

	rec := &models.CompactionRecord{
		ID:                  "rec-1",
		SessionID:           sess.ID,
		Policy:              models.PolicyToolPruning,
		CreatedAt:           time.Now().UTC().Truncate(time.Second),
		OriginalTokens:      90000,
		ResultTokens:        50000,
		CompactedMessageIDs: []string{"m1", "m2"},
		PreservedMessageIDs: []string{"m3"},
	}
	if err := s.AppendCompactionRecord(sess.ID, rec); err != nil {
		t.Fatal(err)
	}
	stubs, err := s.ListCompactionRecords(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stubs) != 1 || stubs[0].ID != "rec-1" || stubs[0].Policy != models.PolicyToolPruning {
		t.Fatalf("stubs = %+v", stubs)
	}
	loaded, err := s.LoadCompactionRecord(sess.ID, "rec-1")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.OriginalTokens != 90000 || len(loaded.CompactedMessageIDs) != 2 {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestConfirmationsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.Create("", "", "", "")
	in := []pathsafety.ConfirmedDir{
		{Path: "/srv/app", Count: 2, ConfirmedAt: "2026-08-24T00:00:00Z"},
	}
	if err := s.SaveConfirmations(sess.ID, in); err != nil {
		t.Fatal(err)
	}
	out, err := s.LoadConfirmations(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Path != "/srv/app" || out[0].Count != 2 {
		t.Errorf("out = %+v", out)
	}
}

func TestAcquireRelease(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.Create("", "", "", "")

	acquired, err := s.Acquire(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if acquired.PID != os.Getpid() {
		t.Errorf("pid = %d, want %d", acquired.PID, os.Getpid())
	}

	// Re-acquire by the same process is fine.
	if _, err := s.Acquire(sess.ID); err != nil {
		t.Errorf("re-acquire failed: %v", err)
	}

	if err := s.Release(sess.ID); err != nil {
		t.Fatal(err)
	}
	released, _ := s.Load(sess.ID)
	if released.PID != 0 {
		t.Errorf("pid after release = %d", released.PID)
	}
}

func TestAcquireStalePID(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.Create("", "", "", "")
	sess.PID = 999999999 // certainly dead
	if err := s.SaveSession(sess); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Acquire(sess.ID); err != nil {
		t.Errorf("stale pid not reclaimed: %v", err)
	}
}

func TestListSortsByActivity(t *testing.T) {
	s := newTestStore(t)
	old, _ := s.Create("old", "", "", "")
	old.LastActivity = time.Now().Add(-time.Hour)
	s.SaveSession(old)
	fresh, _ := s.Create("fresh", "", "", "")
	fresh.LastActivity = time.Now()
	s.SaveSession(fresh)

	entries, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].ID != "fresh" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestDeleteSession(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.Create("", "", "", "")
	if err := s.Delete(sess.ID); err != nil {
		t.Fatal(err)
	}
	if s.Exists(sess.ID) {
		t.Error("session still exists")
	}
	if err := s.Delete(sess.ID); !errdefs.IsType(err, errdefs.TypeNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestCleanPreservesRecentAndLive(t *testing.T) {
	s := newTestStore(t)
	stale, _ := s.Create("stale", "", "", "")
	stale.LastActivity = time.Now().Add(-60 * 24 * time.Hour)
	s.SaveSession(stale)
	recent, _ := s.Create("recent", "", "", "")
	recent.LastActivity = time.Now()
	s.SaveSession(recent)

	res, err := s.Clean(30 * 24 * time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Deleted) != 1 || res.Deleted[0] != "stale" {
		t.Errorf("deleted = %v", res.Deleted)
	}
	if !s.Exists("recent") {
		t.Error("recent session deleted")
	}
}

func TestSaverDebounces(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.Create("", "", "", "")
	saver := NewSaver(s, sess)
	defer saver.Close()

	sess.Title = "updated"
	saver.Save()
	saver.Save()
	if err := saver.Flush(); err != nil {
		t.Fatal(err)
	}
	loaded, err := s.Load(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Title != "updated" {
		t.Errorf("title = %q", loaded.Title)
	}
}

func TestWatchSeesNewMessages(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.Create("", "", "", "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events, err := s.Watch(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}

	msg := models.NewUserMessage("watched")
	msg.ID = s.NewMessageID(sess.ID)
	if err := s.SaveMessage(sess.ID, msg); err != nil {
		t.Fatal(err)
	}

	for ev := range events {
		if ev.Message.ID == msg.ID {
			if ev.Message.Text() != "watched" {
				t.Errorf("text = %q", ev.Message.Text())
			}
			return
		}
	}
	t.Fatal("watch closed without delivering the message")
}
