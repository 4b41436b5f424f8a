// Package memory is the user-scope notes store backed by SQLite. Notes
// live outside any session so knowledge survives session cleanup.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/haasonsaas/wolo/internal/errdefs"
)

// Note is one saved memory entry.
type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store wraps the notes database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the notes database at <home>/memory.db.
func Open(home string) (*Store, error) {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, errdefs.Tool("create memory dir: %v", err).WithCause(err)
	}
	db, err := sql.Open("sqlite", filepath.Join(home, "memory.db"))
	if err != nil {
		return nil, errdefs.Tool("open memory store: %v", err).WithCause(err)
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS notes (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			tags TEXT,
			session_id TEXT,
			created_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return errdefs.Tool("init memory store: %v", err).WithCause(err)
	}
	_, err = s.db.Exec("CREATE INDEX IF NOT EXISTS idx_notes_created ON notes(created_at)")
	if err != nil {
		return errdefs.Tool("init memory store: %v", err).WithCause(err)
	}
	return nil
}

// Append saves one note.
func (s *Store) Append(ctx context.Context, content, sessionID string, tags []string) (*Note, error) {
	note := &Note{
		ID:        uuid.NewString(),
		Content:   content,
		Tags:      tags,
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
	}
	tagJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, errdefs.WrapTool("memory", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO notes (id, content, tags, session_id, created_at) VALUES (?, ?, ?, ?, ?)",
		note.ID, note.Content, string(tagJSON), note.SessionID, note.CreatedAt)
	if err != nil {
		return nil, errdefs.WrapTool("memory", err)
	}
	return note, nil
}

// Recent returns up to limit notes, newest first, optionally filtered to a
// tag.
func (s *Store) Recent(ctx context.Context, tag string, limit int) ([]Note, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content, tags, session_id, created_at FROM notes ORDER BY created_at DESC LIMIT ?",
		limit*4)
	if err != nil {
		return nil, errdefs.WrapTool("memory", err)
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		var n Note
		var tagJSON sql.NullString
		if err := rows.Scan(&n.ID, &n.Content, &tagJSON, &n.SessionID, &n.CreatedAt); err != nil {
			return nil, errdefs.WrapTool("memory", err)
		}
		if tagJSON.Valid && tagJSON.String != "" {
			_ = json.Unmarshal([]byte(tagJSON.String), &n.Tags)
		}
		if tag != "" && !hasTag(n.Tags, tag) {
			continue
		}
		out = append(out, n)
		if len(out) >= limit {
			break
		}
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}
