// Package session is the crash-safe on-disk store for conversations. Each
// session owns a directory with one file per message; every write is
// tmp+fsync+rename under a per-file advisory lock, so a crash at any point
// leaves either the old state or the new one, never a torn file.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/wolo/internal/errdefs"
	"github.com/haasonsaas/wolo/internal/pathsafety"
	"github.com/haasonsaas/wolo/pkg/models"
)

// Store reads and writes session directories under <home>/sessions.
type Store struct {
	root string

	mu  sync.Mutex
	seq map[string]int
}

// NewStore creates a store rooted at the given Wolo home directory.
func NewStore(home string) *Store {
	return &Store{
		root: filepath.Join(home, "sessions"),
		seq:  make(map[string]int),
	}
}

// Root returns the sessions directory.
func (s *Store) Root() string { return s.root }

// Dir returns a session's directory.
func (s *Store) Dir(id string) string { return filepath.Join(s.root, id) }

func (s *Store) sessionFile(id string) string {
	return filepath.Join(s.Dir(id), "session.json")
}

func (s *Store) messagesDir(id string) string {
	return filepath.Join(s.Dir(id), "messages")
}

func (s *Store) compactionDir(id string) string {
	return filepath.Join(s.Dir(id), "compaction")
}

// Exists reports whether a session directory is present.
func (s *Store) Exists(id string) bool {
	_, err := os.Stat(s.sessionFile(id))
	return err == nil
}

// Create allocates a new session. When id is empty, a fresh slug is chosen.
func (s *Store) Create(id, title, parentID, agentType string) (*models.Session, error) {
	if id == "" {
		id = NewSlug(s.Exists)
	} else if s.Exists(id) {
		return nil, errdefs.Session("session %q already exists", id).WithSession(id)
	}
	now := time.Now()
	sess := &models.Session{
		ID:              id,
		Title:           title,
		ParentSessionID: parentID,
		AgentType:       agentType,
		CreatedAt:       now,
		UpdatedAt:       now,
		LastActivity:    now,
	}
	if err := os.MkdirAll(s.messagesDir(id), 0o755); err != nil {
		return nil, errdefs.Session("create session dir: %v", err).WithSession(id).WithCause(err)
	}
	if err := s.SaveSession(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Load reads a session's metadata.
func (s *Store) Load(id string) (*models.Session, error) {
	var sess models.Session
	if err := readJSON(s.sessionFile(id), &sess); err != nil {
		if e, ok := errdefs.As(err); ok {
			e.WithSession(id)
			if e.Type() == errdefs.TypeNotFound {
				e.Message = fmt.Sprintf("session %q not found", id)
			}
		}
		return nil, err
	}
	return &sess, nil
}

// SaveSession writes the metadata file.
func (s *Store) SaveSession(sess *models.Session) error {
	if err := writeJSONAtomic(s.sessionFile(sess.ID), sess); err != nil {
		return err
	}
	s.announceSave(sess.ID)
	return nil
}

// Delete removes the whole session directory.
func (s *Store) Delete(id string) error {
	if !s.Exists(id) {
		return errdefs.Session("session %q not found", id).
			WithSession(id).
			WithType(errdefs.TypeNotFound)
	}
	return os.RemoveAll(s.Dir(id))
}

// ListEntry is one row of a session listing.
type ListEntry struct {
	ID           string
	Title        string
	Live         bool
	PID          int
	LastActivity time.Time
	Messages     int
}

// List returns all sessions, most recently active first. Corrupted
// metadata files are skipped rather than failing the whole listing.
func (s *Store) List() ([]ListEntry, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errdefs.Session("list sessions: %v", err).WithCause(err)
	}
	var out []ListEntry
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sess, err := s.Load(e.Name())
		if err != nil {
			continue
		}
		count := 0
		if files, err := os.ReadDir(s.messagesDir(sess.ID)); err == nil {
			for _, f := range files {
				if strings.HasSuffix(f.Name(), ".json") {
					count++
				}
			}
		}
		out = append(out, ListEntry{
			ID:           sess.ID,
			Title:        sess.Title,
			Live:         sess.PID != 0 && pidRunsWolo(sess.PID),
			PID:          sess.PID,
			LastActivity: sess.LastActivity,
			Messages:     count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out, nil
}

// NewMessageID mints a message id that sorts after every id already in the
// session. The numeric prefix carries creation order; the uuid guarantees
// global uniqueness.
func (s *Store) NewMessageID(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := s.seq[sessionID]
	if !ok {
		next = s.scanMaxIndex(sessionID) + 1
	}
	s.seq[sessionID] = next + 1
	return fmt.Sprintf("%06d-%s", next, uuid.NewString())
}

func (s *Store) scanMaxIndex(sessionID string) int {
	files, err := os.ReadDir(s.messagesDir(sessionID))
	if err != nil {
		return 0
	}
	max := 0
	for _, f := range files {
		name := strings.TrimSuffix(f.Name(), ".json")
		var idx int
		if _, err := fmt.Sscanf(name, "%d-", &idx); err == nil && idx > max {
			max = idx
		}
	}
	return max
}

// SaveMessage writes one message file immediately.
func (s *Store) SaveMessage(sessionID string, msg *models.Message) error {
	if msg.ID == "" {
		return errdefs.Session("message has no id").WithSession(sessionID)
	}
	path := filepath.Join(s.messagesDir(sessionID), msg.ID+".json")
	return writeJSONAtomic(path, msg)
}

// LoadMessage reads a single message by id.
func (s *Store) LoadMessage(sessionID, messageID string) (*models.Message, error) {
	var msg models.Message
	path := filepath.Join(s.messagesDir(sessionID), messageID+".json")
	if err := readJSON(path, &msg); err != nil {
		if e, ok := errdefs.As(err); ok {
			e.WithSession(sessionID)
		}
		return nil, err
	}
	return &msg, nil
}

// LoadMessages reads every message in creation order. The id's numeric
// prefix makes lexicographic filename order the creation order.
func (s *Store) LoadMessages(sessionID string) ([]*models.Message, error) {
	files, err := os.ReadDir(s.messagesDir(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errdefs.Session("read messages: %v", err).WithSession(sessionID).WithCause(err)
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		if strings.HasSuffix(f.Name(), ".json") {
			names = append(names, f.Name())
		}
	}
	sort.Strings(names)
	out := make([]*models.Message, 0, len(names))
	for _, name := range names {
		msg, err := s.LoadMessage(sessionID, strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

// SaveTodos writes the session's todo list immediately.
func (s *Store) SaveTodos(sessionID string, todos []models.Todo) error {
	return writeJSONAtomic(filepath.Join(s.Dir(sessionID), "todos.json"), todos)
}

// LoadTodos reads the todo list; a missing file means an empty list.
func (s *Store) LoadTodos(sessionID string) ([]models.Todo, error) {
	var todos []models.Todo
	err := readJSON(filepath.Join(s.Dir(sessionID), "todos.json"), &todos)
	if errdefs.IsType(err, errdefs.TypeNotFound) {
		return nil, nil
	}
	return todos, err
}

// AppendCompactionRecord writes the record body and updates the index.
// Records are immutable once written.
func (s *Store) AppendCompactionRecord(sessionID string, rec *models.CompactionRecord) error {
	dir := s.compactionDir(sessionID)
	if err := writeJSONAtomic(filepath.Join(dir, rec.ID+".json"), rec); err != nil {
		return err
	}
	stubs, err := s.ListCompactionRecords(sessionID)
	if err != nil {
		return err
	}
	stubs = append(stubs, models.CompactionRecordStub{
		ID:        rec.ID,
		Policy:    rec.Policy,
		CreatedAt: rec.CreatedAt,
	})
	return writeJSONAtomic(filepath.Join(dir, "records.json"), stubs)
}

// ListCompactionRecords reads the lightweight index.
func (s *Store) ListCompactionRecords(sessionID string) ([]models.CompactionRecordStub, error) {
	var stubs []models.CompactionRecordStub
	err := readJSON(filepath.Join(s.compactionDir(sessionID), "records.json"), &stubs)
	if errdefs.IsType(err, errdefs.TypeNotFound) {
		return nil, nil
	}
	return stubs, err
}

// LoadCompactionRecord reads one full record body.
func (s *Store) LoadCompactionRecord(sessionID, recordID string) (*models.CompactionRecord, error) {
	var rec models.CompactionRecord
	path := filepath.Join(s.compactionDir(sessionID), recordID+".json")
	if err := readJSON(path, &rec); err != nil {
		if e, ok := errdefs.As(err); ok {
			e.WithSession(sessionID)
		}
		return nil, err
	}
	return &rec, nil
}

// SaveConfirmations persists the path-safety confirmed directories.
func (s *Store) SaveConfirmations(sessionID string, dirs []pathsafety.ConfirmedDir) error {
	return writeJSONAtomic(filepath.Join(s.Dir(sessionID), "path_confirmations.json"), dirs)
}

// LoadConfirmations restores the confirmed set; missing file means none.
func (s *Store) LoadConfirmations(sessionID string) ([]pathsafety.ConfirmedDir, error) {
	var dirs []pathsafety.ConfirmedDir
	err := readJSON(filepath.Join(s.Dir(sessionID), "path_confirmations.json"), &dirs)
	if errdefs.IsType(err, errdefs.TypeNotFound) {
		return nil, nil
	}
	return dirs, err
}
