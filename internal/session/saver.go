package session

import (
	"log/slog"
	"time"

	"github.com/haasonsaas/wolo/internal/debounce"
	"github.com/haasonsaas/wolo/pkg/models"
)

// DefaultSaveDelay is the quiet period for aggregate metadata writes.
const DefaultSaveDelay = 500 * time.Millisecond

// Saver coalesces frequent session-metadata saves. Message files, todos,
// compaction records, and path confirmations are written immediately by
// the store; only session.json rides the debounce, since it is rebuilt
// from the session struct on every flush anyway.
type Saver struct {
	store   *Store
	sess    *models.Session
	batcher *debounce.Batcher[struct{}]
}

// NewSaver wires a debounced writer for one session's metadata.
func NewSaver(store *Store, sess *models.Session) *Saver {
	s := &Saver{store: store, sess: sess}
	s.batcher = debounce.New(
		debounce.WithDelay[struct{}](DefaultSaveDelay),
		debounce.WithKey[struct{}](func(struct{}) string { return sess.ID }),
		debounce.WithFlush[struct{}](func(string, []struct{}) error {
			return s.write()
		}),
		debounce.WithErrorHandler[struct{}](func(err error, _ string, _ []struct{}) {
			slog.Warn("session save failed", "session", sess.ID, "error", err)
		}),
	)
	return s
}

// Save schedules a metadata write; bursts within the quiet period collapse
// into one disk write.
func (s *Saver) Save() {
	s.sess.Touch()
	s.batcher.Add(struct{}{})
}

// Flush writes immediately. Called on error, interrupt, and normal exit.
func (s *Saver) Flush() error {
	s.batcher.FlushAll()
	return s.write()
}

// Close flushes and stops the timer.
func (s *Saver) Close() error {
	err := s.Flush()
	s.batcher.Stop()
	return err
}

func (s *Saver) write() error {
	return s.store.SaveSession(s.sess)
}
