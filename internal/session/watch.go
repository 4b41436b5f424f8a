package session

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/haasonsaas/wolo/internal/errdefs"
	"github.com/haasonsaas/wolo/pkg/models"
)

// WatchEvent is emitted when a message file appears or changes in a
// watched session.
type WatchEvent struct {
	SessionID string
	Message   *models.Message
}

// Watch streams message updates for a live session until ctx is done.
// Events arrive after the atomic rename, so every delivered message is a
// complete, parseable file.
func (s *Store) Watch(ctx context.Context, sessionID string) (<-chan WatchEvent, error) {
	if !s.Exists(sessionID) {
		return nil, errdefs.Session("session %q not found", sessionID).
			WithSession(sessionID).
			WithType(errdefs.TypeNotFound)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errdefs.Session("start watcher: %v", err).WithSession(sessionID).WithCause(err)
	}
	if err := watcher.Add(s.messagesDir(sessionID)); err != nil {
		watcher.Close()
		return nil, errdefs.Session("watch messages dir: %v", err).WithSession(sessionID).WithCause(err)
	}

	out := make(chan WatchEvent, 16)
	go func() {
		defer watcher.Close()
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				// The store writes via rename; Create fires for the final
				// name. Ignore tmp and lock files.
				if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
					continue
				}
				name := filepath.Base(ev.Name)
				if !strings.HasSuffix(name, ".json") {
					continue
				}
				msg, err := s.LoadMessage(sessionID, strings.TrimSuffix(name, ".json"))
				if err != nil {
					continue
				}
				select {
				case out <- WatchEvent{SessionID: sessionID, Message: msg}:
				case <-ctx.Done():
					return
				}
			case <-watcher.Errors:
			}
		}
	}()
	return out, nil
}
