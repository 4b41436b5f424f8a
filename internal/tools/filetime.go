package tools

import (
	"os"
	"sync"
	"time"
)

// FileTimes remembers when each file was last read by the session, so
// write and edit can refuse to clobber changes made outside the agent.
type FileTimes struct {
	mu    sync.Mutex
	reads map[string]time.Time
}

// NewFileTimes creates an empty tracker.
func NewFileTimes() *FileTimes {
	return &FileTimes{reads: make(map[string]time.Time)}
}

// RecordRead notes that path was read now.
func (f *FileTimes) RecordRead(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads[path] = time.Now()
}

// WasRead reports whether the session has read path.
func (f *FileTimes) WasRead(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.reads[path]
	return ok
}

// ModifiedExternally reports whether path changed on disk after the
// session last read it. A file never read is not "externally modified";
// write decides separately whether an unread target is acceptable.
func (f *FileTimes) ModifiedExternally(path string) bool {
	f.mu.Lock()
	readAt, ok := f.reads[path]
	f.mu.Unlock()
	if !ok {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.ModTime().After(readAt)
}
