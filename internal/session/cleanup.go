package session

import (
	"log/slog"
	"time"
)

// CleanResult summarizes a cleanup run.
type CleanResult struct {
	Deleted []string
	Kept    []string
}

// Clean deletes sessions whose last activity is older than maxAge. Live
// sessions are never touched. Message files referenced by a compaction
// record belong to the session directory, so deleting whole stale sessions
// keeps the record invariant trivially: records and their referenced
// messages disappear together, never one without the other.
func (s *Store) Clean(maxAge time.Duration) (*CleanResult, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-maxAge)
	res := &CleanResult{}
	for _, e := range entries {
		if e.Live || e.LastActivity.After(cutoff) {
			res.Kept = append(res.Kept, e.ID)
			continue
		}
		if err := s.Delete(e.ID); err != nil {
			slog.Warn("cleanup failed for session", "session", e.ID, "error", err)
			res.Kept = append(res.Kept, e.ID)
			continue
		}
		res.Deleted = append(res.Deleted, e.ID)
	}
	return res, nil
}
