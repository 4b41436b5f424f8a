package session

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/haasonsaas/wolo/internal/errdefs"
)

// writeFileAtomic writes data to path via tmp+fsync+rename, holding an
// exclusive advisory lock on a sibling .lock file for the whole sequence.
// A concurrent reader sees either the old file or the complete new one.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return errdefs.Session("lock %s: %v", path, err).
			WithType(errdefs.TypeConcurrentWriter).
			WithCause(err)
	}
	defer lock.Unlock()

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// writeJSONAtomic marshals v with 2-space indent and writes it atomically.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// readJSON loads path into v, mapping failures onto the session taxonomy.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errdefs.Session("%s does not exist", path).
				WithType(errdefs.TypeNotFound).
				WithCause(err)
		}
		return errdefs.Session("read %s: %v", path, err).WithCause(err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errdefs.Session("corrupted file %s: %v", path, err).
			WithType(errdefs.TypeCorrupted).
			WithCause(err)
	}
	return nil
}
