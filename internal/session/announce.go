package session

import (
	"net"
	"os"
	"path/filepath"
)

// announceSave pokes <session dir>/watch.sock with the session id so a
// listening watcher wakes immediately instead of waiting for fsnotify.
// Best effort: no socket, no listener, or a full buffer are all fine.
func (s *Store) announceSave(sessionID string) {
	sock := filepath.Join(s.Dir(sessionID), "watch.sock")
	if _, err := os.Stat(sock); err != nil {
		return
	}
	conn, err := net.Dial("unixgram", sock)
	if err != nil {
		return
	}
	defer conn.Close()
	conn.Write([]byte(sessionID))
}
