package agent

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
)

// readOnlyTools never count toward doom-loop detection; repeating them is
// how the model explores.
var readOnlyTools = map[string]bool{
	"read":     true,
	"grep":     true,
	"glob":     true,
	"todoread": true,
	"skill":    true,
}

// safeShellPrefixes are shell commands treated as read-only.
var safeShellPrefixes = []string{
	"ls",
	"cat",
	"echo",
	"pwd",
	"git status",
	"git diff",
	"git log",
	"python3 -m py_compile",
}

// isReadOnlyCall reports whether a dispatch is exempt from doom tracking.
func isReadOnlyCall(name string, input map[string]any) bool {
	if readOnlyTools[name] {
		return true
	}
	if name != "shell" {
		return false
	}
	cmd, _ := input["command"].(string)
	cmd = strings.TrimSpace(cmd)
	for _, prefix := range safeShellPrefixes {
		if cmd == prefix || strings.HasPrefix(cmd, prefix+" ") {
			return true
		}
	}
	return false
}

// inputHash produces a stable FNV-1a hash of a tool input. Keys are
// canonicalized by sorting so map iteration order cannot change the hash.
func inputHash(input map[string]any) uint64 {
	h := fnv.New64a()
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		data, err := json.Marshal(input[k])
		if err != nil {
			fmt.Fprintf(h, "%v", input[k])
		} else {
			h.Write(data)
		}
		h.Write([]byte{0})
	}
	return h.Sum64()
}
