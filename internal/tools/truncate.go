package tools

import (
	"fmt"
	"strings"
)

// Output ceilings applied by every tool that can produce large text.
const (
	MaxOutputLines = 2000
	MaxOutputBytes = 50 * 1024
)

const truncationGuidance = "\n\n[output truncated; use grep to narrow results or read with offset/limit to continue]"

// truncateOutput applies the line and byte ceilings, whichever bites
// first. When truncated, metadata records the tail pointer so a follow-up
// read can resume.
func truncateOutput(output string, meta map[string]any) string {
	lines := strings.Count(output, "\n") + 1
	if len(output) <= MaxOutputBytes && lines <= MaxOutputLines {
		return output
	}

	cut := output
	cutLines := lines
	if cutLines > MaxOutputLines {
		idx := nthLineEnd(cut, MaxOutputLines)
		cut = cut[:idx]
		cutLines = MaxOutputLines
	}
	if len(cut) > MaxOutputBytes {
		cut = cut[:MaxOutputBytes]
		if idx := strings.LastIndexByte(cut, '\n'); idx > 0 {
			cut = cut[:idx]
		}
		cutLines = strings.Count(cut, "\n") + 1
	}

	meta["truncated"] = true
	meta["total_lines"] = lines
	meta["total_bytes"] = len(output)
	meta["shown_lines"] = cutLines
	return cut + fmt.Sprintf("\n\n[showing %d of %d lines]", cutLines, lines) + truncationGuidance
}

// nthLineEnd returns the byte offset just before the nth newline.
func nthLineEnd(s string, n int) int {
	count := 0
	for i, r := range s {
		if r == '\n' {
			count++
			if count == n {
				return i
			}
		}
	}
	return len(s)
}
