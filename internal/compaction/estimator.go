// Package compaction shrinks a conversation that is about to overflow the
// model's context window. Strategies produce a compacted view for the next
// LLM call plus an immutable CompactionRecord; message files on disk are
// never rewritten.
package compaction

import (
	"encoding/json"

	"github.com/haasonsaas/wolo/pkg/models"
)

// Estimation constants. No tokenizer dependency: 4 chars per token for
// most text, 1.5 for CJK ideographs, plus fixed per-message and
// per-tool-call overheads.
const (
	charsPerToken    = 4.0
	cjkCharsPerToken = 1.5
	messageOverhead  = 10
	toolCallOverhead = 20
)

// EstimateText returns the heuristic token count for a string.
func EstimateText(s string) int {
	cjk := 0
	other := 0
	for _, r := range s {
		if r >= 0x4E00 && r <= 0x9FFF {
			cjk++
		} else {
			other++
		}
	}
	tokens := float64(other)/charsPerToken + float64(cjk)/cjkCharsPerToken
	return int(tokens + 0.999)
}

// EstimateToolPart counts a tool call: overhead plus serialized input plus
// output.
func EstimateToolPart(tp *models.ToolPart) int {
	tokens := toolCallOverhead
	if len(tp.Input) > 0 {
		if data, err := json.Marshal(tp.Input); err == nil {
			tokens += EstimateText(string(data))
		}
	}
	tokens += EstimateText(tp.Output)
	return tokens
}

// EstimateMessage counts one message.
func EstimateMessage(m *models.Message) int {
	tokens := messageOverhead
	for i := range m.Parts {
		p := &m.Parts[i]
		switch p.Type {
		case models.PartTypeText:
			tokens += EstimateText(p.Text)
		case models.PartTypeTool:
			if p.Tool != nil {
				tokens += EstimateToolPart(p.Tool)
			}
		}
	}
	tokens += EstimateText(m.ReasoningContent)
	return tokens
}

// EstimateMessages counts a whole window.
func EstimateMessages(msgs []*models.Message) int {
	total := 0
	for _, m := range msgs {
		total += EstimateMessage(m)
	}
	return total
}

// EffectiveTokens prefers the model-reported prompt size when available
// and falls back to the heuristic.
func EffectiveTokens(msgs []*models.Message, reported int) int {
	if reported > 0 {
		return reported
	}
	return EstimateMessages(msgs)
}
