package llm

import (
	"context"
	"encoding/json"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/wolo/internal/errdefs"
	"github.com/haasonsaas/wolo/pkg/models"
)

// pendingCall accumulates one tool call across stream deltas. The id and
// name arrive in the first fragment; arguments stream as JSON pieces.
type pendingCall struct {
	id   string
	name string
	args string
}

// processStream decodes the wire stream into chunks. Tool calls are keyed
// by their delta index so parallel calls interleave safely; a call is
// emitted once the finish reason arrives (or the stream ends) and its
// arguments parse as JSON.
func (c *Client) processStream(ctx context.Context, stream *openai.ChatCompletionStream, chunks chan<- *Chunk) {
	defer close(chunks)
	defer stream.Close()

	calls := make(map[int]*pendingCall)
	var order []int
	finish := models.FinishNone

	flushCalls := func() bool {
		for _, idx := range order {
			pc := calls[idx]
			if pc.id == "" || pc.name == "" {
				continue
			}
			input := map[string]any{}
			if pc.args != "" {
				if err := json.Unmarshal([]byte(pc.args), &input); err != nil {
					chunks <- &Chunk{
						Err: errdefs.LLM("tool call %s arguments are not valid JSON: %v", pc.name, err).
							WithType(errdefs.TypeToolArgParseFailed).
							WithContext("tool_name", pc.name).
							WithCause(err),
						Done: true,
					}
					return false
				}
			}
			chunks <- &Chunk{ToolCall: &ToolCall{ID: pc.id, Name: pc.name, Input: input}}
		}
		calls = make(map[int]*pendingCall)
		order = nil
		return true
	}

	for {
		select {
		case <-ctx.Done():
			chunks <- &Chunk{Err: ctx.Err(), Done: true}
			return
		default:
		}

		resp, err := stream.Recv()
		if err != nil {
			if err == io.EOF {
				// A stream that closes before any finish reason was cut off
				// mid-response; a clean Done here would pass truncated output
				// off as a complete answer.
				if finish == models.FinishNone {
					chunks <- &Chunk{
						Err: errdefs.LLM("stream ended before a finish reason").
							WithType(errdefs.TypeMalformedStream),
						Done: true,
					}
					return
				}
				if !flushCalls() {
					return
				}
				chunks <- &Chunk{FinishReason: finish, Done: true}
				return
			}
			if ctx.Err() != nil {
				chunks <- &Chunk{Err: ctx.Err(), Done: true}
				return
			}
			chunks <- &Chunk{
				Err: errdefs.LLM("stream decode failed: %v", err).
					WithType(errdefs.TypeMalformedStream).
					WithCause(err),
				Done: true,
			}
			return
		}

		if resp.Usage != nil {
			chunks <- &Chunk{Usage: &models.TokenUsage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			}}
		}
		if len(resp.Choices) == 0 {
			continue
		}
		choice := resp.Choices[0]
		delta := choice.Delta

		if delta.Content != "" {
			chunks <- &Chunk{Text: delta.Content}
		}
		if delta.ReasoningContent != "" {
			chunks <- &Chunk{Reasoning: delta.ReasoningContent}
		}

		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			pc := calls[idx]
			if pc == nil {
				pc = &pendingCall{}
				calls[idx] = pc
				order = append(order, idx)
			}
			if tc.ID != "" {
				pc.id = tc.ID
			}
			if tc.Function.Name != "" {
				pc.name = tc.Function.Name
			}
			pc.args += tc.Function.Arguments
		}

		switch choice.FinishReason {
		case openai.FinishReasonToolCalls:
			finish = models.FinishToolCalls
			if !flushCalls() {
				return
			}
		case openai.FinishReasonStop:
			finish = models.FinishStop
		case openai.FinishReasonLength:
			finish = models.FinishLength
		}
	}
}
