package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/wolo/internal/config"
	"github.com/haasonsaas/wolo/internal/errdefs"
	"github.com/haasonsaas/wolo/pkg/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(&config.Endpoint{
		Name:    "test",
		Model:   "test-model",
		APIBase: srv.URL,
		APIKey:  "test-key",
	}, nil)
}

func sseHandler(events ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, ev := range events {
			fmt.Fprintf(w, "data: %s\n\n", ev)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func collect(t *testing.T, chunks <-chan *Chunk) []*Chunk {
	t.Helper()
	var out []*Chunk
	for c := range chunks {
		out = append(out, c)
	}
	return out
}

func assistantWithTool(text, toolName, output string) *models.Message {
	m := models.NewMessage(models.RoleAssistant)
	if text != "" {
		m.AppendText(text)
	}
	part := models.NewToolPart(toolName, map[string]any{"file_path": "main.go"})
	part.Tool.Output = output
	part.Tool.Status = models.ToolCompleted
	m.Parts = append(m.Parts, part)
	m.Finished = true
	return m
}

func TestToChatMessagesPrependsSystemPrompt(t *testing.T) {
	req := &Request{
		SystemPrompt: "you are wolo",
		Messages:     []*models.Message{models.NewUserMessage("hi")},
	}
	msgs := toChatMessages(req)
	if len(msgs) != 2 || msgs[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("messages = %+v", msgs)
	}
	if msgs[0].Content != "you are wolo" {
		t.Errorf("system = %q", msgs[0].Content)
	}

	// An explicit leading system message wins over the prompt.
	sys := models.NewMessage(models.RoleSystem)
	sys.AppendText("custom")
	req.Messages = append([]*models.Message{sys}, req.Messages...)
	msgs = toChatMessages(req)
	if len(msgs) != 2 || msgs[0].Content != "custom" {
		t.Errorf("custom system lost: %+v", msgs)
	}
}

func TestToChatMessagesToolResults(t *testing.T) {
	assistant := assistantWithTool("checking", "read", "package main")
	req := &Request{Messages: []*models.Message{
		models.NewUserMessage("what's in main.go?"),
		assistant,
	}}
	msgs := toChatMessages(req)
	if len(msgs) != 3 {
		t.Fatalf("len = %d: %+v", len(msgs), msgs)
	}
	as := msgs[1]
	if as.Role != openai.ChatMessageRoleAssistant || len(as.ToolCalls) != 1 {
		t.Fatalf("assistant = %+v", as)
	}
	callID := as.ToolCalls[0].ID
	if callID != assistant.ToolParts()[0].ID {
		t.Errorf("tool_call id = %q", callID)
	}
	if !strings.Contains(as.ToolCalls[0].Function.Arguments, "main.go") {
		t.Errorf("arguments = %q", as.ToolCalls[0].Function.Arguments)
	}
	tr := msgs[2]
	if tr.Role != openai.ChatMessageRoleTool || tr.ToolCallID != callID || tr.Content != "package main" {
		t.Errorf("tool result = %+v", tr)
	}
}

func TestToChatMessagesDropsUnsendableAssistant(t *testing.T) {
	empty := models.NewMessage(models.RoleAssistant)
	req := &Request{Messages: []*models.Message{
		models.NewUserMessage("hi"),
		empty,
		models.NewUserMessage("still there?"),
	}}
	msgs := toChatMessages(req)
	if len(msgs) != 2 {
		t.Errorf("empty assistant not dropped: %+v", msgs)
	}
}

func TestToChatMessagesReasoningGatedByThink(t *testing.T) {
	assistant := assistantWithTool("", "read", "x")
	assistant.ReasoningContent = "thinking hard"
	req := &Request{Messages: []*models.Message{assistant}}

	msgs := toChatMessages(req)
	if msgs[0].ReasoningContent != "" {
		t.Error("reasoning sent with think disabled")
	}

	req.EnableThink = true
	msgs = toChatMessages(req)
	if msgs[0].ReasoningContent != "thinking hard" {
		t.Errorf("reasoning = %q", msgs[0].ReasoningContent)
	}
}

func TestToChatToolsBadSchemaFallsBack(t *testing.T) {
	tools := toChatTools([]ToolDef{
		{Name: "good", Parameters: json.RawMessage(`{"type":"object"}`)},
		{Name: "bad", Parameters: json.RawMessage(`{broken`)},
	})
	params := tools[1].Function.Parameters.(map[string]any)
	if params["type"] != "object" {
		t.Errorf("fallback schema = %v", params)
	}
}

func TestStreamTextAndUsage(t *testing.T) {
	c := newTestClient(t, sseHandler(
		`{"choices":[{"index":0,"delta":{"content":"hel"}}]}`,
		`{"choices":[{"index":0,"delta":{"content":"lo"}}]}`,
		`{"choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		`{"choices":[],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`,
	))
	chunks, err := c.Complete(context.Background(), &Request{
		Messages: []*models.Message{models.NewUserMessage("hi")},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := collect(t, chunks)

	var text strings.Builder
	var usage *models.TokenUsage
	last := got[len(got)-1]
	for _, ch := range got {
		text.WriteString(ch.Text)
		if ch.Usage != nil {
			usage = ch.Usage
		}
	}
	if text.String() != "hello" {
		t.Errorf("text = %q", text.String())
	}
	if usage == nil || usage.TotalTokens != 15 {
		t.Errorf("usage = %+v", usage)
	}
	if !last.Done || last.FinishReason != models.FinishStop {
		t.Errorf("last = %+v", last)
	}
}

func TestStreamAccumulatesToolCallFragments(t *testing.T) {
	c := newTestClient(t, sseHandler(
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"read","arguments":"{\"file_"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"path\":\"a.go\"}"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
	))
	chunks, err := c.Complete(context.Background(), &Request{
		Messages: []*models.Message{models.NewUserMessage("read a.go")},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := collect(t, chunks)

	var call *ToolCall
	for _, ch := range got {
		if ch.ToolCall != nil {
			call = ch.ToolCall
		}
	}
	if call == nil {
		t.Fatal("no tool call emitted")
	}
	if call.ID != "call_1" || call.Name != "read" {
		t.Errorf("call = %+v", call)
	}
	if call.Input["file_path"] != "a.go" {
		t.Errorf("input = %v", call.Input)
	}
	if last := got[len(got)-1]; last.FinishReason != models.FinishToolCalls {
		t.Errorf("finish = %q", last.FinishReason)
	}
}

func TestStreamBadToolArguments(t *testing.T) {
	c := newTestClient(t, sseHandler(
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"read","arguments":"{not json"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
	))
	chunks, err := c.Complete(context.Background(), &Request{
		Messages: []*models.Message{models.NewUserMessage("go")},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := collect(t, chunks)
	last := got[len(got)-1]
	if last.Err == nil || !errdefs.IsType(last.Err, errdefs.TypeToolArgParseFailed) {
		t.Errorf("err = %v", last.Err)
	}
}

func TestStreamTruncatedBeforeFinish(t *testing.T) {
	// The server closes the stream without ever sending a finish reason.
	c := newTestClient(t, sseHandler(
		`{"choices":[{"index":0,"delta":{"content":"partial ans"}}]}`,
	))
	chunks, err := c.Complete(context.Background(), &Request{
		Messages: []*models.Message{models.NewUserMessage("hi")},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := collect(t, chunks)
	last := got[len(got)-1]
	if last.Err == nil || !errdefs.IsType(last.Err, errdefs.TypeMalformedStream) {
		t.Errorf("err = %v, want malformed_stream", last.Err)
	}
	if !last.Done {
		t.Error("error chunk not marked done")
	}
}

func TestStreamMalformedPayload(t *testing.T) {
	c := newTestClient(t, sseHandler(`{"choices": garbage`))
	chunks, err := c.Complete(context.Background(), &Request{
		Messages: []*models.Message{models.NewUserMessage("hi")},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := collect(t, chunks)
	last := got[len(got)-1]
	if last.Err == nil || !errdefs.IsType(last.Err, errdefs.TypeMalformedStream) {
		t.Errorf("err = %v", last.Err)
	}
}

func TestCompleteHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	})
	_, err := c.Complete(context.Background(), &Request{
		Messages: []*models.Message{models.NewUserMessage("hi")},
	})
	if err == nil || !errdefs.IsType(err, errdefs.TypeHTTPError) {
		t.Fatalf("err = %v", err)
	}
	if !errdefs.IsKind(err, errdefs.KindLLM) {
		t.Errorf("kind wrong: %v", err)
	}
}

func TestSummarize(t *testing.T) {
	var gotBody []byte
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotBody = make([]byte, r.ContentLength)
		r.Body.Read(gotBody)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":" the summary "}}]}`)
	})
	text, err := c.Summarize(context.Background(), []*models.Message{
		models.NewUserMessage("fix the parser"),
		assistantWithTool("done", "edit", "+1 -1"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if text != "the summary" {
		t.Errorf("summary = %q", text)
	}
	if !strings.Contains(string(gotBody), "fix the parser") {
		t.Error("transcript missing user text")
	}
}

func TestContextWindowDefault(t *testing.T) {
	c := New(&config.Endpoint{Name: "x", Model: "m", APIKey: "k"}, nil)
	if c.ContextWindow() != DefaultContextWindow {
		t.Errorf("window = %d", c.ContextWindow())
	}
	c = New(&config.Endpoint{Name: "x", Model: "m", APIKey: "k", MaxTokens: 4096}, nil)
	if c.ContextWindow() != 4096 {
		t.Errorf("window = %d", c.ContextWindow())
	}
}
