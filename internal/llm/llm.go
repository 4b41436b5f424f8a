// Package llm adapts the session message model to OpenAI-compatible chat
// completion endpoints. It owns the outgoing message mapping, the streaming
// decode with incremental tool-call accumulation, and the error taxonomy
// for transport failures. It never retries; the agent loop decides what a
// failure means.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/wolo/internal/config"
	"github.com/haasonsaas/wolo/internal/errdefs"
	"github.com/haasonsaas/wolo/pkg/models"
)

// DefaultContextWindow is assumed when the endpoint does not declare a
// max token count.
const DefaultContextWindow = 128000

// ToolDef describes one callable tool for the model.
type ToolDef struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Request is one completion call.
type Request struct {
	SystemPrompt string
	Messages     []*models.Message
	Tools        []ToolDef
	EnableThink  bool
}

// ToolCall is a fully accumulated tool invocation from the stream, with
// its arguments already parsed.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]any
}

// Chunk is one streaming event. Exactly one of the payload fields is set;
// Done marks the last chunk of the stream.
type Chunk struct {
	Text         string
	Reasoning    string
	ToolCall     *ToolCall
	Usage        *models.TokenUsage
	FinishReason models.FinishReason
	Err          error
	Done         bool
}

// Client talks to one resolved endpoint.
type Client struct {
	api    *openai.Client
	ep     config.Endpoint
	logger *slog.Logger
}

// New builds a client for a resolved endpoint.
func New(ep *config.Endpoint, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := openai.DefaultConfig(ep.APIKey)
	if ep.APIBase != "" {
		cfg.BaseURL = strings.TrimRight(ep.APIBase, "/")
	}
	return &Client{
		api:    openai.NewClientWithConfig(cfg),
		ep:     *ep,
		logger: logger,
	}
}

// Model returns the resolved model name.
func (c *Client) Model() string {
	return c.ep.Model
}

// ContextWindow returns the model's context size for compaction math.
func (c *Client) ContextWindow() int {
	if c.ep.MaxTokens > 0 {
		return c.ep.MaxTokens
	}
	return DefaultContextWindow
}

// Complete opens a streaming completion and returns the chunk channel.
// Transport failures are returned immediately; decoding failures arrive
// as the stream's final chunk.
func (c *Client) Complete(ctx context.Context, req *Request) (<-chan *Chunk, error) {
	chatReq := c.buildRequest(req)

	stream, err := c.api.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, httpError(err)
	}

	chunks := make(chan *Chunk, 8)
	go c.processStream(ctx, stream, chunks)
	return chunks, nil
}

// Summarize satisfies the compaction engine's summarizer. It renders the
// messages as a transcript and asks the model for a plain completion.
func (c *Client) Summarize(ctx context.Context, msgs []*models.Message) (string, error) {
	transcript := renderTranscript(msgs)
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.ep.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summaryInstruction},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
	})
	if err != nil {
		return "", httpError(err)
	}
	if len(resp.Choices) == 0 {
		return "", errdefs.LLM("summary response had no choices").
			WithType(errdefs.TypeMalformedStream)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

const summaryInstruction = `Summarize the conversation transcript for your own future reference. Cover what was asked and accomplished, what is in progress, every file path that was created, read, or modified, and the immediate next steps. Be specific and concise.`

// renderTranscript flattens messages into a readable plain-text log.
func renderTranscript(msgs []*models.Message) string {
	var sb strings.Builder
	for _, m := range msgs {
		sb.WriteString(strings.ToUpper(string(m.Role)))
		sb.WriteString(": ")
		sb.WriteString(m.Text())
		sb.WriteByte('\n')
		for _, p := range m.ToolParts() {
			sb.WriteString("TOOL ")
			sb.WriteString(p.Tool.Name)
			sb.WriteString(" -> ")
			out := p.Tool.Output
			if len(out) > 2000 {
				out = out[:2000] + " [...]"
			}
			sb.WriteString(out)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// httpError classifies a transport-level failure.
func httpError(err error) error {
	e := errdefs.LLM("endpoint request failed: %v", err).
		WithType(errdefs.TypeHTTPError).
		WithCause(err)
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		e.WithContext("status_code", apiErr.HTTPStatusCode)
	}
	return e
}
