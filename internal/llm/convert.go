package llm

import (
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/wolo/pkg/models"
)

// buildRequest maps a Request onto the wire format. Assistant messages
// that would violate the endpoint's well-formedness rules (no text, no
// tool calls) are dropped; each tool part becomes a separate role:tool
// message in source order, linked by the part id.
func (c *Client) buildRequest(req *Request) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:    c.ep.Model,
		Messages: toChatMessages(req),
		Stream:   true,
		StreamOptions: &openai.StreamOptions{
			IncludeUsage: true,
		},
	}
	if c.ep.Temperature > 0 {
		out.Temperature = c.ep.Temperature
	}
	if c.ep.TopP > 0 {
		out.TopP = c.ep.TopP
	}
	if len(req.Tools) > 0 {
		out.Tools = toChatTools(req.Tools)
	}
	if req.EnableThink {
		out.ChatTemplateKwargs = map[string]any{"enable_thinking": true}
	}
	return out
}

func toChatMessages(req *Request) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)

	hasSystem := len(req.Messages) > 0 && req.Messages[0].Role == models.RoleSystem
	if req.SystemPrompt != "" && !hasSystem {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case models.RoleSystem:
			result = append(result, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: msg.Text(),
			})

		case models.RoleUser:
			result = append(result, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: msg.Text(),
			})

		case models.RoleAssistant:
			if !msg.Sendable() {
				continue
			}
			oai := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Text(),
			}
			if req.EnableThink && msg.ReasoningContent != "" {
				oai.ReasoningContent = msg.ReasoningContent
			}
			toolParts := msg.ToolParts()
			for _, p := range toolParts {
				args := "{}"
				if len(p.Tool.Input) > 0 {
					if data, err := json.Marshal(p.Tool.Input); err == nil {
						args = string(data)
					}
				}
				oai.ToolCalls = append(oai.ToolCalls, openai.ToolCall{
					ID:   p.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      p.Tool.Name,
						Arguments: args,
					},
				})
			}
			result = append(result, oai)

			// One tool-result message per call, in source order.
			for _, p := range toolParts {
				result = append(result, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    p.Tool.Output,
					ToolCallID: p.ID,
				})
			}
		}
	}
	return result
}

func toChatTools(defs []ToolDef) []openai.Tool {
	result := make([]openai.Tool, len(defs))
	for i, def := range defs {
		var params map[string]any
		if err := json.Unmarshal(def.Parameters, &params); err != nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  params,
			},
		}
	}
	return result
}
