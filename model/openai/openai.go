// Package openai is a hand-rolled net/http adapter for the OpenAI
// chat-completions API, grounded on the teacher's llms.OpenAIProvider
// (function-calling only, no SDK dependency).
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flowforge/flowforge/model/httpclient"
	"github.com/flowforge/flowforge/part"
	"github.com/flowforge/flowforge/tool"
)

const defaultBaseURL = "https://api.openai.com/v1/chat/completions"

// Config configures the OpenAI adapter.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// Provider implements model.Model against the OpenAI chat-completions API.
type Provider struct {
	cfg    Config
	client *httpclient.Client
}

// New builds an OpenAI provider with sane retry defaults.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Provider{
		cfg: cfg,
		client: httpclient.New(
			httpclient.WithHeaderParser(httpclient.ParseOpenAIRateLimitHeaders),
		),
	}
}

type chatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

type toolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type toolDef struct {
	Type     string `json:"type"`
	Function struct {
		Name        string                 `json:"name"`
		Description string                 `json:"description"`
		Parameters  map[string]interface{} `json:"parameters"`
	} `json:"function"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Tools       []toolDef     `json:"tools,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *Provider) GenerateContent(ctx context.Context, history []part.Content, cfg *part.GenerationConfig, tools []tool.Info) (part.Content, error) {
	req := chatRequest{
		Model:       p.cfg.Model,
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
	}
	if cfg != nil {
		if cfg.Temperature != nil {
			req.Temperature = *cfg.Temperature
		}
		if cfg.MaxOutputTokens != nil {
			req.MaxTokens = *cfg.MaxOutputTokens
		}
	}

	for _, c := range history {
		req.Messages = append(req.Messages, toOpenAIMessages(c)...)
	}
	for _, t := range tools {
		var td toolDef
		td.Type = "function"
		td.Function.Name = t.Name
		td.Function.Description = t.Description
		td.Function.Parameters = t.Parameters
		req.Tools = append(req.Tools, td)
	}

	var resp chatResponse
	headers := map[string]string{"Authorization": "Bearer " + p.cfg.APIKey}
	if err := p.client.PostJSON(ctx, p.cfg.BaseURL, headers, req, &resp); err != nil {
		return part.Content{}, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return part.Content{}, nil
	}

	return fromOpenAIMessage(resp.Choices[0].Message), nil
}

// toOpenAIMessages drops Thinking parts (per §4.1 outbound rule) and
// flattens a Content into the role-based wire format OpenAI expects.
func toOpenAIMessages(c part.Content) []chatMessage {
	role := string(c.Role)
	if role == string(part.RoleModel) {
		role = "assistant"
	}

	var toolResponses []chatMessage
	var text string
	var calls []toolCall

	for _, p := range part.Outbound(c) {
		switch p.Kind {
		case part.KindText:
			text += p.Text
		case part.KindToolCall:
			args, _ := json.Marshal(p.ToolCall.Args)
			tc := toolCall{ID: p.ToolCall.Name, Type: "function"}
			tc.Function.Name = p.ToolCall.Name
			tc.Function.Arguments = string(args)
			calls = append(calls, tc)
		case part.KindToolResponse:
			toolResponses = append(toolResponses, chatMessage{
				Role:       "tool",
				Content:    string(p.ToolResponse.Response),
				ToolCallID: p.ToolResponse.Name,
				Name:       p.ToolResponse.Name,
			})
		}
	}

	if len(toolResponses) > 0 {
		return toolResponses
	}
	return []chatMessage{{Role: role, Content: text, ToolCalls: calls}}
}

func fromOpenAIMessage(m chatMessage) part.Content {
	var parts []part.Part
	if m.Content != "" {
		parts = append(parts, part.Text(m.Content))
	}
	for _, tc := range m.ToolCalls {
		parts = append(parts, part.ToolCall(tc.Function.Name, json.RawMessage(tc.Function.Arguments), ""))
	}
	return part.NewContent(part.RoleModel, parts...)
}
