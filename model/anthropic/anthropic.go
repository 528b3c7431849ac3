// Package anthropic is a hand-rolled net/http adapter for the Anthropic
// Messages API, grounded on the teacher's llms.AnthropicProvider.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flowforge/flowforge/model/httpclient"
	"github.com/flowforge/flowforge/part"
	"github.com/flowforge/flowforge/tool"
)

const defaultBaseURL = "https://api.anthropic.com/v1/messages"
const anthropicVersion = "2023-06-01"

type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
}

type Provider struct {
	cfg    Config
	client *httpclient.Client
}

func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	return &Provider{
		cfg:    cfg,
		client: httpclient.New(httpclient.WithHeaderParser(httpclient.ParseAnthropicRateLimitHeaders)),
	}
}

type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	Signature string          `json:"signature,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type toolDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type request struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
	Tools       []toolDef `json:"tools,omitempty"`
}

type response struct {
	Content []contentBlock `json:"content"`
}

func (p *Provider) GenerateContent(ctx context.Context, history []part.Content, cfg *part.GenerationConfig, tools []tool.Info) (part.Content, error) {
	req := request{Model: p.cfg.Model, MaxTokens: p.cfg.MaxTokens, Temperature: p.cfg.Temperature}
	if cfg != nil {
		if cfg.MaxOutputTokens != nil {
			req.MaxTokens = *cfg.MaxOutputTokens
		}
		if cfg.Temperature != nil {
			req.Temperature = *cfg.Temperature
		}
	}

	for _, c := range history {
		if c.Role == part.RoleSystem {
			if text, ok := c.FirstNonEmptyText(); ok {
				req.System = text
			}
			continue
		}
		req.Messages = append(req.Messages, toAnthropicMessage(c))
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, toolDef{Name: t.Name, Description: t.Description, InputSchema: t.Parameters})
	}

	var resp response
	headers := map[string]string{"x-api-key": p.cfg.APIKey, "anthropic-version": anthropicVersion}
	if err := p.client.PostJSON(ctx, p.cfg.BaseURL, headers, req, &resp); err != nil {
		return part.Content{}, fmt.Errorf("anthropic: %w", err)
	}

	return fromAnthropicBlocks(resp.Content), nil
}

func toAnthropicMessage(c part.Content) message {
	role := string(c.Role)
	if role == string(part.RoleModel) {
		role = "assistant"
	}
	var blocks []contentBlock
	for _, p := range part.Outbound(c) {
		switch p.Kind {
		case part.KindText:
			blocks = append(blocks, contentBlock{Type: "text", Text: p.Text})
		case part.KindToolCall:
			blocks = append(blocks, contentBlock{
				Type: "tool_use", ID: p.ToolCall.Name, Name: p.ToolCall.Name,
				Input: p.ToolCall.Args, Signature: p.ToolCall.ThoughtSignature,
			})
		case part.KindToolResponse:
			blocks = append(blocks, contentBlock{
				Type: "tool_result", ToolUseID: p.ToolResponse.Name, Content: string(p.ToolResponse.Response),
			})
		}
	}
	return message{Role: role, Content: blocks}
}

func fromAnthropicBlocks(blocks []contentBlock) part.Content {
	var parts []part.Part
	for _, b := range blocks {
		switch b.Type {
		case "thinking":
			parts = append(parts, part.Thinking(b.Thinking))
		case "text":
			parts = append(parts, part.Text(b.Text))
		case "tool_use":
			// Thought signature round-trips verbatim (L1/P5).
			parts = append(parts, part.ToolCall(b.Name, b.Input, b.Signature))
		}
	}
	return part.NewContent(part.RoleModel, parts...)
}
