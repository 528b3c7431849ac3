// Package ollama is a hand-rolled net/http adapter for a local Ollama
// server's chat endpoint, grounded on the teacher's llms.OllamaProvider.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flowforge/flowforge/model/httpclient"
	"github.com/flowforge/flowforge/part"
	"github.com/flowforge/flowforge/tool"
)

const defaultHost = "http://localhost:11434"

type Config struct {
	Host        string
	Model       string
	Temperature float64
}

type Provider struct {
	cfg    Config
	client *httpclient.Client
}

func New(cfg Config) *Provider {
	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	return &Provider{cfg: cfg, client: httpclient.New(httpclient.WithMaxRetries(1))}
}

type chatMessage struct {
	Role      string          `json:"role"`
	Content   string          `json:"content,omitempty"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

type ollamaToolCall struct {
	Function struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	} `json:"function"`
}

type ollamaTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string                 `json:"name"`
		Description string                 `json:"description"`
		Parameters  map[string]interface{} `json:"parameters"`
	} `json:"function"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Tools    []ollamaTool  `json:"tools,omitempty"`
	Options  struct {
		Temperature float64 `json:"temperature,omitempty"`
	} `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

func (p *Provider) GenerateContent(ctx context.Context, history []part.Content, cfg *part.GenerationConfig, tools []tool.Info) (part.Content, error) {
	req := chatRequest{Model: p.cfg.Model, Stream: false}
	req.Options.Temperature = p.cfg.Temperature
	if cfg != nil && cfg.Temperature != nil {
		req.Options.Temperature = *cfg.Temperature
	}

	for _, c := range history {
		role := string(c.Role)
		if role == string(part.RoleModel) {
			role = "assistant"
		}
		for _, p := range part.Outbound(c) {
			if p.Kind == part.KindText {
				req.Messages = append(req.Messages, chatMessage{Role: role, Content: p.Text})
			}
		}
	}
	for _, t := range tools {
		var td ollamaTool
		td.Type = "function"
		td.Function.Name = t.Name
		td.Function.Description = t.Description
		td.Function.Parameters = t.Parameters
		req.Tools = append(req.Tools, td)
	}

	var resp chatResponse
	if err := p.client.PostJSON(ctx, p.cfg.Host+"/api/chat", nil, req, &resp); err != nil {
		return part.Content{}, fmt.Errorf("ollama: %w", err)
	}

	var parts []part.Part
	if resp.Message.Content != "" {
		parts = append(parts, part.Text(resp.Message.Content))
	}
	for _, tc := range resp.Message.ToolCalls {
		args, _ := json.Marshal(tc.Function.Arguments)
		parts = append(parts, part.ToolCall(tc.Function.Name, args, ""))
	}
	return part.NewContent(part.RoleModel, parts...), nil
}
