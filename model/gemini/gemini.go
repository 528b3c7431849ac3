// Package gemini implements model.Model against Google's genai SDK,
// grounded on the teacher's pkg/model/gemini.geminiModel. It is the one
// concrete provider the teacher wires end to end against a real SDK.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/flowforge/flowforge/part"
	"github.com/flowforge/flowforge/tool"
)

// Config configures the Gemini adapter.
type Config struct {
	APIKey      string
	Model       string
	Temperature float64
	TopP        float64
	TopK        float64
	MaxTokens   int
}

// Provider implements model.Model for Gemini.
type Provider struct {
	client *genai.Client
	name   string
	cfg    Config
}

// New creates a Gemini provider instance.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Provider{client: client, name: cfg.Model, cfg: cfg}, nil
}

func (p *Provider) GenerateContent(ctx context.Context, history []part.Content, cfg *part.GenerationConfig, tools []tool.Info) (part.Content, error) {
	contents, systemInstruction := p.buildRequest(history)
	config := p.buildConfig(cfg, systemInstruction, tools)

	resp, err := p.client.Models.GenerateContent(ctx, p.name, contents, config)
	if err != nil {
		return part.Content{}, fmt.Errorf("gemini: generate: %w", err)
	}
	return p.parseResponse(resp), nil
}

func (p *Provider) buildRequest(history []part.Content) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var systemInstruction *genai.Content

	for _, c := range history {
		if c.Role == part.RoleSystem {
			if text, ok := c.FirstNonEmptyText(); ok {
				systemInstruction = &genai.Content{Parts: []*genai.Part{{Text: text}}, Role: "user"}
			}
			continue
		}
		if gc := p.toGenaiContent(c); gc != nil {
			contents = append(contents, gc)
		}
	}
	return contents, systemInstruction
}

func (p *Provider) toGenaiContent(c part.Content) *genai.Content {
	var parts []*genai.Part
	for _, pt := range part.Outbound(c) {
		switch pt.Kind {
		case part.KindText:
			if pt.Text != "" {
				parts = append(parts, &genai.Part{Text: pt.Text})
			}
		case part.KindToolCall:
			var args map[string]any
			_ = json.Unmarshal(pt.ToolCall.Args, &args)
			parts = append(parts, &genai.Part{
				FunctionCall:     &genai.FunctionCall{Name: pt.ToolCall.Name, Args: args},
				ThoughtSignature: []byte(pt.ToolCall.ThoughtSignature),
			})
		case part.KindToolResponse:
			var resp map[string]any
			if err := json.Unmarshal(pt.ToolResponse.Response, &resp); err != nil {
				resp = map[string]any{"result": string(pt.ToolResponse.Response)}
			}
			parts = append(parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{Name: pt.ToolResponse.Name, Response: resp},
			})
		}
	}
	if len(parts) == 0 {
		return nil
	}
	role := "user"
	if c.Role == part.RoleModel {
		role = "model"
	}
	return &genai.Content{Parts: parts, Role: role}
}

func (p *Provider) buildConfig(cfg *part.GenerationConfig, systemInstruction *genai.Content, tools []tool.Info) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{SystemInstruction: systemInstruction}

	temperature := p.cfg.Temperature
	if cfg != nil && cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	if temperature > 0 {
		config.Temperature = genai.Ptr(float32(temperature))
	}

	maxTokens := p.cfg.MaxTokens
	if cfg != nil && cfg.MaxOutputTokens != nil {
		maxTokens = *cfg.MaxOutputTokens
	}
	if maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}

	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, t := range tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toGenaiSchema(t.Parameters),
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return config
}

func (p *Provider) parseResponse(resp *genai.GenerateContentResponse) part.Content {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return part.Content{}
	}
	candidate := resp.Candidates[0]

	var parts []part.Part
	for _, gp := range candidate.Content.Parts {
		signature := string(gp.ThoughtSignature)
		switch {
		case gp.FunctionCall != nil:
			args, _ := json.Marshal(gp.FunctionCall.Args)
			parts = append(parts, part.ToolCall(gp.FunctionCall.Name, args, signature))
		case gp.Thought:
			parts = append(parts, part.Thinking(gp.Text))
		case gp.Text != "":
			parts = append(parts, part.Text(gp.Text))
		}
	}
	return part.NewContent(part.RoleModel, parts...)
}

// toGenaiSchema narrows a JSON-schema map (as produced by invopop/jsonschema)
// to genai's *genai.Schema shape.
func toGenaiSchema(params map[string]interface{}) *genai.Schema {
	if params == nil {
		return nil
	}
	b, err := json.Marshal(params)
	if err != nil {
		return nil
	}
	var schema genai.Schema
	if err := json.Unmarshal(b, &schema); err != nil {
		return nil
	}
	return &schema
}
