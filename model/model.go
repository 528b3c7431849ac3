// Package model defines the Model capability (C3): a single async
// operation that turns a conversation history into one Content. Concrete
// providers (Gemini, OpenAI, Anthropic, Ollama) are reference adapters
// living in subpackages; the core never imports them directly, only this
// interface.
package model

import (
	"context"

	"github.com/flowforge/flowforge/part"
	"github.com/flowforge/flowforge/tool"
)

// Model is implemented by every concrete provider adapter. Implementations
// MUST be safe for concurrent calls from different goroutines, since
// parallel scheduler nodes may call the same Model concurrently; the core
// makes no assumption about ordering guarantees across such calls.
type Model interface {
	// GenerateContent produces one Content given a conversation history,
	// an optional generation config, and an optional tool catalog the
	// model may choose to call into.
	GenerateContent(ctx context.Context, history []part.Content, cfg *part.GenerationConfig, tools []tool.Info) (part.Content, error)
}

// Spec describes how to build or locate a Model for one workflow node,
// mirroring the YAML `model:` block of §6.
type Spec struct {
	Provider   string                 `yaml:"provider,omitempty"`
	ModelName  string                 `yaml:"model_name,omitempty"`
	Kind       string                 `yaml:"kind,omitempty"`
	Parameters map[string]interface{} `yaml:"parameters,omitempty"`
}
