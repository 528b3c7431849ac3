// Package part defines the tagged-union message parts and role-tagged
// content records shared by every model provider and agent executor.
package part

import "encoding/json"

// Kind discriminates a Part's payload.
type Kind string

const (
	KindText         Kind = "text"
	KindThinking     Kind = "thinking"
	KindToolCall     Kind = "tool_call"
	KindToolResponse Kind = "tool_response"
)

// Part is one atomic element of a Content's payload. Exactly one of the
// kind-specific fields is meaningful, selected by Kind.
type Part struct {
	Kind Kind `json:"kind"`

	// Text holds the payload for KindText and KindThinking.
	Text string `json:"text,omitempty"`

	// ToolCall holds the payload for KindToolCall.
	ToolCall *ToolCallPart `json:"tool_call,omitempty"`

	// ToolResponse holds the payload for KindToolResponse.
	ToolResponse *ToolResponsePart `json:"tool_response,omitempty"`
}

// ToolCallPart is a model's request to invoke a tool.
type ToolCallPart struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`

	// ThoughtSignature is an opaque provider-supplied token. It MUST be
	// preserved verbatim on any later serialization of this part.
	ThoughtSignature string `json:"thought_signature,omitempty"`
}

// ToolResponsePart carries the result of executing a tool back to the model.
type ToolResponsePart struct {
	Name     string          `json:"name"`
	Response json.RawMessage `json:"response"`
}

// Text constructs a user-visible text part.
func Text(s string) Part { return Part{Kind: KindText, Text: s} }

// Thinking constructs an internal-reasoning part. Thinking parts are
// persisted in history but never forwarded to external model providers.
func Thinking(s string) Part { return Part{Kind: KindThinking, Text: s} }

// ToolCall constructs a tool-invocation request part.
func ToolCall(name string, args json.RawMessage, thoughtSignature string) Part {
	return Part{
		Kind: KindToolCall,
		ToolCall: &ToolCallPart{
			Name:             name,
			Args:             args,
			ThoughtSignature: thoughtSignature,
		},
	}
}

// ToolResponse constructs a tool-result part addressed back to the model.
func ToolResponse(name string, response json.RawMessage) Part {
	return Part{
		Kind: KindToolResponse,
		ToolResponse: &ToolResponsePart{
			Name:     name,
			Response: response,
		},
	}
}

// IsEmpty reports whether the part carries no content for its kind.
func (p Part) IsEmpty() bool {
	switch p.Kind {
	case KindText, KindThinking:
		return p.Text == ""
	case KindToolCall:
		return p.ToolCall == nil
	case KindToolResponse:
		return p.ToolResponse == nil
	default:
		return true
	}
}

// Role tags a Content's origin.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleModel  Role = "model"
)

// Content is a role-tagged, ordered sequence of Parts. A tool-response is
// carried in a RoleUser Content whose parts are all ToolResponse parts.
type Content struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// NewContent builds a Content from a role and parts, in the given order.
func NewContent(role Role, parts ...Part) Content {
	return Content{Role: role, Parts: parts}
}

// FirstNonEmptyText returns the first non-empty KindText part's string and
// true, or "", false if none exists.
func (c Content) FirstNonEmptyText() (string, bool) {
	for _, p := range c.Parts {
		if p.Kind == KindText && p.Text != "" {
			return p.Text, true
		}
	}
	return "", false
}

// ToolCalls returns every KindToolCall part in encountered order.
func (c Content) ToolCalls() []ToolCallPart {
	var calls []ToolCallPart
	for _, p := range c.Parts {
		if p.Kind == KindToolCall && p.ToolCall != nil {
			calls = append(calls, *p.ToolCall)
		}
	}
	return calls
}

// IsEmpty reports whether the Content carries zero parts, or only
// zero-value parts.
func (c Content) IsEmpty() bool {
	for _, p := range c.Parts {
		if !p.IsEmpty() {
			return false
		}
	}
	return true
}

// GenerationConfig is optional per-call model tuning. The core only
// forwards it to the provider; it never interprets the values.
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"max_output_tokens,omitempty"`
	TopP            *float64 `json:"top_p,omitempty"`
	TopK            *int     `json:"top_k,omitempty"`
}
