// Package tool defines the uniform Tool capability and the process-local
// concurrent ToolRegistry, grounded on the teacher's tools.Tool /
// tools.ToolRegistry shape but trimmed to C2's single-source contract.
package tool

import (
	"context"
	"encoding/json"
)

// Tool is an external side-effecting capability with a JSON-schema
// described argument shape.
type Tool interface {
	// Name returns the tool's unique name.
	Name() string

	// Description returns a human-readable description for prompting.
	Description() string

	// Parameters returns the JSON-schema object describing Execute's args.
	Parameters() map[string]interface{}

	// Execute runs the tool. It must not panic; any failure is returned as
	// an error, which the caller (the turn loop) converts into a
	// {"error": "<msg>"} JSON response addressed back to the model.
	Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}

// Info is the metadata view of a Tool, used for advertising the catalog
// to a model call and for registry listings.
type Info struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// InfoOf extracts the Info view of a Tool.
func InfoOf(t Tool) Info {
	return Info{Name: t.Name(), Description: t.Description(), Parameters: t.Parameters()}
}

// errorResponse is the JSON payload wrapped into a ToolResponse part when
// dispatch fails, per §4.4: `{"error": "<msg>"}`.
func errorResponse(msg string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return b
}

// ErrorResponse is the exported form of errorResponse, used by agent
// executors building a ToolResponse part from a dispatch failure.
func ErrorResponse(msg string) json.RawMessage { return errorResponse(msg) }
