package builtin

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/flowforge/flowforge/tool"
)

// EchoTool returns its input args back as its result. Useful as a
// zero-dependency smoke-test tool for workflows and builder wiring.
type EchoTool struct{}

// EchoArgs is the JSON-schema-described argument shape for EchoTool.
type EchoArgs struct {
	Message string `json:"message" jsonschema:"required,description=text to echo back"`
}

func NewEchoTool() *EchoTool { return &EchoTool{} }

func (t *EchoTool) Name() string        { return "echo" }
func (t *EchoTool) Description() string { return "Echoes the given message back." }

func (t *EchoTool) Parameters() map[string]interface{} {
	schema := jsonschema.Reflect(&EchoArgs{})
	b, _ := json.Marshal(schema)
	var m map[string]interface{}
	_ = json.Unmarshal(b, &m)
	return m
}

func (t *EchoTool) Execute(_ context.Context, rawArgs json.RawMessage) (json.RawMessage, error) {
	var args EchoArgs
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"message": args.Message})
}

var _ tool.Tool = (*EchoTool)(nil)
