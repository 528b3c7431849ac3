// Package builtin provides a small set of concrete Tool implementations:
// reference adapters exercising the tool.Tool capability, grounded on the
// teacher's tools.CommandTool (allowlisted shell execution).
package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/flowforge/flowforge/tool"
)

// CommandTool runs an allowlisted shell command and returns its combined
// output. It never panics: exec failures become a returned error, which
// the dispatching turn loop turns into a {"error": ...} ToolResponse.
type CommandTool struct {
	allowed []string
	workDir string
	timeout time.Duration
}

// CommandArgs is the JSON-schema-described argument shape for CommandTool.
type CommandArgs struct {
	Command string   `json:"command" jsonschema:"required,description=the allowlisted binary to run"`
	Args    []string `json:"args,omitempty" jsonschema:"description=arguments passed to the command"`
}

// NewCommandTool creates a CommandTool restricted to allowed binaries,
// executing with workDir as its cwd and timeout as its execution bound.
func NewCommandTool(allowed []string, workDir string, timeout time.Duration) *CommandTool {
	if workDir == "" {
		workDir = "."
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &CommandTool{allowed: allowed, workDir: workDir, timeout: timeout}
}

func (t *CommandTool) Name() string        { return "run_command" }
func (t *CommandTool) Description() string { return "Runs an allowlisted shell command and returns its output." }

func (t *CommandTool) Parameters() map[string]interface{} {
	schema := jsonschema.Reflect(&CommandArgs{})
	b, _ := json.Marshal(schema)
	var m map[string]interface{}
	_ = json.Unmarshal(b, &m)
	return m
}

func (t *CommandTool) Execute(ctx context.Context, rawArgs json.RawMessage) (json.RawMessage, error) {
	var args CommandArgs
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	if !t.isAllowed(args.Command) {
		return nil, fmt.Errorf("command %q is not in the allowlist", args.Command)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, args.Command, args.Args...)
	cmd.Dir = t.workDir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("command failed: %w: %s", err, out.String())
	}

	result, _ := json.Marshal(map[string]string{"output": out.String()})
	return result, nil
}

func (t *CommandTool) isAllowed(name string) bool {
	for _, a := range t.allowed {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}

var _ tool.Tool = (*CommandTool)(nil)
