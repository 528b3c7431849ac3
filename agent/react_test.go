package agent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/flowforge/part"
	"github.com/flowforge/flowforge/tool"
)

func TestReactClassificationPrecedence(t *testing.T) {
	thinkingAndCall := part.NewContent(part.RoleModel,
		part.Thinking("pondering"),
		part.ToolCall("echo", json.RawMessage(`{}`), ""),
	)
	step := classify(thinkingAndCall)
	assert.Equal(t, stepThought, step.kind)
	assert.Equal(t, "pondering", step.text)

	callAndText := part.NewContent(part.RoleModel,
		part.ToolCall("echo", json.RawMessage(`{}`), ""),
		part.Text("final answer: done"),
	)
	step = classify(callAndText)
	assert.Equal(t, stepAction, step.kind)

	finalText := part.NewContent(part.RoleModel, part.Text("Final Answer: 42"))
	step = classify(finalText)
	assert.Equal(t, stepFinalAnswer, step.kind)
	assert.Equal(t, "42", step.text)

	plainText := part.NewContent(part.RoleModel, part.Text("just thinking aloud"))
	step = classify(plainText)
	assert.Equal(t, stepThought, step.kind)

	empty := part.NewContent(part.RoleModel)
	step = classify(empty)
	assert.Equal(t, stepThought, step.kind)
	assert.Equal(t, "", step.text)
}

func TestReactRunsToolThenFinalAnswer(t *testing.T) {
	m := &stubModel{responses: []part.Content{
		part.NewContent(part.RoleModel, part.ToolCall("echo", json.RawMessage(`{}`), "")),
		part.NewContent(part.RoleModel, part.Text("Final Answer: done")),
	}}
	reg := tool.NewRegistry()
	require.NoError(t, reg.RegisterTool(echoTool{}))
	a := NewReact("a", "solve it", m, []tool.Tool{echoTool{}}, reg, 0)

	out, err := a.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
}

func TestReactMaxIterationsFallback(t *testing.T) {
	responses := make([]part.Content, 0, 3)
	for i := 0; i < 3; i++ {
		responses = append(responses, part.NewContent(part.RoleModel, part.Text("still working")))
	}
	m := &stubModel{responses: responses}
	reg := tool.NewRegistry()
	a := NewReact("a", "x", m, nil, reg, 3)

	out, err := a.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Reached maximum iterations."))
	assert.Equal(t, 3, m.calls)
}

func TestReactToolErrorDoesNotAbortLoop(t *testing.T) {
	m := &stubModel{responses: []part.Content{
		part.NewContent(part.RoleModel, part.ToolCall("missing", json.RawMessage(`{}`), "")),
		part.NewContent(part.RoleModel, part.Text("Final Answer: recovered")),
	}}
	reg := tool.NewRegistry()
	a := NewReact("a", "x", m, nil, reg, 0)

	out, err := a.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
}
