package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/flowforge/part"
	"github.com/flowforge/flowforge/tool"
)

// stubModel scripts a fixed sequence of responses, one per call.
type stubModel struct {
	responses []part.Content
	histories [][]part.Content
	calls     int
}

func (m *stubModel) GenerateContent(ctx context.Context, history []part.Content, cfg *part.GenerationConfig, tools []tool.Info) (part.Content, error) {
	m.histories = append(m.histories, append([]part.Content(nil), history...))
	resp := m.responses[m.calls]
	m.calls++
	return resp, nil
}

type echoTool struct{}

func (echoTool) Name() string                      { return "echo" }
func (echoTool) Description() string               { return "echoes input" }
func (echoTool) Parameters() map[string]interface{} { return map[string]interface{}{} }
func (echoTool) Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`{"echoed":true}`), nil
}

// P4: running the turn loop with a Model that returns non-empty text on the
// first call yields that text unchanged.
func TestTurnLoopTextFirstRule(t *testing.T) {
	m := &stubModel{responses: []part.Content{
		part.NewContent(part.RoleModel, part.Text("hi")),
	}}
	reg := tool.NewRegistry()
	a := NewTurnLoop("echo", "echo", m, nil, reg)

	out, err := a.Run(context.Background(), "ignored")
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
	assert.Equal(t, 1, m.calls)
}

func TestTurnLoopDispatchesToolThenReturnsText(t *testing.T) {
	m := &stubModel{responses: []part.Content{
		part.NewContent(part.RoleModel, part.ToolCall("echo", json.RawMessage(`{}`), "sig-1")),
		part.NewContent(part.RoleModel, part.Text("done")),
	}}
	reg := tool.NewRegistry()
	require.NoError(t, reg.RegisterTool(echoTool{}))
	a := NewTurnLoop("a", "do things", m, []tool.Tool{echoTool{}}, reg)

	out, err := a.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, 2, m.calls)
}

func TestTurnLoopUnknownToolReturnsErrorJSON(t *testing.T) {
	m := &stubModel{responses: []part.Content{
		part.NewContent(part.RoleModel, part.ToolCall("missing", json.RawMessage(`{}`), "")),
		part.NewContent(part.RoleModel, part.Text("ok")),
	}}
	reg := tool.NewRegistry()
	a := NewTurnLoop("a", "x", m, nil, reg)

	out, err := a.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	require.Len(t, m.histories, 2)
	second := m.histories[1]
	last := second[len(second)-1]
	require.NotEmpty(t, last.Parts)
	require.NotNil(t, last.Parts[0].ToolResponse)
	assert.JSONEq(t, `{"error":"Tool missing not found"}`, string(last.Parts[0].ToolResponse.Response))
}

func TestTurnLoopMaxIterations(t *testing.T) {
	responses := make([]part.Content, 0, maxTurnCalls)
	for i := 0; i < maxTurnCalls; i++ {
		responses = append(responses, part.NewContent(part.RoleModel, part.ToolCall("echo", json.RawMessage(`{}`), "")))
	}
	m := &stubModel{responses: responses}
	reg := tool.NewRegistry()
	require.NoError(t, reg.RegisterTool(echoTool{}))
	a := NewTurnLoop("a", "x", m, []tool.Tool{echoTool{}}, reg)

	_, err := a.Run(context.Background(), "go")
	require.Error(t, err)
	assert.Equal(t, maxTurnCalls, m.calls)
}

func TestTurnLoopNoTextNoToolsReturnsEmpty(t *testing.T) {
	m := &stubModel{responses: []part.Content{part.NewContent(part.RoleModel)}}
	reg := tool.NewRegistry()
	a := NewTurnLoop("a", "x", m, nil, reg)

	out, err := a.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}
