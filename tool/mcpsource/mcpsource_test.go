package mcpsource

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/flowforge/tool"
)

type fakeClient struct {
	closed   bool
	lastCall mcp.CallToolRequest
	result   *mcp.CallToolResult
	err      error
}

func (f *fakeClient) Initialize(context.Context, mcp.InitializeRequest) (*mcp.InitializeResult, error) {
	return &mcp.InitializeResult{}, nil
}

func (f *fakeClient) ListTools(context.Context, mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	return &mcp.ListToolsResult{}, nil
}

func (f *fakeClient) CallTool(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f.lastCall = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func TestMCPToolExecuteReturnsResultText(t *testing.T) {
	fc := &fakeClient{result: &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "42"}},
	}}
	tl := &mcpTool{client: fc, info: mcp.Tool{Name: "answer", Description: "answers things"}}

	out, err := tl.Execute(context.Background(), json.RawMessage(`{"q":"?"}`))
	require.NoError(t, err)

	var parsed map[string]string
	require.NoError(t, json.Unmarshal(out, &parsed))
	assert.Equal(t, "42", parsed["result"])
	assert.Equal(t, "answer", fc.lastCall.Params.Name)
	assert.Equal(t, map[string]interface{}{"q": "?"}, fc.lastCall.Params.Arguments)
}

func TestMCPToolExecuteSurfacesServerError(t *testing.T) {
	fc := &fakeClient{result: &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "boom"}},
	}}
	tl := &mcpTool{client: fc, info: mcp.Tool{Name: "flaky"}}

	out, err := tl.Execute(context.Background(), nil)
	require.NoError(t, err)

	var parsed map[string]string
	require.NoError(t, json.Unmarshal(out, &parsed))
	assert.Equal(t, "boom", parsed["error"])
}

func TestMCPToolExecuteInvalidArgsIsToolError(t *testing.T) {
	tl := &mcpTool{client: &fakeClient{}, info: mcp.Tool{Name: "x"}}
	_, err := tl.Execute(context.Background(), json.RawMessage(`not json`))
	assert.Error(t, err)
}

func TestSupervisorGetOrConnectCachesEntry(t *testing.T) {
	sup := New()
	fc := &fakeClient{}
	want := []tool.Tool{&mcpTool{client: fc, info: mcp.Tool{Name: "cached"}}}
	sup.entries["already-connected"] = &entry{client: fc, tools: want}

	tools, err := sup.GetOrConnect(context.Background(), Config{Name: "already-connected", Command: "unused"})
	require.NoError(t, err)
	assert.Equal(t, want, tools)
}
