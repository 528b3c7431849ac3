// Package mcpsource connects to MCP (Model Context Protocol) tool servers
// declared in a workflow's mcp_servers block and adapts their catalogs into
// tool.Tool, for registration in the same tool.Registry the builtin tools
// populate (the builder does this). Grounded on the
// teacher's pkg/tool/mcptoolset.Toolset (lazy-connect, Initialize/ListTools/
// CallTool sequence, filter support) but rebuilt directly against
// mark3labs/mcp-go's client package instead of the teacher's hand-rolled
// stdio-vs-HTTP split, since mcp-go's client.MCPClient already presents a
// uniform Initialize/ListTools/CallTool surface across stdio and HTTP
// transports.
package mcpsource

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flowforge/flowforge/ferrors"
	"github.com/flowforge/flowforge/tool"
)

const protocolVersion = "2024-11-05"

// Config describes one MCP server to connect to over stdio.
type Config struct {
	Name    string
	Command string
	Args    []string
	Filter  []string
}

type entry struct {
	client mcpClient
	tools  []tool.Tool
}

// mcpClient is the subset of client.MCPClient this package depends on,
// narrowed for testability.
type mcpClient interface {
	Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// Supervisor owns every connected MCP server, keyed by logical name, and
// connects each lazily on first use, mirroring toolsupervisor's
// spawn-once-share-after convention.
type Supervisor struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New builds an empty Supervisor.
func New() *Supervisor {
	return &Supervisor{entries: make(map[string]*entry)}
}

// GetOrConnect returns the tools advertised by cfg.Name's MCP server,
// connecting and listing its catalog on first use.
func (s *Supervisor) GetOrConnect(ctx context.Context, cfg Config) ([]tool.Tool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[cfg.Name]; ok {
		return e.tools, nil
	}

	e, err := s.connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.entries[cfg.Name] = e
	return e.tools, nil
}

func (s *Supervisor) connect(ctx context.Context, cfg Config) (*entry, error) {
	c, err := client.NewStdioMCPClient(cfg.Command, nil, cfg.Args...)
	if err != nil {
		return nil, ferrors.New(ferrors.KindConfigMissing, "MCPSource", "connect",
			fmt.Sprintf("start MCP server %s", cfg.Name), err)
	}

	if err := c.Start(ctx); err != nil {
		c.Close()
		return nil, ferrors.New(ferrors.KindConfigMissing, "MCPSource", "connect",
			fmt.Sprintf("start MCP server %s", cfg.Name), err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = protocolVersion
	initReq.Params.ClientInfo = mcp.Implementation{Name: "flowforge", Version: "0.1.0-alpha"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, ferrors.New(ferrors.KindConfigMissing, "MCPSource", "connect",
			fmt.Sprintf("initialize MCP server %s", cfg.Name), err)
	}

	listResp, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		c.Close()
		return nil, ferrors.New(ferrors.KindConfigMissing, "MCPSource", "connect",
			fmt.Sprintf("list tools from MCP server %s", cfg.Name), err)
	}

	var filterSet map[string]bool
	if len(cfg.Filter) > 0 {
		filterSet = make(map[string]bool, len(cfg.Filter))
		for _, name := range cfg.Filter {
			filterSet[name] = true
		}
	}

	tools := make([]tool.Tool, 0, len(listResp.Tools))
	for _, t := range listResp.Tools {
		if filterSet != nil && !filterSet[t.Name] {
			continue
		}
		tools = append(tools, &mcpTool{client: c, info: t})
	}

	return &entry{client: c, tools: tools}, nil
}

// Shutdown closes every connected MCP server. Safe to call once at process
// exit.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, e := range s.entries {
		e.client.Close()
		delete(s.entries, name)
	}
}

// mcpTool adapts one server-advertised tool into tool.Tool.
type mcpTool struct {
	client mcpClient
	info   mcp.Tool
}

func (t *mcpTool) Name() string        { return t.info.Name }
func (t *mcpTool) Description() string { return t.info.Description }

func (t *mcpTool) Parameters() map[string]interface{} {
	b, err := json.Marshal(t.info.InputSchema)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	_ = json.Unmarshal(b, &m)
	return m
}

func (t *mcpTool) Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	var argMap map[string]interface{}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &argMap); err != nil {
			return nil, ferrors.New(ferrors.KindToolExecFailed, "MCPSource", "Execute",
				fmt.Sprintf("invalid arguments for tool %s", t.info.Name), err)
		}
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = t.info.Name
	req.Params.Arguments = argMap

	resp, err := t.client.CallTool(ctx, req)
	if err != nil {
		return nil, ferrors.New(ferrors.KindToolExecFailed, "MCPSource", "Execute",
			fmt.Sprintf("call MCP tool %s", t.info.Name), err)
	}

	if resp.IsError {
		return tool.ErrorResponse(extractText(resp)), nil
	}
	return json.Marshal(map[string]string{"result": extractText(resp)})
}

func extractText(resp *mcp.CallToolResult) string {
	for _, c := range resp.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

var _ tool.Tool = (*mcpTool)(nil)
