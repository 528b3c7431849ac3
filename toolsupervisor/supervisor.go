// Package toolsupervisor implements the child-process tool supervisor
// (C13): one subprocess per logical tool-source name, spawned on first
// use and shared thereafter, grounded on the teacher's
// plugins/grpc.GRPCLoader (handshake config, plugin.ClientConfig,
// client.Client()/Dispense) but adapted to net/rpc plugins — go-plugin's
// simpler transport — and to a converge-on-one-subprocess guarantee via
// golang.org/x/sync/singleflight, which the teacher's loader does not need
// since it is called once per explicit Load, not raced by concurrent tool
// resolution.
package toolsupervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/rpc"
	"os/exec"
	"sync"

	"github.com/hashicorp/go-hclog"
	goplugin "github.com/hashicorp/go-plugin"
	"golang.org/x/sync/singleflight"

	"github.com/flowforge/flowforge/ferrors"
	"github.com/flowforge/flowforge/tool"
)

// handshakeConfig mirrors the teacher's plugin handshake, renamed to this
// module's own magic cookie.
var handshakeConfig = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "FLOWFORGE_TOOL_PLUGIN",
	MagicCookieValue: "flowforge_tool_plugin_v1",
}

// Config describes one child-process tool source to spawn.
type Config struct {
	Name    string
	Command string
	Args    []string
}

// entry is one live subprocess and the tools it advertised.
type entry struct {
	client *goplugin.Client
	tools  []tool.Tool
}

// Supervisor owns every spawned child-process tool source, keyed by
// logical name. GetOrCreate is safe for concurrent callers racing on the
// same name: singleflight converges them onto one subprocess.
type Supervisor struct {
	mu      sync.RWMutex
	entries map[string]*entry
	group   singleflight.Group
	logger  hclog.Logger
}

// New builds an empty Supervisor.
func New() *Supervisor {
	return &Supervisor{
		entries: make(map[string]*entry),
		logger:  hclog.New(&hclog.LoggerOptions{Name: "flowforge-toolsupervisor", Level: hclog.Warn}),
	}
}

// GetOrCreate returns the tools advertised by cfg.Name's subprocess,
// spawning it (and performing the handshake + catalog exchange) on first
// use, per §4.13.
func (s *Supervisor) GetOrCreate(ctx context.Context, cfg Config) ([]tool.Tool, error) {
	s.mu.RLock()
	if e, ok := s.entries[cfg.Name]; ok {
		s.mu.RUnlock()
		return e.tools, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.group.Do(cfg.Name, func() (interface{}, error) {
		s.mu.RLock()
		if e, ok := s.entries[cfg.Name]; ok {
			s.mu.RUnlock()
			return e, nil
		}
		s.mu.RUnlock()

		e, err := s.spawn(cfg)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.entries[cfg.Name] = e
		s.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entry).tools, nil
}

func (s *Supervisor) spawn(cfg Config) (*entry, error) {
	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig: handshakeConfig,
		Plugins:         map[string]goplugin.Plugin{"toolsource": &toolSourcePlugin{}},
		Cmd:             exec.Command(cfg.Command, cfg.Args...),
		Logger:          s.logger,
		AllowedProtocols: []goplugin.Protocol{goplugin.ProtocolNetRPC},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, ferrors.New(ferrors.KindConfigMissing, "ToolSupervisor", "spawn",
			fmt.Sprintf("connect to tool source %s", cfg.Name), err)
	}

	raw, err := rpcClient.Dispense("toolsource")
	if err != nil {
		client.Kill()
		return nil, ferrors.New(ferrors.KindConfigMissing, "ToolSupervisor", "spawn",
			fmt.Sprintf("dispense tool source %s", cfg.Name), err)
	}

	source, ok := raw.(toolSourceAPI)
	if !ok {
		client.Kill()
		return nil, ferrors.New(ferrors.KindConfigMissing, "ToolSupervisor", "spawn",
			fmt.Sprintf("tool source %s does not implement the expected interface", cfg.Name), nil)
	}

	catalog, err := source.ListTools()
	if err != nil {
		client.Kill()
		return nil, ferrors.New(ferrors.KindConfigMissing, "ToolSupervisor", "spawn",
			fmt.Sprintf("list tools from %s", cfg.Name), err)
	}

	tools := make([]tool.Tool, 0, len(catalog))
	for _, info := range catalog {
		tools = append(tools, &remoteTool{info: info, source: source})
	}
	return &entry{client: client, tools: tools}, nil
}

// Shutdown kills every spawned subprocess. Safe to call once at process exit.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, e := range s.entries {
		e.client.Kill()
		delete(s.entries, name)
	}
}

// toolSourceAPI is the RPC surface a tool-source subprocess exposes.
type toolSourceAPI interface {
	ListTools() ([]tool.Info, error)
	Execute(name string, args json.RawMessage) (json.RawMessage, error)
}

// remoteTool adapts one catalog entry of a toolSourceAPI into a tool.Tool,
// forwarding Execute's args as an object (or null if not an object) through
// the established RPC channel, per §4.13.
type remoteTool struct {
	info   tool.Info
	source toolSourceAPI
}

func (t *remoteTool) Name() string                       { return t.info.Name }
func (t *remoteTool) Description() string                { return t.info.Description }
func (t *remoteTool) Parameters() map[string]interface{}  { return t.info.Parameters }

func (t *remoteTool) Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	var v interface{}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &v); err != nil {
			v = nil
		}
	}
	if _, ok := v.(map[string]interface{}); !ok {
		args = json.RawMessage("null")
	}
	return t.source.Execute(t.info.Name, args)
}

// toolSourcePlugin is the go-plugin net/rpc Plugin implementation: it only
// ever runs on the client (host) side of this module, so Server is unused.
type toolSourcePlugin struct{}

func (p *toolSourcePlugin) Server(*goplugin.MuxBroker) (interface{}, error) {
	return nil, fmt.Errorf("toolsupervisor: Server side is not implemented by the host process")
}

func (p *toolSourcePlugin) Client(b *goplugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &rpcToolSourceClient{client: c}, nil
}

// rpcToolSourceClient is the net/rpc client stub dispatching ListTools and
// Execute calls to the subprocess.
type rpcToolSourceClient struct {
	client *rpc.Client
}

func (c *rpcToolSourceClient) ListTools() ([]tool.Info, error) {
	var resp []tool.Info
	err := c.client.Call("Plugin.ListTools", new(interface{}), &resp)
	return resp, err
}

func (c *rpcToolSourceClient) Execute(name string, args json.RawMessage) (json.RawMessage, error) {
	req := struct {
		Name string
		Args json.RawMessage
	}{Name: name, Args: args}
	var resp json.RawMessage
	err := c.client.Call("Plugin.Execute", req, &resp)
	return resp, err
}
