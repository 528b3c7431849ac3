// Package builder implements the builder (C11): YAML → normalize →
// per-node Model/tool/executor instantiation → compiled node list,
// grounded on the teacher's config.AgentConfig loading conventions
// (Validate/SetDefaults, env-driven provider config) and llms.LLMRegistry's
// CreateLLMFromConfig provider switch, generalized across four providers.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/flowforge/flowforge/agent"
	"github.com/flowforge/flowforge/condition"
	"github.com/flowforge/flowforge/config"
	"github.com/flowforge/flowforge/ferrors"
	"github.com/flowforge/flowforge/model"
	"github.com/flowforge/flowforge/model/anthropic"
	"github.com/flowforge/flowforge/model/gemini"
	"github.com/flowforge/flowforge/model/ollama"
	"github.com/flowforge/flowforge/model/openai"
	"github.com/flowforge/flowforge/scheduler"
	"github.com/flowforge/flowforge/state"
	"github.com/flowforge/flowforge/tool"
	"github.com/flowforge/flowforge/tool/mcpsource"
	"github.com/flowforge/flowforge/workflow"
)

const defaultMaxIterations = 10

// Build loads a YAML document, normalizes it, and compiles it into a
// scheduler.Compiled ready to Run, per the seven steps of §4.11.
func Build(ctx context.Context, yamlSrc []byte, tools *tool.Registry) (*scheduler.Compiled, error) {
	yamlSrc = config.ExpandEnv(yamlSrc)

	var def workflow.Definition
	if err := yaml.Unmarshal(yamlSrc, &def); err != nil {
		return nil, ferrors.New(ferrors.KindParseError, "Builder", "Build", "invalid workflow YAML", err)
	}
	return BuildDefinition(ctx, &def, tools)
}

// BuildDefinition compiles an already-parsed Definition, skipping YAML
// decoding (used by callers that assemble a Definition programmatically,
// and by the builder test suite).
func BuildDefinition(ctx context.Context, def *workflow.Definition, tools *tool.Registry) (*scheduler.Compiled, error) {
	graph, err := workflow.Normalize(def)
	if err != nil {
		return nil, err
	}

	if err := connectMCPServers(ctx, graph.MCPServers, tools); err != nil {
		return nil, err
	}

	nodes := make([]scheduler.CompiledNode, 0, len(graph.Nodes))
	for _, n := range graph.Nodes {
		compiled, err := compileNode(ctx, n, tools)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, compiled)
	}
	return &scheduler.Compiled{Nodes: nodes, State: compileStateSchema(graph.State)}, nil
}

// compileStateSchema converts the normalized graph.state block (field ->
// declared type/reducer/default) into the reducer/default lookup the
// scheduler consults on every node's outputs mapping.
func compileStateSchema(fields map[string]workflow.StateFieldSpec) map[string]scheduler.StateField {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]scheduler.StateField, len(fields))
	for key, f := range fields {
		out[key] = scheduler.StateField{
			Reducer: state.Reducer(f.Reducer),
			Default: f.Default,
		}
	}
	return out
}

func compileNode(ctx context.Context, n workflow.GraphNode, tools *tool.Registry) (scheduler.CompiledNode, error) {
	spec, err := resolveAgentSpec(n.Agent)
	if err != nil {
		return scheduler.CompiledNode{}, err
	}

	m, err := instantiateModel(ctx, spec.Model)
	if err != nil {
		return scheduler.CompiledNode{}, err
	}

	resolvedTools, missing := tools.Resolve(spec.Tools)
	for _, name := range missing {
		slog.Warn("builder: dropping unknown tool", "node", n.ID, "tool", name)
	}

	a := instantiateExecutor(spec, m, resolvedTools, tools)

	var expr *condition.Expr
	if n.When != "" {
		expr, err = condition.Parse(n.When)
		if err != nil {
			return scheduler.CompiledNode{}, ferrors.New(ferrors.KindParseError, "Builder", "compileNode",
				fmt.Sprintf("node %s: invalid when expression", n.ID), err)
		}
	}

	return scheduler.CompiledNode{
		ID:        n.ID,
		Agent:     a,
		DependsOn: n.DependsOn,
		When:      expr,
		Outputs:   n.Outputs,
		WaitFor:   n.WaitFor,
	}, nil
}

// resolveAgentSpec returns the inline agent.Spec for a node's AgentRef,
// loading and decoding a referenced file (with overrides merged in) when
// the node used the {file, overrides} form instead of an inline block.
func resolveAgentSpec(ref workflow.AgentRef) (agent.Spec, error) {
	if ref.Inline != nil {
		return *ref.Inline, nil
	}
	if ref.File == "" {
		return agent.Spec{}, ferrors.New(ferrors.KindInvalidWorkflow, "Builder", "resolveAgentSpec",
			"agent reference has neither an inline spec nor a file", nil)
	}

	raw, err := os.ReadFile(ref.File)
	if err != nil {
		return agent.Spec{}, ferrors.New(ferrors.KindConfigMissing, "Builder", "resolveAgentSpec",
			fmt.Sprintf("read agent file %s", ref.File), err)
	}
	raw = config.ExpandEnv(raw)
	var spec agent.Spec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return agent.Spec{}, ferrors.New(ferrors.KindParseError, "Builder", "resolveAgentSpec",
			fmt.Sprintf("parse agent file %s", ref.File), err)
	}
	if err := applyOverrides(&spec, ref.Overrides); err != nil {
		return agent.Spec{}, err
	}
	return spec, nil
}

// applyOverrides merges an {overrides: {...}} map onto a loaded AgentSpec,
// keyed by the same yaml tags the spec itself decodes from, so any field
// (including nested ones like model.model_name) is overridable, not just a
// hardcoded subset.
func applyOverrides(spec *agent.Spec, overrides map[string]interface{}) error {
	if overrides == nil {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           spec,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return ferrors.New(ferrors.KindInvalidWorkflow, "Builder", "applyOverrides",
			"build overrides decoder", err)
	}
	if err := decoder.Decode(overrides); err != nil {
		return ferrors.New(ferrors.KindInvalidWorkflow, "Builder", "applyOverrides",
			"decode agent overrides", err)
	}
	return nil
}

func instantiateModel(ctx context.Context, spec model.Spec) (model.Model, error) {
	provider := model.InferProvider(spec, nil)
	name, err := model.ResolveModelName(spec, nil)
	if err != nil {
		return nil, ferrors.New(ferrors.KindConfigMissing, "Builder", "instantiateModel", err.Error(), err)
	}

	switch provider {
	case model.ProviderOpenAI:
		return openai.New(openai.Config{APIKey: os.Getenv("OPENAI_API_KEY"), Model: name}), nil
	case model.ProviderAnthropic:
		return anthropic.New(anthropic.Config{APIKey: os.Getenv("ANTHROPIC_API_KEY"), Model: name}), nil
	case model.ProviderOllama:
		return ollama.New(ollama.Config{Host: os.Getenv("OLLAMA_HOST"), Model: name}), nil
	case model.ProviderDeepSeek:
		// DeepSeek speaks the OpenAI chat-completions wire format.
		return openai.New(openai.Config{
			APIKey:  os.Getenv("DEEPSEEK_API_KEY"),
			Model:   name,
			BaseURL: "https://api.deepseek.com/chat/completions",
		}), nil
	default:
		return gemini.New(ctx, gemini.Config{APIKey: os.Getenv("GEMINI_API_KEY"), Model: name})
	}
}

// connectMCPServers connects each declared MCP server and registers its
// advertised tools into the shared registry so nodes resolve them by name
// alongside the tools already registered there (such as the builtins).
func connectMCPServers(ctx context.Context, servers []workflow.MCPServer, tools *tool.Registry) error {
	if len(servers) == 0 {
		return nil
	}
	sup := mcpsource.New()
	for _, srv := range servers {
		discovered, err := sup.GetOrConnect(ctx, mcpsource.Config{
			Name:    srv.Name,
			Command: srv.Command,
			Args:    srv.Args,
			Filter:  srv.Filter,
		})
		if err != nil {
			return ferrors.New(ferrors.KindConfigMissing, "Builder", "connectMCPServers",
				fmt.Sprintf("connect MCP server %s", srv.Name), err)
		}
		for _, t := range discovered {
			tools.RegisterTool(t)
		}
	}
	return nil
}

func instantiateExecutor(spec agent.Spec, m model.Model, tools []tool.Tool, reg *tool.Registry) agent.Agent {
	switch spec.Executor {
	case "react":
		maxIter := spec.MaxIterations
		if maxIter <= 0 {
			maxIter = defaultMaxIterations
		}
		return agent.NewReact(spec.Name, spec.Instructions, m, tools, reg, maxIter)
	default: // "default", "cot" (alias), or unset
		return agent.NewTurnLoop(spec.Name, spec.Instructions, m, tools, reg)
	}
}
