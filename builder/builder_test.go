package builder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/flowforge/agent"
	"github.com/flowforge/flowforge/model"
	"github.com/flowforge/flowforge/state"
	"github.com/flowforge/flowforge/tool"
	"github.com/flowforge/flowforge/workflow"
)

func TestBuildDirectWorkflowProducesOneCompiledNode(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	def := &workflow.Definition{
		Kind: workflow.KindDirect,
		Name: "echo",
		Agent: &workflow.AgentRef{Inline: &agent.Spec{
			Name:         "echo",
			Instructions: "echo",
			Model:        modelSpecGemini(),
		}},
	}
	tools := tool.NewRegistry()

	compiled, err := BuildDefinition(context.Background(), def, tools)
	require.NoError(t, err)
	require.Len(t, compiled.Nodes, 1)
	assert.Equal(t, "main", compiled.Nodes[0].ID)
	assert.NotNil(t, compiled.Nodes[0].Agent)
}

func TestBuildDropsUnknownToolsWithWarning(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	def := &workflow.Definition{
		Kind: workflow.KindDirect,
		Agent: &workflow.AgentRef{Inline: &agent.Spec{
			Name:         "a",
			Instructions: "x",
			Tools:        []string{"nonexistent"},
			Model:        modelSpecGemini(),
		}},
	}
	tools := tool.NewRegistry()

	compiled, err := BuildDefinition(context.Background(), def, tools)
	require.NoError(t, err)
	require.Len(t, compiled.Nodes, 1)
	loop, ok := compiled.Nodes[0].Agent.(*agent.TurnLoop)
	require.True(t, ok)
	assert.Empty(t, loop.Tools)
}

func TestBuildReactExecutorFallsBackToDefaultMaxIterations(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	def := &workflow.Definition{
		Kind: workflow.KindDirect,
		Agent: &workflow.AgentRef{Inline: &agent.Spec{
			Name:         "a",
			Instructions: "x",
			Executor:     "react",
			Model:        modelSpecGemini(),
		}},
	}
	tools := tool.NewRegistry()

	compiled, err := BuildDefinition(context.Background(), def, tools)
	require.NoError(t, err)
	react, ok := compiled.Nodes[0].Agent.(*agent.React)
	require.True(t, ok)
	assert.Equal(t, defaultMaxIterations, react.MaxIterations)
}

func TestBuildInvalidWhenExpressionErrors(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	def := &workflow.Definition{
		Kind: workflow.KindGraph,
		Graph: &workflow.GraphSpec{
			Nodes: []workflow.NodeSpec{
				{ID: "n", Agent: workflow.AgentRef{Inline: &agent.Spec{Name: "a", Model: modelSpecGemini()}}, When: "not a valid expr"},
			},
		},
	}
	tools := tool.NewRegistry()

	_, err := BuildDefinition(context.Background(), def, tools)
	require.Error(t, err)
}

func TestApplyOverridesDecodesByYAMLTag(t *testing.T) {
	spec := agent.Spec{Name: "a", Instructions: "original", MaxIterations: 3}
	err := applyOverrides(&spec, map[string]interface{}{
		"instructions":   "replaced",
		"max_iterations": 7,
		"executor":       "react",
	})
	require.NoError(t, err)
	assert.Equal(t, "replaced", spec.Instructions)
	assert.Equal(t, 7, spec.MaxIterations)
	assert.Equal(t, "react", spec.Executor)
}

func TestApplyOverridesNilIsNoop(t *testing.T) {
	spec := agent.Spec{Name: "a", Instructions: "original"}
	require.NoError(t, applyOverrides(&spec, nil))
	assert.Equal(t, "original", spec.Instructions)
}

func TestBuildGraphCompilesDeclaredStateSchema(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	def := &workflow.Definition{
		Kind: workflow.KindGraph,
		Graph: &workflow.GraphSpec{
			State: map[string]workflow.StateFieldSpec{
				"items": {Type: "array", Reducer: "append"},
				"count": {Type: "number", Default: float64(0)},
			},
			Nodes: []workflow.NodeSpec{
				{ID: "n", Agent: workflow.AgentRef{Inline: &agent.Spec{Name: "a", Model: modelSpecGemini()}}},
			},
		},
	}
	tools := tool.NewRegistry()

	compiled, err := BuildDefinition(context.Background(), def, tools)
	require.NoError(t, err)
	require.Contains(t, compiled.State, "items")
	assert.Equal(t, state.Reducer("append"), compiled.State["items"].Reducer)
	assert.Equal(t, float64(0), compiled.State["count"].Default)
}

func modelSpecGemini() model.Spec {
	return model.Spec{Provider: "gemini", ModelName: "gemini-2.0-flash"}
}

func TestBuildExpandsEnvVarsInYAML(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("FLOWFORGE_TEST_INSTRUCTIONS", "be concise")
	src := []byte("kind: Direct\nname: echo\nagent:\n  name: a\n  instructions: ${FLOWFORGE_TEST_INSTRUCTIONS}\n  model:\n    provider: gemini\n    model_name: gemini-2.0-flash\n")

	compiled, err := Build(context.Background(), src, tool.NewRegistry())
	require.NoError(t, err)
	require.Len(t, compiled.Nodes, 1)
	loop, ok := compiled.Nodes[0].Agent.(*agent.TurnLoop)
	require.True(t, ok)
	assert.Equal(t, "be concise", loop.Instructions)
}
