package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/flowforge/condition"
	"github.com/flowforge/flowforge/state"
	"github.com/flowforge/flowforge/workflow"
)

// fixedAgent always returns a scripted response, recording the input it
// was called with.
type fixedAgent struct {
	output   string
	err      error
	lastCall string
}

func (a *fixedAgent) Run(ctx context.Context, input string) (string, error) {
	a.lastCall = input
	return a.output, a.err
}

// Scenario 1 (spec §8): single node, text response.
func TestSingleNodeTextResponse(t *testing.T) {
	a := &fixedAgent{output: "hi"}
	compiled := &Compiled{Nodes: []CompiledNode{{ID: "main", Agent: a, WaitFor: workflow.WaitForAll}}}

	out, err := Run(context.Background(), "ignored", compiled)
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}

func TestSequentialChainPassesOutputForward(t *testing.T) {
	a1 := &fixedAgent{output: `"step one done"`}
	a2 := &fixedAgent{output: `"step two done"`}
	compiled := &Compiled{Nodes: []CompiledNode{
		{ID: "step_0", Agent: a1, WaitFor: workflow.WaitForAll},
		{ID: "step_1", Agent: a2, DependsOn: []string{"step_0"}, WaitFor: workflow.WaitForAll},
	}}

	out, err := Run(context.Background(), "go", compiled)
	require.NoError(t, err)
	assert.Equal(t, "step two done", out)
	assert.Equal(t, "step one done", a2.lastCall)
}

func TestNodeErrorDoesNotAbortPeers(t *testing.T) {
	failing := &fixedAgent{err: assertErr("boom")}
	ok := &fixedAgent{output: "fine"}
	compiled := &Compiled{Nodes: []CompiledNode{
		{ID: "a", Agent: failing, WaitFor: workflow.WaitForAll},
		{ID: "b", Agent: ok, WaitFor: workflow.WaitForAll},
	}}

	out, err := Run(context.Background(), "go", compiled)
	require.NoError(t, err)
	assert.Contains(t, out, "fine")
}

func TestWaitForAnySatisfiedByOneDependency(t *testing.T) {
	a := &fixedAgent{err: assertErr("boom")}
	b := &fixedAgent{output: `"b done"`}
	c := &fixedAgent{output: "final"}
	compiled := &Compiled{Nodes: []CompiledNode{
		{ID: "a", Agent: a, WaitFor: workflow.WaitForAll},
		{ID: "b", Agent: b, WaitFor: workflow.WaitForAll},
		{ID: "c", Agent: c, DependsOn: []string{"a", "b"}, WaitFor: workflow.WaitForAny},
	}}

	out, err := Run(context.Background(), "go", compiled)
	require.NoError(t, err)
	assert.Equal(t, "final", out)
}

func TestConditionGatesNode(t *testing.T) {
	expr, err := condition.Parse("flag == true")
	require.NoError(t, err)

	producer := &fixedAgent{output: `{"flag": true}`}
	gated := &fixedAgent{output: "ran"}
	compiled := &Compiled{Nodes: []CompiledNode{
		{ID: "producer", Agent: producer, Outputs: map[string]string{"flag": "flag"}, WaitFor: workflow.WaitForAll},
		{ID: "gated", Agent: gated, DependsOn: []string{"producer"}, When: expr, WaitFor: workflow.WaitForAll},
	}}

	out, err := Run(context.Background(), "go", compiled)
	require.NoError(t, err)
	assert.Equal(t, "ran", out)
}

func TestTwoTerminalNodesJoinedWithSeparator(t *testing.T) {
	a := &fixedAgent{output: `"left"`}
	b := &fixedAgent{output: `"right"`}
	compiled := &Compiled{Nodes: []CompiledNode{
		{ID: "a", Agent: a, WaitFor: workflow.WaitForAll},
		{ID: "b", Agent: b, WaitFor: workflow.WaitForAll},
	}}

	out, err := Run(context.Background(), "go", compiled)
	require.NoError(t, err)
	assert.Equal(t, "left\n\n---\n\nright", out)
}

func TestRenderJSONObjectWithAnswerKeyUnwraps(t *testing.T) {
	assert.Equal(t, "hi", renderJSON(map[string]interface{}{"answer": "hi"}))
}

func TestRenderJSONPlainObjectRendersKeyValueLines(t *testing.T) {
	out := renderJSON(map[string]interface{}{"x": float64(1), "y": "z"})
	assert.Equal(t, "**x**: 1\n**y**: z", out)
}

func TestRenderJSONArrayRendersBulletLines(t *testing.T) {
	out := renderJSON([]interface{}{"a", "b"})
	assert.Equal(t, "- a\n- b", out)
}

func TestRenderJSONScalars(t *testing.T) {
	assert.Equal(t, "", renderJSON(nil))
	assert.Equal(t, "true", renderJSON(true))
	assert.Equal(t, "3", renderJSON(float64(3)))
	assert.Equal(t, "3.5", renderJSON(float64(3.5)))
}

func TestDeclaredReducerAppendsInsteadOfOverwriting(t *testing.T) {
	a := &fixedAgent{output: `{"item": "one"}`}
	b := &fixedAgent{output: `{"item": "two"}`}
	compiled := &Compiled{
		Nodes: []CompiledNode{
			{ID: "a", Agent: a, Outputs: map[string]string{"items": "item"}, WaitFor: workflow.WaitForAll},
			{ID: "b", Agent: b, DependsOn: []string{"a"}, Outputs: map[string]string{"items": "item"}, WaitFor: workflow.WaitForAll},
		},
		State: map[string]StateField{"items": {Reducer: state.ReducerAppend}},
	}

	_, err := Run(context.Background(), "go", compiled)
	require.NoError(t, err)

	st := state.New()
	applyOutput(compiled.Nodes[0], a.output, st, compiled.State)
	applyOutput(compiled.Nodes[1], b.output, st, compiled.State)
	items, ok := st.Get("items")
	require.True(t, ok)
	assert.Equal(t, []interface{}{"one", "two"}, items)
}

func TestUndeclaredStateFieldDefaultsToOverwrite(t *testing.T) {
	assert.Equal(t, state.ReducerOverwrite, reducerFor(nil, "anything"))
	assert.Equal(t, state.ReducerOverwrite, reducerFor(map[string]StateField{"x": {}}, "x"))
}

func TestSeedDefaultsWritesDeclaredDefaultsBeforeRun(t *testing.T) {
	st := state.New()
	seedDefaults(st, map[string]StateField{"count": {Default: float64(0)}})
	v, ok := st.Get("count")
	require.True(t, ok)
	assert.Equal(t, float64(0), v)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
