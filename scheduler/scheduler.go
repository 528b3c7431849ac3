// Package scheduler implements the graph scheduler (C10): the
// dependency- and condition-gated run loop that drives a compiled workflow
// to completion, grounded on the teacher's workflow.BaseExecutor /
// ExecutionContext style (mutex-guarded shared context, CombineResults
// helpers) but rebuilt around this module's real dependency/condition
// gating, which the teacher's DAGExecutor/AutonomousExecutor never
// implemented (they loop sequentially with no gating at all).
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/flowforge/flowforge/agent"
	"github.com/flowforge/flowforge/condition"
	"github.com/flowforge/flowforge/state"
	"github.com/flowforge/flowforge/workflow"
)

const maxSchedulerIterations = 100

// WaitFor is a type alias of workflow.WaitFor; CompiledNode copies the
// value at compile time.
type WaitFor = workflow.WaitFor

// CompiledNode is one builder-produced node (C11 output, C10 input):
// an id, a ready-to-run Agent capability, its dependency/condition
// metadata, and its output-extraction mapping.
type CompiledNode struct {
	ID        string
	Agent     agent.Agent
	DependsOn []string
	When      *condition.Expr
	Outputs   map[string]string
	WaitFor   WaitFor
}

// StateField carries one graph.state entry's declared reducer and default,
// per §3's StateSchema and §4.8's five named reducers.
type StateField struct {
	Reducer state.Reducer
	Default interface{}
}

// Compiled is the full output of the builder: nodes in declaration order,
// plus the state schema (field -> reducer/default) declared in graph.state.
type Compiled struct {
	Nodes []CompiledNode
	State map[string]StateField
}

// Run drives the graph to completion per §4.10, returning the projected
// terminal output (or an error only for a cancelled/ctx-based failure —
// per-node agent errors are caught and recorded in state, never
// propagated here).
func Run(ctx context.Context, input string, compiled *Compiled) (string, error) {
	st := state.New()
	st.Set("input", input)
	seedDefaults(st, compiled.State)
	completed := make(map[string]bool)
	indexByID := make(map[string]int, len(compiled.Nodes))
	for i, n := range compiled.Nodes {
		indexByID[n.ID] = i
	}

	for iter := 0; iter < maxSchedulerIterations; iter++ {
		ready := readyNodes(compiled.Nodes, completed, st)
		if len(ready) == 0 {
			break
		}
		for _, n := range ready {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			runNode(ctx, n, input, st, compiled.State)
			completed[n.ID] = true
		}
	}

	return projectTerminalOutputs(compiled.Nodes, st), nil
}

// seedDefaults writes each declared state field's default (if any) before
// the graph starts running, per §3's StateSchema.default.
func seedDefaults(st *state.State, fields map[string]StateField) {
	for key, f := range fields {
		if f.Default != nil {
			st.Set(key, f.Default)
		}
	}
}

// reducerFor returns stateKey's declared reducer, defaulting to overwrite
// when the field (or the whole schema) is undeclared.
func reducerFor(fields map[string]StateField, stateKey string) state.Reducer {
	if f, ok := fields[stateKey]; ok && f.Reducer != "" {
		return f.Reducer
	}
	return state.ReducerOverwrite
}

// readyNodes computes the ready set for one iteration, in declaration
// order: not yet completed, dependencies satisfied, condition met.
func readyNodes(nodes []CompiledNode, completed map[string]bool, st *state.State) []CompiledNode {
	var ready []CompiledNode
	snapshot := st.Snapshot()
	for _, n := range nodes {
		if completed[n.ID] {
			continue
		}
		if !dependenciesSatisfied(n, completed) {
			continue
		}
		if !conditionMet(n, snapshot) {
			continue
		}
		ready = append(ready, n)
	}
	return ready
}

func dependenciesSatisfied(n CompiledNode, completed map[string]bool) bool {
	if len(n.DependsOn) == 0 {
		return true
	}
	if n.WaitFor == workflow.WaitForAny {
		for _, dep := range n.DependsOn {
			if completed[dep] {
				return true
			}
		}
		return false
	}
	for _, dep := range n.DependsOn {
		if !completed[dep] {
			return false
		}
	}
	return true
}

// conditionMet returns true when `when` is absent, or evaluates it. A
// parse failure was already folded into compile time (C11 step 6) — At
// this point When is either nil or a ready-to-eval *condition.Expr, so
// there is no parse failure path left to handle here.
func conditionMet(n CompiledNode, snapshot map[string]interface{}) bool {
	if n.When == nil {
		return true
	}
	return n.When.Eval(snapshot)
}

// runNode builds the node's input, runs its agent (catching any error),
// and applies its output to state. Node errors never abort peers.
func runNode(ctx context.Context, n CompiledNode, originalInput string, st *state.State, fields map[string]StateField) {
	ni := buildInput(originalInput, n, st)
	out, err := n.Agent.Run(ctx, ni)
	if err != nil {
		slog.Warn("scheduler: node failed", "node", n.ID, "error", err)
		st.Set(n.ID+".error", err.Error())
		return
	}
	applyOutput(n, out, st, fields)
}

// buildInput implements §4.10's buildInput: the original input for a
// dependency-free node, or the value at output.<lastDep> otherwise.
func buildInput(original string, n CompiledNode, st *state.State) string {
	if len(n.DependsOn) == 0 {
		return original
	}
	lastDep := n.DependsOn[len(n.DependsOn)-1]
	v, ok := st.Get("output." + lastDep)
	if !ok {
		return original
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return original
	}
	return string(b)
}

// applyOutput implements §4.10's applyOutput: parse out as JSON, storing
// the parsed (or raw-string, on parse failure) value at output.<id>, then
// extracts each outputs[stateKey] mapping via a dotted-path walk and
// reduces it into stateKey using that field's declared reducer (§4.8),
// defaulting to overwrite when the schema leaves it undeclared.
func applyOutput(n CompiledNode, out string, st *state.State, fields map[string]StateField) {
	var parsed interface{}
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		st.Set("output."+n.ID, out)
		if len(n.Outputs) > 0 {
			slog.Warn("scheduler: node output is not JSON, outputs mapping skipped", "node", n.ID)
		}
		return
	}
	st.Set("output."+n.ID, parsed)

	for stateKey, jsonPath := range n.Outputs {
		v, ok := extractPath(parsed, jsonPath)
		if !ok {
			slog.Warn("scheduler: outputs path not found", "node", n.ID, "path", jsonPath)
			continue
		}
		if err := st.Reduce(stateKey, reducerFor(fields, stateKey), v); err != nil {
			slog.Warn("scheduler: outputs reduce failed", "node", n.ID, "key", stateKey, "error", err)
		}
	}
}

func extractPath(root interface{}, path string) (interface{}, bool) {
	segments := strings.Split(path, ".")
	cur := root
	for _, seg := range segments {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, present := m[seg]
		if !present {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// projectTerminalOutputs implements §4.10's terminal projection: a node is
// terminal iff no other node depends on it. Each terminal node's
// output.<id> (if present) is rendered to text and joined with the
// "\n\n---\n\n" separator in declaration order, with a single-terminal
// shortcut.
func projectTerminalOutputs(nodes []CompiledNode, st *state.State) string {
	deps := make(map[string]bool)
	for _, n := range nodes {
		for _, d := range n.DependsOn {
			deps[d] = true
		}
	}

	var rendered []string
	for _, n := range nodes {
		if deps[n.ID] {
			continue
		}
		v, ok := st.Get("output." + n.ID)
		if !ok {
			continue
		}
		rendered = append(rendered, renderJSON(v))
	}

	if len(rendered) == 1 {
		return rendered[0]
	}
	return strings.Join(rendered, "\n\n---\n\n")
}

// renderJSON implements §4.10's JSON-to-text rendering.
func renderJSON(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return formatNumber(val)
	case map[string]interface{}:
		if only, ok := singleKeyOf(val, "result", "answer", "response"); ok {
			return renderJSON(only)
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("**%s**: %s", k, renderJSON(val[k])))
		}
		return strings.Join(lines, "\n")
	case []interface{}:
		lines := make([]string, 0, len(val))
		for _, elem := range val {
			lines = append(lines, "- "+renderJSON(elem))
		}
		return strings.Join(lines, "\n")
	default:
		return fmt.Sprintf("%v", val)
	}
}

// singleKeyOf returns the value of whichever single preferred key is
// present in m, when exactly one of them is present.
func singleKeyOf(m map[string]interface{}, keys ...string) (interface{}, bool) {
	var found interface{}
	count := 0
	for _, k := range keys {
		if v, ok := m[k]; ok {
			found = v
			count++
		}
	}
	if count == 1 {
		return found, true
	}
	return nil, false
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
