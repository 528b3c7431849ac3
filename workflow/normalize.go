package workflow

import (
	"fmt"

	"github.com/flowforge/flowforge/ferrors"
)

// GraphNode is one canonical, post-normalization node (§4.1 GraphNode).
type GraphNode struct {
	ID           string
	Agent        AgentRef
	DependsOn    []string
	When         string
	OutputSchema map[string]interface{}
	Outputs      map[string]string
	WaitFor      WaitFor
}

// Graph is the canonical normalized form every workflow kind reduces to.
type Graph struct {
	Name        string
	Description string
	MCPServers  []MCPServer
	State       map[string]StateFieldSpec
	Nodes       []GraphNode
}

// Normalize canonicalizes a Definition into a Graph, per §4.7.
func Normalize(def *Definition) (*Graph, error) {
	switch def.Kind {
	case KindDirect:
		return normalizeDirect(def)
	case KindComposite:
		return normalizeComposite(def)
	case KindGraph:
		return normalizeGraph(def)
	default:
		return nil, ferrors.New(ferrors.KindInvalidWorkflow, "Normalizer", "Normalize",
			fmt.Sprintf("unknown workflow kind %q", def.Kind), nil)
	}
}

func normalizeDirect(def *Definition) (*Graph, error) {
	if def.Agent == nil {
		return nil, ferrors.New(ferrors.KindInvalidWorkflow, "Normalizer", "normalizeDirect",
			"Direct workflow has no agent", nil)
	}
	return &Graph{
		Name:        def.Name,
		Description: def.Description,
		MCPServers:  def.MCPServers,
		Nodes: []GraphNode{{
			ID:      "main",
			Agent:   *def.Agent,
			WaitFor: WaitForAll,
		}},
	}, nil
}

func normalizeComposite(def *Definition) (*Graph, error) {
	if def.Workflow == nil {
		return nil, ferrors.New(ferrors.KindInvalidWorkflow, "Normalizer", "normalizeComposite",
			"Composite workflow has no workflow block", nil)
	}
	w := def.Workflow

	var nodes []GraphNode
	switch w.Execution {
	case ExecutionSequential:
		for i, ref := range w.Agents {
			id := fmt.Sprintf("step_%d", i)
			var deps []string
			if i > 0 {
				deps = []string{fmt.Sprintf("step_%d", i-1)}
			}
			nodes = append(nodes, GraphNode{ID: id, Agent: ref, DependsOn: deps, WaitFor: WaitForAll})
		}
	case ExecutionParallel:
		for i, ref := range w.Agents {
			id := fmt.Sprintf("parallel_%d", i)
			nodes = append(nodes, GraphNode{ID: id, Agent: ref, WaitFor: WaitForAll})
		}
	case ExecutionLoop:
		// The source models loop_i as a one-shot linear chain; true
		// repeated iteration is not represented at the graph level (see
		// Open Questions — looping belongs to the graph layer, not here).
		for i, ref := range w.Agents {
			id := fmt.Sprintf("loop_%d", i)
			var deps []string
			if i > 0 {
				deps = []string{fmt.Sprintf("loop_%d", i-1)}
			}
			nodes = append(nodes, GraphNode{ID: id, Agent: ref, DependsOn: deps, WaitFor: WaitForAll})
		}
	default:
		return nil, ferrors.New(ferrors.KindInvalidWorkflow, "Normalizer", "normalizeComposite",
			fmt.Sprintf("invalid execution mode %q", w.Execution), nil)
	}

	return &Graph{
		Name:        def.Name,
		Description: def.Description,
		MCPServers:  def.MCPServers,
		Nodes:       nodes,
	}, nil
}

func normalizeGraph(def *Definition) (*Graph, error) {
	if def.Graph == nil {
		return nil, ferrors.New(ferrors.KindInvalidWorkflow, "Normalizer", "normalizeGraph",
			"Graph workflow has no graph block", nil)
	}
	g := def.Graph

	nodes := make([]GraphNode, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		waitFor := n.WaitFor
		if waitFor == "" {
			waitFor = WaitForAll
		}
		nodes = append(nodes, GraphNode{
			ID:           n.ID,
			Agent:        n.Agent,
			DependsOn:    []string(n.DependsOn),
			When:         n.When,
			OutputSchema: n.OutputSchema,
			Outputs:      n.Outputs,
			WaitFor:      waitFor,
		})
	}

	return &Graph{
		Name:        def.Name,
		Description: def.Description,
		MCPServers:  def.MCPServers,
		State:       g.State,
		Nodes:       nodes,
	}, nil
}
