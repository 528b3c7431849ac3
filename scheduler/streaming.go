package scheduler

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/flowforge/flowforge/agent"
	"github.com/flowforge/flowforge/state"
)

// RunStreaming is the streaming run mode of §4.10: identical gating logic
// to Run, but each ready node's agent runs through its streaming variant
// (when it implements one) and events are forwarded into sink. A final
// Answer event carrying the projected output is sent once the run ends.
func RunStreaming(ctx context.Context, input string, compiled *Compiled, sink *agent.Sink) (string, error) {
	st := state.New()
	st.Set("input", input)
	seedDefaults(st, compiled.State)
	completed := make(map[string]bool)

	for iter := 0; iter < maxSchedulerIterations; iter++ {
		ready := readyNodes(compiled.Nodes, completed, st)
		if len(ready) == 0 {
			break
		}
		if err := runIterationConcurrently(ctx, ready, input, st, sink, compiled.State); err != nil {
			return "", err
		}
		for _, n := range ready {
			completed[n.ID] = true
		}
	}

	out := projectTerminalOutputs(compiled.Nodes, st)
	if !sink.SendAnswer(out) {
		slog.Warn("scheduler: final answer event dropped: sink full")
	}
	return out, nil
}

// runIterationConcurrently runs every ready node of one iteration
// concurrently, per §5's scoped-join guidance: all of an iteration's nodes
// complete before the next ready computation, and state writes are
// serialized by state.State's own internal mutex (single writer at a
// time).
func runIterationConcurrently(ctx context.Context, ready []CompiledNode, originalInput string, st *state.State, sink *agent.Sink, fields map[string]StateField) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, n := range ready {
		n := n
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			runNodeStreaming(gctx, n, originalInput, st, sink, fields)
			return nil
		})
	}
	return g.Wait()
}

func runNodeStreaming(ctx context.Context, n CompiledNode, originalInput string, st *state.State, sink *agent.Sink, fields map[string]StateField) {
	ni := buildInput(originalInput, n, st)

	var out string
	var err error
	if streaming, ok := n.Agent.(agent.StreamingAgent); ok {
		out, err = streaming.RunStreaming(ctx, ni, sink)
	} else {
		out, err = n.Agent.Run(ctx, ni)
	}

	if err != nil {
		slog.Warn("scheduler: node failed", "node", n.ID, "error", err)
		st.Set(n.ID+".error", err.Error())
		return
	}
	applyOutput(n, out, st, fields)
}
