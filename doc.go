// Package flowforge is a declarative agentic workflow engine: YAML
// specifications describe LM-backed agents, composed into Direct,
// Composite, or Graph workflows and driven to completion by a
// dependency- and condition-gated scheduler over a typed shared state
// store.
//
// # Quick start
//
// Install the CLI:
//
//	go install github.com/flowforge/flowforge/cmd/flowforge@latest
//
// Run a workflow once:
//
//	flowforge run workflow.yaml --input "hello"
//
// Serve a directory of workflows over HTTP/SSE:
//
//	flowforge serve --dir ./workflows --port 8080
//
// # Library packages
//
//   - [github.com/flowforge/flowforge/agent] — the turn-loop and ReAct
//     agent executors
//   - [github.com/flowforge/flowforge/workflow] — YAML spec types and the
//     Direct/Composite/Graph normalizer
//   - [github.com/flowforge/flowforge/scheduler] — the dependency- and
//     condition-gated graph run loop
//   - [github.com/flowforge/flowforge/builder] — compiles a workflow
//     Definition into a ready-to-run scheduler.Compiled
package flowforge
