// Package agent implements the two agent executors (C4, C5) that drive a
// Model through tool-call/tool-response cycles, grounded on the teacher's
// agent.Agent turn-loop structure (PrepareIteration/callLLM/executeTools)
// but rebuilt around this module's simpler single-call model.Model.
package agent

import (
	"context"
	"encoding/json"

	"github.com/flowforge/flowforge/ferrors"
	"github.com/flowforge/flowforge/model"
	"github.com/flowforge/flowforge/part"
	"github.com/flowforge/flowforge/tool"
)

// Agent is the capability the scheduler drives: one request in, one text
// answer (or error) out.
type Agent interface {
	Run(ctx context.Context, input string) (string, error)
}

// StreamingAgent is implemented by agents that can additionally emit
// structured events as they run (the streaming variant of §4.4); the
// scheduler's streaming run mode type-asserts for this.
type StreamingAgent interface {
	Agent
	RunStreaming(ctx context.Context, input string, sink *Sink) (string, error)
}

// Spec mirrors the YAML AgentSpec block of §6.
type Spec struct {
	Name          string      `yaml:"name"`
	Description   string      `yaml:"description,omitempty"`
	Instructions  string      `yaml:"instructions"`
	Executor      string      `yaml:"executor,omitempty"`
	Model         model.Spec  `yaml:"model,omitempty"`
	Tools         []string    `yaml:"tools,omitempty"`
	MaxIterations int         `yaml:"max_iterations,omitempty"`
}

const maxTurnCalls = 10

// TurnLoop is the default (and "cot"-aliased) LLM turn-loop agent (C4).
type TurnLoop struct {
	Name         string
	Instructions string
	Model        model.Model
	Tools        []tool.Tool
	Registry     *tool.Registry
}

// NewTurnLoop builds a C4 agent. tools must already be resolved against the
// registry (the builder's job); registry is used only to dispatch calls.
func NewTurnLoop(name, instructions string, m model.Model, tools []tool.Tool, reg *tool.Registry) *TurnLoop {
	return &TurnLoop{Name: name, Instructions: instructions, Model: m, Tools: tools, Registry: reg}
}

func (a *TurnLoop) toolInfos() []tool.Info {
	infos := make([]tool.Info, 0, len(a.Tools))
	for _, t := range a.Tools {
		infos = append(infos, tool.InfoOf(t))
	}
	return infos
}

// Run drives the state machine of §4.4: call_model → inspect_response,
// short-circuiting on the first non-empty text part, otherwise dispatching
// tool calls and looping, bounded at maxTurnCalls model calls.
func (a *TurnLoop) Run(ctx context.Context, input string) (string, error) {
	history := []part.Content{
		part.NewContent(part.RoleSystem, part.Text(a.Instructions)),
		part.NewContent(part.RoleUser, part.Text(input)),
	}
	infos := a.toolInfos()

	for call := 0; call < maxTurnCalls; call++ {
		resp, err := a.Model.GenerateContent(ctx, history, nil, infos)
		if err != nil {
			return "", ferrors.New(ferrors.KindModelFailure, "TurnLoop", "GenerateContent", err.Error(), err)
		}

		if text, ok := resp.FirstNonEmptyText(); ok {
			return text, nil
		}

		calls := resp.ToolCalls()
		if len(calls) == 0 {
			return "", nil
		}

		responses := a.dispatch(ctx, calls)

		history = append(history, resp)
		history = append(history, part.NewContent(part.RoleUser, responses...))
	}

	return "", ferrors.MaxIterations("TurnLoop", maxTurnCalls)
}

// dispatch executes every tool call in encountered order, sequentially,
// wrapping each outcome — success or failure — in a ToolResponse part.
func (a *TurnLoop) dispatch(ctx context.Context, calls []part.ToolCallPart) []part.Part {
	responses := make([]part.Part, 0, len(calls))
	for _, tc := range calls {
		result, err := a.Registry.Execute(ctx, tc.Name, tc.Args)
		if err != nil && result == nil {
			result = tool.ErrorResponse(err.Error())
		}
		responses = append(responses, part.ToolResponse(tc.Name, json.RawMessage(result)))
	}
	return responses
}
