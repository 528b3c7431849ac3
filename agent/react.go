package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/flowforge/flowforge/ferrors"
	"github.com/flowforge/flowforge/model"
	"github.com/flowforge/flowforge/part"
	"github.com/flowforge/flowforge/tool"
)

const defaultReactMaxIterations = 10

const finalAnswerPrefix = "final answer:"

// React is the scratchpad-based alternative executor (C5).
type React struct {
	Name          string
	Instructions  string
	Model         model.Model
	Tools         []tool.Tool
	Registry      *tool.Registry
	MaxIterations int
}

// NewReact builds a C5 agent. maxIterations <= 0 falls back to 10.
func NewReact(name, instructions string, m model.Model, tools []tool.Tool, reg *tool.Registry, maxIterations int) *React {
	if maxIterations <= 0 {
		maxIterations = defaultReactMaxIterations
	}
	return &React{
		Name: name, Instructions: instructions, Model: m, Tools: tools,
		Registry: reg, MaxIterations: maxIterations,
	}
}

type reactStepKind int

const (
	stepFinalAnswer reactStepKind = iota
	stepAction
	stepThought
)

type reactStep struct {
	kind reactStepKind
	text string
	call *part.ToolCallPart
}

// Run drives the loop of §4.5: regenerate the system prompt with the tool
// catalog each iteration, classify the response, append to the scratchpad,
// and stop on FinalAnswer or iteration exhaustion.
func (a *React) Run(ctx context.Context, input string) (string, error) {
	var scratchpad []string
	infos := a.toolInfos()
	system := a.renderSystemPrompt(infos)

	for i := 0; i < a.MaxIterations; i++ {
		prompt := renderWithScratchpad(input, scratchpad)
		history := []part.Content{
			part.NewContent(part.RoleSystem, part.Text(system)),
			part.NewContent(part.RoleUser, part.Text(prompt)),
		}

		resp, err := a.Model.GenerateContent(ctx, history, nil, infos)
		if err != nil {
			return "", ferrors.New(ferrors.KindModelFailure, "React", "GenerateContent", err.Error(), err)
		}

		step := classify(resp)
		switch step.kind {
		case stepFinalAnswer:
			return step.text, nil
		case stepAction:
			obs := a.observe(ctx, *step.call)
			args, _ := json.Marshal(step.call.Args)
			scratchpad = append(scratchpad,
				fmt.Sprintf("Action: %s(%s)", step.call.Name, args),
				"Observation: "+obs,
			)
		case stepThought:
			scratchpad = append(scratchpad, "Thought: "+step.text)
		}
	}

	return "Reached maximum iterations.\n" + strings.Join(scratchpad, "\n"), nil
}

// observe executes one tool call, serializing a success result to
// pretty-printed JSON and a failure to "Error: <msg>", per §4.5. Tool
// errors never abort the loop.
func (a *React) observe(ctx context.Context, call part.ToolCallPart) string {
	result, err := a.Registry.Execute(ctx, call.Name, call.Args)
	if err != nil {
		return "Error: " + err.Error()
	}
	var v interface{}
	if json.Unmarshal(result, &v) == nil {
		if pretty, err := json.MarshalIndent(v, "", "  "); err == nil {
			return string(pretty)
		}
	}
	return string(result)
}

// classify applies the precedence of §4.5: Thinking > ToolCall >
// "final answer:"-prefixed Text > other Text > empty Thought.
func classify(resp part.Content) reactStep {
	for _, p := range resp.Parts {
		if p.Kind == part.KindThinking && p.Text != "" {
			return reactStep{kind: stepThought, text: p.Text}
		}
	}
	if calls := resp.ToolCalls(); len(calls) > 0 {
		call := calls[0]
		return reactStep{kind: stepAction, call: &call}
	}
	for _, p := range resp.Parts {
		if p.Kind == part.KindText && p.Text != "" {
			trimmed := strings.TrimSpace(p.Text)
			if len(trimmed) >= len(finalAnswerPrefix) && strings.EqualFold(trimmed[:len(finalAnswerPrefix)], finalAnswerPrefix) {
				return reactStep{kind: stepFinalAnswer, text: strings.TrimSpace(trimmed[len(finalAnswerPrefix):])}
			}
			return reactStep{kind: stepThought, text: p.Text}
		}
	}
	return reactStep{kind: stepThought, text: ""}
}

func renderWithScratchpad(input string, scratchpad []string) string {
	if len(scratchpad) == 0 {
		return input
	}
	return input + "\n\n" + strings.Join(scratchpad, "\n")
}

func (a *React) toolInfos() []tool.Info {
	infos := make([]tool.Info, 0, len(a.Tools))
	for _, t := range a.Tools {
		infos = append(infos, tool.InfoOf(t))
	}
	return infos
}

// renderSystemPrompt embeds the agent's instructions plus a bulleted tool
// catalog, regenerated fresh each iteration per §4.5.
func (a *React) renderSystemPrompt(infos []tool.Info) string {
	var b strings.Builder
	b.WriteString(a.Instructions)
	if len(infos) > 0 {
		b.WriteString("\n\nAvailable tools:\n")
		for _, t := range infos {
			b.WriteString("- " + t.Name + ": " + t.Description + "\n")
		}
	}
	b.WriteString("\nRespond with a Thought, an Action, or, when done, a line beginning \"Final Answer:\".")
	return b.String()
}
