package agent

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/flowforge/flowforge/ferrors"
	"github.com/flowforge/flowforge/part"
)

// RunStreaming is the streaming variant of §4.4: identical control flow and
// text-first semantics to Run, but emits ToolCall/ToolResult/Error/Answer
// events into sink as it goes. The loop itself never blocks on a full sink.
func (a *TurnLoop) RunStreaming(ctx context.Context, input string, sink *Sink) (string, error) {
	history := []part.Content{
		part.NewContent(part.RoleSystem, part.Text(a.Instructions)),
		part.NewContent(part.RoleUser, part.Text(input)),
	}
	infos := a.toolInfos()

	for call := 0; call < maxTurnCalls; call++ {
		resp, err := a.Model.GenerateContent(ctx, history, nil, infos)
		if err != nil {
			wrapped := ferrors.New(ferrors.KindModelFailure, "TurnLoop", "GenerateContent", err.Error(), err)
			a.emit(sink, errorEvent(wrapped.Error()))
			return "", wrapped
		}

		// Text-first, same as Run: a non-empty text part ends the turn loop
		// immediately, even when the model also emitted tool calls alongside
		// it — those calls are left undispatched.
		if text, ok := resp.FirstNonEmptyText(); ok {
			a.emit(sink, answerEvent(text))
			return text, nil
		}

		calls := resp.ToolCalls()
		if len(calls) == 0 {
			return "", nil
		}

		responses := make([]part.Part, 0, len(calls))
		for _, tc := range calls {
			args, _ := json.Marshal(tc.Args)
			a.emit(sink, toolCallEvent(tc.Name, string(args)))

			result, execErr := a.Registry.Execute(ctx, tc.Name, tc.Args)
			if execErr != nil && result == nil {
				result = []byte(`{"error":"` + execErr.Error() + `"}`)
			}
			a.emit(sink, toolResultEvent(tc.Name, string(result)))
			responses = append(responses, part.ToolResponse(tc.Name, json.RawMessage(result)))
		}

		history = append(history, resp)
		history = append(history, part.NewContent(part.RoleUser, responses...))
	}

	wrapped := ferrors.MaxIterations("TurnLoop", maxTurnCalls)
	a.emit(sink, errorEvent(wrapped.Error()))
	return "", wrapped
}

// emit attempts a non-blocking send; a dropped event is logged, per §11.
func (a *TurnLoop) emit(sink *Sink, e Event) {
	if sink == nil {
		return
	}
	if !sink.send(e) {
		slog.Warn("agent event dropped: sink full", "kind", e.Kind, "agent", a.Name)
	}
}
