package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/flowforge/part"
	"github.com/flowforge/flowforge/tool"
)

func drain(sink *Sink) []Event {
	var events []Event
	for {
		select {
		case e := <-sink.Events():
			events = append(events, e)
		default:
			return events
		}
	}
}

func TestRunStreamingEmitsToolCallAndResult(t *testing.T) {
	m := &stubModel{responses: []part.Content{
		part.NewContent(part.RoleModel, part.ToolCall("echo", json.RawMessage(`{}`), "")),
		part.NewContent(part.RoleModel, part.Text("done")),
	}}
	reg := tool.NewRegistry()
	require.NoError(t, reg.RegisterTool(echoTool{}))
	a := NewTurnLoop("a", "x", m, []tool.Tool{echoTool{}}, reg)
	sink := NewSink(10)

	out, err := a.RunStreaming(context.Background(), "go", sink)
	require.NoError(t, err)
	assert.Equal(t, "done", out)

	events := drain(sink)
	var kinds []EventKind
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, EventToolCall)
	assert.Contains(t, kinds, EventToolResult)
	assert.Contains(t, kinds, EventAnswer)
}

func TestSinkDropsOnFullChannelWithoutBlocking(t *testing.T) {
	sink := NewSink(1)
	assert.True(t, sink.send(logEvent("first")))
	assert.False(t, sink.send(logEvent("second")))
}
