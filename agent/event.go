package agent

// EventKind discriminates an AgentEvent's payload (§4.1 stream taxonomy).
type EventKind string

const (
	EventThought   EventKind = "thought"
	EventToolCall  EventKind = "tool_call"
	EventToolResult EventKind = "tool_result"
	EventAnswer    EventKind = "answer"
	EventError     EventKind = "error"
	EventLog       EventKind = "log"
)

// Event is one entry in the streaming-agent event taxonomy. The server
// layer JSON-serializes it as the `event` field of each SSE `data:`
// payload, next to the run's `run_id`.
type Event struct {
	Kind EventKind `json:"kind"`

	// Thought, Answer, Error, Log carry their text in Text.
	Text string `json:"text,omitempty"`

	// ToolCall / ToolResult carry the tool name plus either its args or
	// its raw JSON result.
	ToolName   string `json:"tool_name,omitempty"`
	ToolArgs   string `json:"tool_args,omitempty"`
	ToolResult string `json:"tool_result,omitempty"`
}

func thoughtEvent(s string) Event    { return Event{Kind: EventThought, Text: s} }
func answerEvent(s string) Event     { return Event{Kind: EventAnswer, Text: s} }
func errorEvent(s string) Event      { return Event{Kind: EventError, Text: s} }
func logEvent(s string) Event        { return Event{Kind: EventLog, Text: s} }
func toolCallEvent(name, args string) Event {
	return Event{Kind: EventToolCall, ToolName: name, ToolArgs: args}
}
func toolResultEvent(name, result string) Event {
	return Event{Kind: EventToolResult, ToolName: name, ToolResult: result}
}

// Sink is a bounded, non-blocking event destination. Send never blocks the
// caller: a full channel drops the event (callers should log the drop).
type Sink struct {
	ch chan Event
}

// NewSink builds a Sink backed by a channel of the given capacity, per
// §11's ~100-event sizing guidance.
func NewSink(capacity int) *Sink {
	if capacity <= 0 {
		capacity = 100
	}
	return &Sink{ch: make(chan Event, capacity)}
}

// Events returns the receive side, for a consumer (e.g. the SSE handler)
// to range over.
func (s *Sink) Events() <-chan Event { return s.ch }

// Close closes the underlying channel. Callers must stop sending first.
func (s *Sink) Close() { close(s.ch) }

// send attempts a non-blocking send, reporting whether it was delivered.
func (s *Sink) send(e Event) bool {
	if s == nil {
		return false
	}
	select {
	case s.ch <- e:
		return true
	default:
		return false
	}
}

// SendAnswer attempts a non-blocking send of a final Answer event, for
// callers outside this package (e.g. the scheduler) projecting a run's
// overall output. A dropped send is reported, not retried.
func (s *Sink) SendAnswer(text string) bool {
	return s.send(answerEvent(text))
}
