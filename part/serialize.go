package part

// Outbound describes the subset of a Content's parts a provider adapter
// should actually transmit, per §4.1's serialization rules: Thinking parts
// are always omitted, and every other part (in order) carries its
// ThoughtSignature verbatim when the part is a ToolCall that has one.
func Outbound(c Content) []Part {
	out := make([]Part, 0, len(c.Parts))
	for _, p := range c.Parts {
		if p.Kind == KindThinking {
			continue
		}
		out = append(out, p)
	}
	return out
}

// InboundPart describes one piece of a provider's raw response, as seen
// before it is split into Parts. A provider adapter may observe a single
// underlying response chunk that carries both thinking and text/tool-call
// content; Split below emits the two parts in encountered order, as §4.1
// requires.
type InboundPart struct {
	Thinking         string
	Text             string
	ToolCallName     string
	ToolCallArgs     []byte
	ThoughtSignature string
	IsToolCall       bool
}

// Split converts one raw inbound chunk into an ordered slice of Parts,
// emitting a Thinking part before the text/tool-call part when both are
// present on the same chunk.
func Split(in InboundPart) []Part {
	var out []Part
	if in.Thinking != "" {
		out = append(out, Thinking(in.Thinking))
	}
	switch {
	case in.IsToolCall:
		out = append(out, ToolCall(in.ToolCallName, in.ToolCallArgs, in.ThoughtSignature))
	case in.Text != "":
		out = append(out, Text(in.Text))
	}
	return out
}
