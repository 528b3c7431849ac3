package part

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboundDropsThinking(t *testing.T) {
	c := NewContent(RoleModel,
		Thinking("internal reasoning"),
		Text("hello"),
		ToolCall("lookup", []byte(`{"q":"a"}`), "sig-123"),
	)

	out := Outbound(c)
	require.Len(t, out, 2)
	assert.Equal(t, KindText, out[0].Kind)
	assert.Equal(t, KindToolCall, out[1].Kind)
	assert.Equal(t, "sig-123", out[1].ToolCall.ThoughtSignature)
}

func TestSplitEncountersThoughtThenToolCall(t *testing.T) {
	parts := Split(InboundPart{
		Thinking:   "let me think",
		IsToolCall: true,
		ToolCallName: "search",
		ToolCallArgs: []byte(`{}`),
	})
	require.Len(t, parts, 2)
	assert.Equal(t, KindThinking, parts[0].Kind)
	assert.Equal(t, KindToolCall, parts[1].Kind)
}

func TestFirstNonEmptyText(t *testing.T) {
	c := NewContent(RoleModel, Text(""), Text("answer"), Text("ignored"))
	text, ok := c.FirstNonEmptyText()
	require.True(t, ok)
	assert.Equal(t, "answer", text)
}

func TestContentIsEmpty(t *testing.T) {
	assert.True(t, Content{}.IsEmpty())
	assert.True(t, NewContent(RoleModel, Text("")).IsEmpty())
	assert.False(t, NewContent(RoleModel, Text("x")).IsEmpty())
}
