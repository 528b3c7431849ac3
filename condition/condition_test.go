package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalStr(t *testing.T, src string, snapshot map[string]interface{}) bool {
	t.Helper()
	e, err := Parse(src)
	require.NoError(t, err)
	return e.Eval(snapshot)
}

func TestEqualityWithEpsilon(t *testing.T) {
	snap := map[string]interface{}{"score": 0.1 + 0.2}
	assert.True(t, evalStr(t, "score == 0.3", snap))
}

func TestMissingPathEqualsNull(t *testing.T) {
	snap := map[string]interface{}{}
	assert.True(t, evalStr(t, "missing.path == null", snap))
}

func TestNumericComparisons(t *testing.T) {
	snap := map[string]interface{}{"n": 5.0}
	assert.True(t, evalStr(t, "n > 3", snap))
	assert.True(t, evalStr(t, "n >= 5", snap))
	assert.False(t, evalStr(t, "n < 3", snap))
}

func TestNonNumericComparisonIsFalse(t *testing.T) {
	snap := map[string]interface{}{"s": "abc"}
	assert.False(t, evalStr(t, "s > 3", snap))
}

func TestContainsStringSubstring(t *testing.T) {
	snap := map[string]interface{}{"text": "hello world"}
	assert.True(t, evalStr(t, "text contains 'world'", snap))
	assert.False(t, evalStr(t, "text contains 'bye'", snap))
}

func TestContainsArrayMembership(t *testing.T) {
	snap := map[string]interface{}{"tags": []interface{}{"a", "b", "c"}}
	assert.True(t, evalStr(t, "tags contains 'b'", snap))
	assert.False(t, evalStr(t, "tags contains 'z'", snap))
}

// Left-to-right first-match scanning: "a or b and c" parses as
// a or (b and c), because " or " is the first connective found — no
// precedence between and/or.
func TestLeftToRightFirstMatchScanning(t *testing.T) {
	snap := map[string]interface{}{"a": true, "b": false, "c": false}
	e, err := Parse("a == true or b == true and c == true")
	require.NoError(t, err)
	// First top-level connective encountered is " or ", splitting into
	// "a == true" OR "b == true and c == true".
	assert.True(t, e.Eval(snap))
}

func TestQuotedStringsSuppressOperatorRecognition(t *testing.T) {
	snap := map[string]interface{}{"s": "a and b"}
	assert.True(t, evalStr(t, "s == 'a and b'", snap))
}

func TestParenthesesParticipateInDepthTracking(t *testing.T) {
	snap := map[string]interface{}{"a": true, "b": true, "c": false}
	assert.False(t, evalStr(t, "(a == true and b == true) and c == true", snap))
}

func TestBooleanLiterals(t *testing.T) {
	assert.True(t, evalStr(t, "true", nil))
	assert.False(t, evalStr(t, "false", nil))
}

func TestEvalDoesNotMutateSnapshot(t *testing.T) {
	snap := map[string]interface{}{"n": 1.0}
	before := snap["n"]
	evalStr(t, "n == 1", snap)
	assert.Equal(t, before, snap["n"])
}
