package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnvDefaultFallsBackWhenUnset(t *testing.T) {
	t.Setenv("FLOWFORGE_UNSET_VAR", "")
	out := ExpandEnv([]byte("model: ${FLOWFORGE_UNSET_VAR:-gemini-2.0-flash}"))
	assert.Equal(t, "model: gemini-2.0-flash", string(out))
}

func TestExpandEnvBracedUsesSetValue(t *testing.T) {
	t.Setenv("FLOWFORGE_API_KEY", "secret")
	out := ExpandEnv([]byte("api_key: ${FLOWFORGE_API_KEY}"))
	assert.Equal(t, "api_key: secret", string(out))
}

func TestExpandEnvSimpleForm(t *testing.T) {
	t.Setenv("FLOWFORGE_HOST", "localhost")
	out := ExpandEnv([]byte("host: $FLOWFORGE_HOST"))
	assert.Equal(t, "host: localhost", string(out))
}

func TestExpandEnvLeavesPlainTextUntouched(t *testing.T) {
	out := ExpandEnv([]byte("name: echo\ninstructions: say hi"))
	assert.Equal(t, "name: echo\ninstructions: say hi", string(out))
}
