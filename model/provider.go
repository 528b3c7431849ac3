package model

import (
	"fmt"
	"os"
	"strings"
)

// Provider names the inferred or explicit model backend, per §4.11 step 3.
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderDeepSeek  Provider = "deepseek"
	ProviderOllama    Provider = "ollama"
)

// InferProvider resolves the provider for a node's ModelSpec following the
// precedence of §4.11: explicit field > env MODEL_PROVIDER > prefix
// inference on the model name > default Gemini.
func InferProvider(spec Spec, lookupEnv func(string) string) Provider {
	if lookupEnv == nil {
		lookupEnv = os.Getenv
	}
	if spec.Provider != "" {
		return Provider(strings.ToLower(spec.Provider))
	}
	if envProvider := lookupEnv("MODEL_PROVIDER"); envProvider != "" {
		return Provider(strings.ToLower(envProvider))
	}
	name := strings.ToLower(spec.ModelName)
	switch {
	case strings.HasPrefix(name, "gemini"):
		return ProviderGemini
	case strings.HasPrefix(name, "gpt") || strings.HasPrefix(name, "o1"):
		return ProviderOpenAI
	case strings.HasPrefix(name, "claude"):
		return ProviderAnthropic
	case strings.HasPrefix(name, "deepseek"):
		return ProviderDeepSeek
	default:
		return ProviderGemini
	}
}

// ResolveModelName applies §6's environment fallbacks: the spec's own
// ModelName, then MODEL_NAME, then GEMINI_MODEL.
func ResolveModelName(spec Spec, lookupEnv func(string) string) (string, error) {
	if lookupEnv == nil {
		lookupEnv = os.Getenv
	}
	if spec.ModelName != "" {
		return spec.ModelName, nil
	}
	if name := lookupEnv("MODEL_NAME"); name != "" {
		return name, nil
	}
	if name := lookupEnv("GEMINI_MODEL"); name != "" {
		return name, nil
	}
	return "", fmt.Errorf("no model name specified and no MODEL_NAME/GEMINI_MODEL fallback set")
}
