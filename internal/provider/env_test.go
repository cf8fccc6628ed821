package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveAPIKeyPrefersExplicit(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", "env-key")
	assert.Equal(t, "explicit-key", resolveAPIKey(Mistral, "  explicit-key "))
}

func TestResolveAPIKeyFallsBackToEnv(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", " env-key ")
	assert.Equal(t, "env-key", EnvAPIKey(Mistral))

	// Aliases are consulted in order.
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "google-key")
	assert.Equal(t, "google-key", EnvAPIKey(Gemini))

	assert.Empty(t, EnvAPIKey(Ollama))
}

func TestEnvVarHintsCopiesSlice(t *testing.T) {
	hints := EnvVarHints(Gemini)
	if assert.NotEmpty(t, hints) {
		hints[0] = "mutated"
	}
	assert.Equal(t, "GEMINI_API_KEY", EnvVarHints(Gemini)[0])
}
