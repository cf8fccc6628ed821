package provider

import (
	"os"
	"strings"
)

// envVars maps providers to the environment variables that can supply their
// API keys. Later entries are aliases.
var envVars = map[ID][]string{
	Mistral:   {"MISTRAL_API_KEY"},
	Gemini:    {"GEMINI_API_KEY", "GOOGLE_API_KEY", "GOOGLE_GENAI_API_KEY"},
	Copilot:   {"GITHUB_COPILOT_API_KEY", "GITHUB_TOKEN"},
	Office365: {"OFFICE365AI_API_KEY", "AZURE_OPENAI_API_KEY"},
	GoogleOne: {"GOOGLEONEAI_API_KEY", "GOOGLE_API_KEY"},
	Minstrel:  {"MINSTREL_API_KEY"},
	Anthropic: {"ANTHROPIC_API_KEY"},
}

// resolveAPIKey returns explicit when set, otherwise the first non-empty
// environment variable for the provider. Empty means no key.
func resolveAPIKey(id ID, explicit string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}

	for _, envVar := range envVars[id] {
		if value := strings.TrimSpace(os.Getenv(envVar)); value != "" {
			return value
		}
	}
	return ""
}

// EnvAPIKey looks up the provider's key in the environment.
func EnvAPIKey(id ID) string {
	return resolveAPIKey(id, "")
}

// EnvVarHints returns the known environment variables for a provider, for
// help text.
func EnvVarHints(id ID) []string {
	hints := envVars[id]
	out := make([]string, len(hints))
	copy(out, hints)
	return out
}
