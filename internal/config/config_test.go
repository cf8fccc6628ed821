package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codefionn/kael/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, vars := range envBindings {
		for _, name := range vars {
			t.Setenv(name, "")
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_STATE_HOME", "/tmp/kael-state")

	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "/tmp/kael-state/kael", cfg.StateDir)
	assert.True(t, cfg.HybridMode)
	assert.Equal(t, "http://127.0.0.1:11434", cfg.Ollama.Endpoint)
	assert.Equal(t, "llama:latest", cfg.Ollama.Model)
	assert.Equal(t, 15*time.Second, cfg.Ollama.Timeout)

	tests := []struct {
		provider string
		model    string
	}{
		{"mistral", "mistral-small"},
		{"gemini", "gemini-1.5-pro"},
		{"copilot", "gpt-4o-mini"},
		{"google-one", "gemini-1.5-pro"},
		{"minstrel", "minstrel-8x7b-instruct"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			assert.Equal(t, tt.model, cfg.Provider(tt.provider).Model)
		})
	}

	assert.Equal(t, "github-copilot", cfg.Provider("copilot-cli").Binary)
	assert.Equal(t, "2024-10-01-preview", cfg.Provider("copilot").APIVersion)
	assert.Empty(t, cfg.Provider("office365").Endpoint)
	assert.Equal(t, ProviderConfig{}, cfg.Provider("unknown"))
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, "llama:latest", cfg.Ollama.Model)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
  "log_level": "debug",
  "shell": "/bin/zsh",
  "ollama": {"model": "phi3"},
  "providers": {
    "mistral": {"model": "mistral-large", "rate_limit": {"requests_per_minute": 30, "burst": 2}},
    "office365": {"endpoint": "https://example.openai.azure.com/openai/deployments/gpt"}
  }
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("OLLAMA_MODEL", "qwen2:7b")
	t.Setenv("GEMINI_MODEL", "gemini-2.0-flash")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/bin/zsh", cfg.Shell)
	assert.Equal(t, "qwen2:7b", cfg.Ollama.Model, "environment overrides the file")
	assert.Equal(t, "mistral-large", cfg.Provider("mistral").Model)
	assert.Equal(t, 30, cfg.Provider("mistral").RateLimit.RequestsPerMinute)
	assert.Equal(t, 2, cfg.Provider("mistral").RateLimit.Burst)
	assert.Equal(t, "gemini-2.0-flash", cfg.Provider("gemini").Model)
	assert.Equal(t, "https://example.openai.azure.com/openai/deployments/gpt", cfg.Provider("office365").Endpoint)
	assert.Equal(t, "https://api.mistral.ai/v1", cfg.Provider("mistral").Endpoint, "defaults survive partial overrides")
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Shell = "/usr/bin/fish"
	cfg.Providers["copilot"] = ProviderConfig{Model: "gpt-4o", APIVersion: "2024-10-01-preview"}

	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/fish", loaded.Shell)
	assert.Equal(t, "gpt-4o", loaded.Provider("copilot").Model)
}

func TestStatePaths(t *testing.T) {
	cfg := &Config{StateDir: "/var/lib/kael"}
	assert.Equal(t, "/var/lib/kael/provider_usage.json", cfg.UsagePath())
	assert.Equal(t, "/var/lib/kael/provider_order.json", cfg.OrderPath())
	assert.Equal(t, "/var/lib/kael/preferences.json", cfg.PreferencesPath())
	assert.Equal(t, "/var/lib/kael/bridge.pid", cfg.BridgePIDPath())
}

func TestSecretsPassword(t *testing.T) {
	cfg := &Config{}

	// No password configured: anything is accepted.
	require.NoError(t, cfg.ApplySecretsPassword("whatever"))

	require.NoError(t, cfg.UpdateSecretsPassword("hunter22"))
	assert.True(t, cfg.Secrets.PasswordSet)
	assert.NotEmpty(t, cfg.Secrets.Verifier)
	assert.Equal(t, "hunter22", cfg.SecretsPassword())

	reloaded := &Config{Secrets: cfg.Secrets}
	err := reloaded.ApplySecretsPassword("wrong")
	require.ErrorIs(t, err, secrets.ErrInvalidPassword)
	assert.Empty(t, reloaded.SecretsPassword())

	require.NoError(t, reloaded.ApplySecretsPassword("hunter22"))
	assert.Equal(t, "hunter22", reloaded.SecretsPassword())

	require.NoError(t, cfg.UpdateSecretsPassword(""))
	assert.False(t, cfg.Secrets.PasswordSet)
	assert.Empty(t, cfg.Secrets.Verifier)
}
