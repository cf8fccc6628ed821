package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/codefionn/kael/internal/secrets"
	"github.com/spf13/viper"
)

const appName = "kael"

// verifierPlaintext is sealed with the secrets password so a wrong password
// is detected before any key file is touched.
const verifierPlaintext = "kael-secrets-verifier"

// ProviderConfig holds per-provider overrides. Which fields matter depends on
// the provider: Binary is only read by CLI-backed providers, APIVersion only
// by the GitHub Models endpoint.
type ProviderConfig struct {
	Model      string          `mapstructure:"model" json:"model,omitempty"`
	Endpoint   string          `mapstructure:"endpoint" json:"endpoint,omitempty"`
	APIVersion string          `mapstructure:"api_version" json:"api_version,omitempty"`
	Binary     string          `mapstructure:"binary" json:"binary,omitempty"`
	Timeout    time.Duration   `mapstructure:"timeout" json:"timeout,omitempty"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit" json:"rate_limit,omitempty"`
}

// RateLimitConfig throttles requests to a single provider.
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute" json:"requests_per_minute,omitempty"`
	Burst             int `mapstructure:"burst" json:"burst,omitempty"`
}

// OllamaConfig configures the local inference daemon.
type OllamaConfig struct {
	Endpoint  string        `mapstructure:"endpoint" json:"endpoint"`
	Model     string        `mapstructure:"model" json:"model"`
	AutoStart bool          `mapstructure:"auto_start" json:"auto_start"`
	Timeout   time.Duration `mapstructure:"timeout" json:"timeout,omitempty"`
	Warmup    []string      `mapstructure:"warmup" json:"warmup,omitempty"`
}

// CredentialsConfig locates the credential sources.
type CredentialsConfig struct {
	KeyCachePath string `mapstructure:"key_cache_path" json:"key_cache_path,omitempty"`
	RemoteURL    string `mapstructure:"remote_url" json:"remote_url,omitempty"`
}

// SecretsSettings keeps track of password-protection state.
type SecretsSettings struct {
	PasswordSet bool   `mapstructure:"password_set" json:"password_set,omitempty"`
	Verifier    string `mapstructure:"verifier" json:"verifier,omitempty"`
}

// Config is the application configuration.
type Config struct {
	LogLevel          string                    `mapstructure:"log_level" json:"log_level"`
	LogPath           string                    `mapstructure:"log_path" json:"log_path,omitempty"`
	StateDir          string                    `mapstructure:"state_dir" json:"state_dir,omitempty"`
	Shell             string                    `mapstructure:"shell" json:"shell,omitempty"`
	HybridMode        bool                      `mapstructure:"hybrid_mode" json:"hybrid_mode"`
	BridgeAddr        string                    `mapstructure:"bridge_addr" json:"bridge_addr,omitempty"`
	SystemContextPath string                    `mapstructure:"system_context_path" json:"system_context_path,omitempty"`
	Ollama            OllamaConfig              `mapstructure:"ollama" json:"ollama"`
	Providers         map[string]ProviderConfig `mapstructure:"providers" json:"providers,omitempty"`
	Credentials       CredentialsConfig         `mapstructure:"credentials" json:"credentials"`
	Secrets           SecretsSettings           `mapstructure:"secrets" json:"secrets,omitempty"`

	secretsPassword string
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", appName)
	default:
		if configHome := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); configHome != "" {
			return filepath.Join(configHome, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", appName)
	}
}

func defaultStateDir() string {
	switch runtime.GOOS {
	case "windows":
		if localAppData := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); localAppData != "" {
			return filepath.Join(localAppData, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Local", appName)
	default:
		if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
			return filepath.Join(stateHome, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".local", "state", appName)
	}
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string][]string{
	"log_level":                       {"KAEL_LOG_LEVEL"},
	"log_path":                        {"KAEL_LOG_PATH"},
	"state_dir":                       {"KAEL_STATE_DIR"},
	"shell":                           {"KAEL_SHELL"},
	"hybrid_mode":                     {"KAEL_HYBRID_MODE"},
	"bridge_addr":                     {"KAEL_BRIDGE_ADDR"},
	"system_context_path":             {"KAEL_SYSTEM_CONTEXT"},
	"credentials.key_cache_path":      {"KAEL_KEY_CACHE"},
	"credentials.remote_url":          {"KAEL_REMOTE_KEYS_URL"},
	"ollama.endpoint":                 {"OLLAMA_ENDPOINT"},
	"ollama.model":                    {"OLLAMA_MODEL"},
	"ollama.auto_start":               {"KAEL_OLLAMA_AUTOSTART"},
	"providers.mistral.model":         {"MISTRAL_MODEL"},
	"providers.mistral.endpoint":      {"MISTRAL_ENDPOINT"},
	"providers.gemini.model":          {"GEMINI_MODEL"},
	"providers.copilot.model":         {"GITHUB_COPILOT_MODEL"},
	"providers.copilot.endpoint":      {"GITHUB_COPILOT_ENDPOINT"},
	"providers.copilot.api_version":   {"GITHUB_COPILOT_API_VERSION"},
	"providers.copilot-cli.model":     {"GITHUB_COPILOT_MODEL"},
	"providers.copilot-cli.binary":    {"COPILOT_AGENT_BIN"},
	"providers.office365.model":       {"OFFICE365AI_MODEL"},
	"providers.office365.endpoint":    {"OFFICE365AI_ENDPOINT"},
	"providers.office365.api_version": {"OFFICE365AI_API_VERSION"},
	"providers.google-one.model":      {"GOOGLEONEAI_MODEL"},
	"providers.minstrel.model":        {"MINSTREL_MODEL"},
	"providers.minstrel.endpoint":     {"MINSTREL_ENDPOINT"},
	"providers.anthropic.model":       {"ANTHROPIC_MODEL"},
	"providers.anthropic.endpoint":    {"ANTHROPIC_BASE_URL"},
}

func setDefaults(v *viper.Viper) {
	stateDir := defaultStateDir()

	v.SetDefault("log_level", "info")
	v.SetDefault("log_path", filepath.Join(stateDir, "kael.log"))
	v.SetDefault("state_dir", stateDir)
	v.SetDefault("shell", "")
	v.SetDefault("hybrid_mode", true)
	v.SetDefault("bridge_addr", "127.0.0.1:7681")
	v.SetDefault("system_context_path", filepath.Join(defaultConfigDir(), "system_context.json"))

	v.SetDefault("ollama.endpoint", "http://127.0.0.1:11434")
	v.SetDefault("ollama.model", "llama:latest")
	v.SetDefault("ollama.auto_start", true)
	v.SetDefault("ollama.timeout", 15*time.Second)
	v.SetDefault("ollama.warmup", []string{"llama:latest", "phi3"})

	v.SetDefault("providers.mistral.model", "mistral-small")
	v.SetDefault("providers.mistral.endpoint", "https://api.mistral.ai/v1")
	v.SetDefault("providers.gemini.model", "gemini-1.5-pro")
	v.SetDefault("providers.copilot.model", "gpt-4o-mini")
	v.SetDefault("providers.copilot.endpoint", "https://models.inference.ai.azure.com")
	v.SetDefault("providers.copilot.api_version", "2024-10-01-preview")
	v.SetDefault("providers.copilot-cli.model", "gpt-4o-mini")
	v.SetDefault("providers.copilot-cli.binary", "github-copilot")
	v.SetDefault("providers.office365.model", "gpt-4o-mini")
	v.SetDefault("providers.office365.api_version", "2024-10-21")
	v.SetDefault("providers.google-one.model", "gemini-1.5-pro")
	v.SetDefault("providers.minstrel.model", "minstrel-8x7b-instruct")
	v.SetDefault("providers.minstrel.endpoint", "https://api.minstral.ai/v1")
	v.SetDefault("providers.anthropic.model", "claude-3-5-sonnet-20241022")

	v.SetDefault("credentials.key_cache_path", filepath.Join(stateDir, "cached_api_keys.json"))
	v.SetDefault("credentials.remote_url", "")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	for key, vars := range envBindings {
		args := append([]string{key}, vars...)
		_ = v.BindEnv(args...)
	}
	return v
}

// DefaultConfig returns the configuration with defaults and environment
// overrides applied but no config file.
func DefaultConfig() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		// Defaults alone always decode; reaching this is a programming error.
		panic(fmt.Sprintf("config: decode defaults: %v", err))
	}
	return cfg
}

// Load reads the JSON config file at path (a missing file is not an error),
// then applies environment overrides on top of it.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("json")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	return &cfg, nil
}

// Provider returns the settings for the provider with the given id. Missing
// providers yield the zero value.
func (c *Config) Provider(id string) ProviderConfig {
	if c == nil || c.Providers == nil {
		return ProviderConfig{}
	}
	return c.Providers[id]
}

// UsagePath is the JSON file holding per-provider usage counts.
func (c *Config) UsagePath() string {
	return filepath.Join(c.StateDir, "provider_usage.json")
}

// OrderPath is the JSON file holding the user's provider priority order.
func (c *Config) OrderPath() string {
	return filepath.Join(c.StateDir, "provider_order.json")
}

// PreferencesPath is the JSON file holding routing preferences.
func (c *Config) PreferencesPath() string {
	return filepath.Join(c.StateDir, "preferences.json")
}

// BridgePIDPath is the pid file held by a running terminal bridge.
func (c *Config) BridgePIDPath() string {
	return filepath.Join(c.StateDir, "bridge.pid")
}

// Save writes the configuration as JSON.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// GetConfigPath returns the default config path
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}

// ApplySecretsPassword verifies password against the stored verifier and
// records it for sealing and opening cached keys.
func (c *Config) ApplySecretsPassword(password string) error {
	if err := c.verifyPassword(password); err != nil {
		return err
	}
	c.secretsPassword = password
	return nil
}

// SecretsPassword returns the active secrets password (empty string by default).
func (c *Config) SecretsPassword() string {
	return c.secretsPassword
}

// UpdateSecretsPassword switches the password and regenerates the verifier.
func (c *Config) UpdateSecretsPassword(password string) error {
	if c == nil {
		return nil
	}
	c.Secrets.PasswordSet = password != ""
	c.Secrets.Verifier = ""
	if password != "" {
		verifier, err := secrets.EncryptString(verifierPlaintext, password)
		if err != nil {
			return fmt.Errorf("seal verifier: %w", err)
		}
		c.Secrets.Verifier = verifier
	}
	c.secretsPassword = password
	return nil
}

func (c *Config) verifyPassword(password string) error {
	if !c.Secrets.PasswordSet || c.Secrets.Verifier == "" {
		return nil
	}
	plain, _, err := secrets.DecryptString(c.Secrets.Verifier, password)
	if err != nil {
		return err
	}
	if plain != verifierPlaintext {
		return secrets.ErrInvalidPassword
	}
	return nil
}
