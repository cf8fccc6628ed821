package llm

import (
	"github.com/codefionn/kael/internal/config"
	"github.com/codefionn/kael/internal/provider"
)

// NewRegistryFromConfig builds the adapter for every provider from cfg. Per
// provider rate limits in cfg wrap the matching adapter.
func NewRegistryFromConfig(cfg *config.Config, daemon LocalDaemon) *Registry {
	p := cfg.Provider

	adapters := []Adapter{
		NewOllamaAdapter(daemon, cfg.Ollama.Model, cfg.Ollama.Timeout),
		NewMistralAdapter(p("mistral").Endpoint, p("mistral").Model, p("mistral").Timeout),
		NewGoogleAdapter(provider.Gemini, p("gemini").Endpoint, p("gemini").Model, p("gemini").Timeout),
		NewCopilotAdapter(p("copilot").Endpoint, p("copilot").Model, p("copilot").APIVersion, p("copilot").Timeout),
		NewCopilotCLIAdapter(p("copilot-cli").Binary, p("copilot-cli").Timeout),
		NewOffice365Adapter(p("office365").Endpoint, p("office365").Model, p("office365").APIVersion, p("office365").Timeout),
		NewGoogleAdapter(provider.GoogleOne, p("google-one").Endpoint, p("google-one").Model, p("google-one").Timeout),
		NewMinstrelAdapter(p("minstrel").Endpoint, p("minstrel").Model, p("minstrel").Timeout),
		NewAnthropicAdapter(p("anthropic").Endpoint, p("anthropic").Model, p("anthropic").Timeout),
	}

	r := NewRegistry()
	for _, a := range adapters {
		limit := p(string(a.ID())).RateLimit
		r.Register(RateLimited(a, limit.RequestsPerMinute, limit.Burst))
	}
	return r
}
