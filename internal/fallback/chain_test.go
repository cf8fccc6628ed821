package fallback

import (
	"context"
	"errors"
	"testing"

	"github.com/codefionn/kael/internal/config"
	"github.com/codefionn/kael/internal/provider"
	"github.com/stretchr/testify/assert"
)

func TestDefaultChain(t *testing.T) {
	assert.Equal(t, []provider.ID{
		provider.Mistral, provider.Gemini, provider.Copilot,
		provider.CopilotCLI, provider.Office365, provider.GoogleOne,
	}, DefaultChain().IDs())
}

func TestChainFromOrder(t *testing.T) {
	order := []provider.ID{provider.Ollama, "nope", provider.Gemini, provider.Mistral, provider.Gemini}
	assert.Equal(t, []provider.ID{provider.Gemini, provider.Mistral}, ChainFromOrder(order, provider.Ollama).IDs())
	assert.Empty(t, ChainFromOrder(nil, provider.Ollama))
}

type fakeInstalled struct {
	models []string
	err    error
}

func (f fakeInstalled) Models(ctx context.Context) ([]string, error) { return f.models, f.err }

func TestConfigModels(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Ollama.Model = "configured:latest"

	tests := []struct {
		name  string
		local InstalledModels
		id    provider.ID
		want  string
	}{
		{name: "installed priority", local: fakeInstalled{models: []string{"gemma:2b", "phi3:latest"}}, id: provider.Ollama, want: "phi3:latest"},
		{name: "daemon down", local: fakeInstalled{err: errors.New("down")}, id: provider.Ollama, want: "configured:latest"},
		{name: "nothing installed", local: fakeInstalled{}, id: provider.Ollama, want: "configured:latest"},
		{name: "cloud default", id: provider.Mistral, want: cfg.Provider("mistral").Model},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &ConfigModels{Config: cfg, Local: tt.local}
			assert.Equal(t, tt.want, m.DefaultModel(context.Background(), tt.id))
		})
	}
}
