package fallback

import (
	"context"

	"github.com/codefionn/kael/internal/config"
	"github.com/codefionn/kael/internal/localai"
	"github.com/codefionn/kael/internal/provider"
)

// ModelResolver picks a model when a request leaves it empty.
type ModelResolver interface {
	DefaultModel(ctx context.Context, id provider.ID) string
}

// InstalledModels lists models the local daemon has.
type InstalledModels interface {
	Models(ctx context.Context) ([]string, error)
}

// ConfigModels resolves defaults from configuration. For the local provider
// an installed model matching the preferred families wins over the
// configured one.
type ConfigModels struct {
	Config *config.Config
	Local  InstalledModels
}

// DefaultModel implements ModelResolver.
func (m *ConfigModels) DefaultModel(ctx context.Context, id provider.ID) string {
	if id == provider.Ollama {
		if m.Local != nil {
			if installed, err := m.Local.Models(ctx); err == nil {
				if pick := localai.PickModel(installed); pick != "" {
					return pick
				}
			}
		}
		if m.Config != nil {
			return m.Config.Ollama.Model
		}
		return ""
	}
	if m.Config == nil {
		return ""
	}
	return m.Config.Provider(string(id)).Model
}
