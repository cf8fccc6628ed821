package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codefionn/kael/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderOrderDefaults(t *testing.T) {
	s := NewProviderOrderStore(filepath.Join(t.TempDir(), "provider_order.json"))
	assert.Equal(t, DefaultOrder, s.Order())

	got := s.Order()
	got[0] = provider.Anthropic
	assert.Equal(t, provider.Ollama, s.Order()[0], "Order returns a copy")
}

func TestProviderOrderAcceptsLabelsAndIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "provider_order.json")
	content := `["Google Gemini", "nonsense", "ollama", "Mistral AI", "gemini"]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s := NewProviderOrderStore(path)
	assert.Equal(t, []provider.ID{provider.Gemini, provider.Ollama, provider.Mistral}, s.Order())
}

func TestProviderOrderSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "provider_order.json")
	s := NewProviderOrderStore(path)

	require.NoError(t, s.Set([]provider.ID{provider.Copilot, "bogus", provider.Ollama}))
	assert.Equal(t, []provider.ID{provider.Copilot, provider.Ollama}, s.Order())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `["copilot","ollama"]`, string(data))
}

func TestProviderOrderWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "provider_order.json")
	s := NewProviderOrderStore(path)
	require.NoError(t, s.Watch())
	defer s.Close()

	changed := make(chan []provider.ID, 4)
	s.OnChange(func(order []provider.ID) {
		select {
		case changed <- order:
		default:
		}
	})

	other := NewProviderOrderStore(path)
	require.NoError(t, other.Set([]provider.ID{provider.Anthropic, provider.Ollama}))

	require.Eventually(t, func() bool {
		o := s.Order()
		return len(o) == 2 && o[0] == provider.Anthropic
	}, 5*time.Second, 20*time.Millisecond)

	select {
	case order := <-changed:
		assert.NotEmpty(t, order)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool {
		return s.Order()[0] == DefaultOrder[0]
	}, 5*time.Second, 20*time.Millisecond)
}
