package router

import (
	"context"
	"errors"
	"testing"

	"github.com/codefionn/kael/internal/provider"
	"github.com/stretchr/testify/assert"
)

func TestRouteCommand(t *testing.T) {
	d := Route("  !echo hi  ", provider.Mistral, false)
	assert.True(t, d.IsCommand)
	assert.Equal(t, "echo hi", d.Command)

	d = Route("ls -la", provider.Mistral, false)
	assert.True(t, d.IsCommand)
	assert.Equal(t, "ls -la", d.Command)
}

func TestRoutePrompt(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		preferred provider.ID
		gpuBusy   bool
		want      Decision
	}{
		{
			name:      "system query forces local",
			input:     "how are you",
			preferred: provider.Gemini,
			want:      Decision{Category: Quick, Provider: provider.Ollama, Model: "phi3:latest"},
		},
		{
			name:      "cloud preference kept",
			input:     "fix this rust function",
			preferred: provider.Mistral,
			want:      Decision{Category: Coding, Provider: provider.Mistral},
		},
		{
			name:      "local coding with free gpu",
			input:     "fix this rust function",
			preferred: provider.Ollama,
			want:      Decision{Category: Coding, Provider: provider.Ollama, Model: "deepseek-coder:6.7b"},
		},
		{
			name:      "local coding with busy gpu",
			input:     "fix this rust function",
			preferred: provider.Ollama,
			gpuBusy:   true,
			want:      Decision{Category: Coding, Provider: provider.Ollama, Model: "phi3:latest"},
		},
		{
			name:      "no preference",
			input:     "tell me a joke",
			preferred: "",
			want:      Decision{Category: Quick, Provider: provider.Ollama, Model: "phi3:latest"},
		},
		{
			name:      "system category leaves model to daemon",
			input:     "please reboot the kernel",
			preferred: provider.Ollama,
			want:      Decision{Category: System, Provider: provider.Ollama},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Route(tt.input, tt.preferred, tt.gpuBusy))
		})
	}
}

func TestStatusMessage(t *testing.T) {
	assert.Contains(t, StatusMessage(Coding, false), "deepseek-coder")
	assert.Contains(t, StatusMessage(Coding, true), "CPU")
	assert.Equal(t, "Using phi3 for quick answers", StatusMessage(Quick, true))
	assert.Equal(t, "Using local system assistant", StatusMessage(System, false))
}

func TestGPUProbe(t *testing.T) {
	tests := []struct {
		name string
		out  string
		err  error
		want bool
	}{
		{name: "idle", out: "3\n", want: false},
		{name: "busy", out: "87\n", want: true},
		{name: "second gpu busy", out: "0\n99\n", want: true},
		{name: "threshold is exclusive", out: "50", want: false},
		{name: "garbage", out: "No devices were found", want: false},
		{name: "missing tool", err: errors.New("exec: not found"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := NewGPUProbe(func(ctx context.Context, name string, args ...string) ([]byte, error) {
				assert.Equal(t, "nvidia-smi", name)
				return []byte(tt.out), tt.err
			})
			assert.Equal(t, tt.want, probe.Busy(context.Background()))
		})
	}
}
