package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/codefionn/kael/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDaemon struct {
	endpoint  string
	ensureErr error
	models    []string
	modelsErr error
}

func (f *fakeDaemon) Endpoint() string                        { return f.endpoint }
func (f *fakeDaemon) EnsureRunning(ctx context.Context) error { return f.ensureErr }
func (f *fakeDaemon) Models(ctx context.Context) ([]string, error) {
	return f.models, f.modelsErr
}

type generateRecorder struct {
	mu     sync.Mutex
	models []string
}

func (g *generateRecorder) add(m string) {
	g.mu.Lock()
	g.models = append(g.models, m)
	g.mu.Unlock()
}

func (g *generateRecorder) seen() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.models...)
}

// ollamaServer answers generate calls; handler decides per model.
func ollamaServer(t *testing.T, rec *generateRecorder, handler func(w http.ResponseWriter, req ollamaGenerateRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		var req ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		rec.add(req.Model)
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaSend(t *testing.T) {
	rec := &generateRecorder{}
	srv := ollamaServer(t, rec, func(w http.ResponseWriter, req ollamaGenerateRequest) {
		assert.Equal(t, "be brief", req.System)
		_, _ = w.Write([]byte(`{"model":"llama3","response":" 42 ","done":true}`))
	})
	a := NewOllamaAdapter(&fakeDaemon{endpoint: srv.URL}, "llama3", time.Second)

	resp, err := a.Send(context.Background(), Request{Provider: provider.Ollama, Prompt: "answer?", SystemPrompt: "be brief"})
	require.NoError(t, err)
	assert.Equal(t, "42", resp.Content)
	assert.Equal(t, provider.Ollama, resp.Provider)
	assert.Equal(t, []string{"llama3"}, rec.seen())
}

func TestOllamaRetriesExactlyOneAlternateModel(t *testing.T) {
	rec := &generateRecorder{}
	srv := ollamaServer(t, rec, func(w http.ResponseWriter, req ollamaGenerateRequest) {
		if req.Model == "phi3:latest" {
			_, _ = w.Write([]byte(`{"response":"from phi"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model '` + req.Model + `' not found"}`))
	})
	daemon := &fakeDaemon{endpoint: srv.URL, models: []string{"gemma:2b", "phi3:latest"}}
	a := NewOllamaAdapter(daemon, "llama:latest", time.Second)

	resp, err := a.Send(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "from phi", resp.Content)
	assert.Equal(t, "phi3:latest", resp.Model)
	assert.Equal(t, []string{"llama:latest", "phi3:latest"}, rec.seen())
}

func TestOllamaAlternateAlsoMissing(t *testing.T) {
	rec := &generateRecorder{}
	srv := ollamaServer(t, rec, func(w http.ResponseWriter, req ollamaGenerateRequest) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	})
	daemon := &fakeDaemon{endpoint: srv.URL, models: []string{"a", "b", "c"}}
	a := NewOllamaAdapter(daemon, "llama:latest", time.Second)

	_, err := a.Send(context.Background(), Request{Prompt: "hi"})
	require.ErrorIs(t, err, ErrBackendError)
	assert.Len(t, rec.seen(), 2, "one alternate only")
}

func TestOllamaNotFoundWithoutAlternates(t *testing.T) {
	rec := &generateRecorder{}
	srv := ollamaServer(t, rec, func(w http.ResponseWriter, req ollamaGenerateRequest) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	})

	for _, daemon := range []*fakeDaemon{
		{endpoint: srv.URL, models: []string{"llama:latest"}},
		{endpoint: srv.URL, modelsErr: errors.New("tags failed")},
	} {
		a := NewOllamaAdapter(daemon, "llama:latest", time.Second)
		_, err := a.Send(context.Background(), Request{Prompt: "hi"})
		require.ErrorIs(t, err, ErrBackendError)
	}
	assert.Len(t, rec.seen(), 2)
}

func TestOllamaFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler func(w http.ResponseWriter, r *http.Request)
		want    error
	}{
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			want:    ErrBackendError,
		},
		{
			name:    "bad json",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("<html>")) },
			want:    ErrParseError,
		},
		{
			name:    "empty",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"response":"  "}`)) },
			want:    ErrEmptyResponse,
		},
		{
			name: "slow",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			want: ErrTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(tt.handler))
			defer srv.Close()

			a := NewOllamaAdapter(&fakeDaemon{endpoint: srv.URL}, "m", 100*time.Millisecond)
			_, err := a.Send(context.Background(), Request{Prompt: "hi"})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOllamaDaemonDown(t *testing.T) {
	a := NewOllamaAdapter(&fakeDaemon{endpoint: "http://127.0.0.1:1", ensureErr: errors.New("not running")}, "m", time.Second)
	_, err := a.Send(context.Background(), Request{Prompt: "hi"})
	require.ErrorIs(t, err, ErrUnavailable)
}
