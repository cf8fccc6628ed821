package localai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStarter struct {
	calls atomic.Int32
	err   error
	onRun func()
}

func (f *fakeStarter) Start(ctx context.Context) error {
	f.calls.Add(1)
	if f.onRun != nil {
		f.onRun()
	}
	return f.err
}

func tagsServer(t *testing.T, up *atomic.Bool, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if up != nil && !up.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[{"name":"gemma:2b"},{"name":"phi3:latest"},{"name":""},{"model":"llama3:8b"}]}`))
		case "/api/generate":
			_, _ = w.Write([]byte(`{"response":"hello","done":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", DefaultEndpoint},
		{"  ", DefaultEndpoint},
		{"http://gpu-box:11434/", "http://gpu-box:11434"},
		{"http://localhost:11434", "http://localhost:11434"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeEndpoint(tt.in))
	}
}

func TestPingAndModels(t *testing.T) {
	srv := tagsServer(t, nil, nil)
	d := New(Options{Endpoint: srv.URL})

	require.NoError(t, d.Ping(context.Background()))

	models, err := d.Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gemma:2b", "phi3:latest", "llama3:8b"}, models)
}

func TestPingDown(t *testing.T) {
	var up atomic.Bool
	srv := tagsServer(t, &up, nil)
	d := New(Options{Endpoint: srv.URL})

	err := d.Ping(context.Background())
	require.ErrorIs(t, err, ErrNotRunning)
}

func TestEnsureRunningAlreadyUp(t *testing.T) {
	srv := tagsServer(t, nil, nil)
	starter := &fakeStarter{}
	d := New(Options{Endpoint: srv.URL, AutoStart: true, Starter: starter})

	require.NoError(t, d.EnsureRunning(context.Background()))
	assert.Zero(t, starter.calls.Load())
}

func TestEnsureRunningStartsDaemon(t *testing.T) {
	var up atomic.Bool
	srv := tagsServer(t, &up, nil)
	starter := &fakeStarter{onRun: func() { up.Store(true) }}
	d := New(Options{
		Endpoint:    srv.URL,
		AutoStart:   true,
		Starter:     starter,
		BackoffStep: time.Millisecond,
		BackoffMax:  5 * time.Millisecond,
	})

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = d.EnsureRunning(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), starter.calls.Load(), "one start for concurrent callers")
}

func TestEnsureRunningGivesUp(t *testing.T) {
	var up atomic.Bool
	srv := tagsServer(t, &up, nil)
	d := New(Options{
		Endpoint:    srv.URL,
		AutoStart:   true,
		Starter:     &fakeStarter{},
		Retries:     3,
		BackoffStep: time.Millisecond,
		BackoffMax:  time.Millisecond,
	})

	err := d.EnsureRunning(context.Background())
	require.ErrorIs(t, err, ErrNotRunning)
	assert.Contains(t, err.Error(), "after 3 probes")
}

func TestEnsureRunningStartFailure(t *testing.T) {
	var up atomic.Bool
	srv := tagsServer(t, &up, nil)
	d := New(Options{Endpoint: srv.URL, AutoStart: true, Starter: &fakeStarter{err: errors.New("ollama not installed")}})

	err := d.EnsureRunning(context.Background())
	require.ErrorIs(t, err, ErrNotRunning)
	assert.Contains(t, err.Error(), "ollama not installed")
}

func TestEnsureRunningWithoutAutoStart(t *testing.T) {
	var up atomic.Bool
	srv := tagsServer(t, &up, nil)
	starter := &fakeStarter{}
	d := New(Options{Endpoint: srv.URL, Starter: starter})

	require.ErrorIs(t, d.EnsureRunning(context.Background()), ErrNotRunning)
	assert.Zero(t, starter.calls.Load())
}

func TestBackoff(t *testing.T) {
	step, max := 500*time.Millisecond, 5*time.Second
	assert.Equal(t, 500*time.Millisecond, Backoff(0, step, max))
	assert.Equal(t, 500*time.Millisecond, Backoff(1, step, max))
	assert.Equal(t, 1500*time.Millisecond, Backoff(3, step, max))
	assert.Equal(t, 5*time.Second, Backoff(10, step, max))
	assert.Equal(t, 5*time.Second, Backoff(25, step, max))
}

func TestWarm(t *testing.T) {
	srv := tagsServer(t, nil, nil)
	d := New(Options{Endpoint: srv.URL})
	require.NoError(t, d.Warm(context.Background(), "phi3:latest"))

	var up atomic.Bool
	down := tagsServer(t, &up, nil)
	require.Error(t, New(Options{Endpoint: down.URL}).Warm(context.Background(), "phi3:latest"))
}
