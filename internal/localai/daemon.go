// Package localai manages the local inference daemon (Ollama): liveness
// probes, installed-model discovery, on-demand start and model warm-up.
package localai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/codefionn/kael/internal/consts"
	"github.com/codefionn/kael/internal/logger"
	"golang.org/x/sync/singleflight"
)

// DefaultEndpoint is where the daemon listens unless configured otherwise.
const DefaultEndpoint = "http://127.0.0.1:11434"

// ErrNotRunning is returned when the daemon cannot be reached, even after a
// start attempt.
var ErrNotRunning = errors.New("local AI daemon is not running")

// Starter launches the daemon process.
type Starter interface {
	Start(ctx context.Context) error
}

// Options configures a Daemon. Zero values pick the defaults.
type Options struct {
	Endpoint   string
	AutoStart  bool
	HTTPClient *http.Client
	Starter    Starter
	Logger     *logger.Logger

	Retries     int
	BackoffStep time.Duration
	BackoffMax  time.Duration
}

// Daemon is a handle on the local daemon. It is safe for concurrent use.
type Daemon struct {
	endpoint  string
	client    *http.Client
	autoStart bool
	starter   Starter
	log       *logger.Logger

	retries     int
	backoffStep time.Duration
	backoffMax  time.Duration

	models  singleflight.Group
	startMu sync.Mutex
}

// New creates a Daemon handle.
func New(opts Options) *Daemon {
	d := &Daemon{
		endpoint:    NormalizeEndpoint(opts.Endpoint),
		client:      opts.HTTPClient,
		autoStart:   opts.AutoStart,
		starter:     opts.Starter,
		log:         opts.Logger,
		retries:     opts.Retries,
		backoffStep: opts.BackoffStep,
		backoffMax:  opts.BackoffMax,
	}
	if d.client == nil {
		d.client = &http.Client{}
	}
	if d.log == nil {
		d.log = logger.Global().WithPrefix("localai")
	}
	if d.starter == nil {
		d.starter = &CommandStarter{Log: d.log}
	}
	if d.retries <= 0 {
		d.retries = consts.DaemonStartRetries
	}
	if d.backoffStep <= 0 {
		d.backoffStep = consts.DaemonBackoffStep
	}
	if d.backoffMax <= 0 {
		d.backoffMax = consts.DaemonBackoffMax
	}
	return d
}

// NormalizeEndpoint trims whitespace and trailing slashes and falls back to
// DefaultEndpoint.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return DefaultEndpoint
	}
	return endpoint
}

// Endpoint returns the daemon base URL.
func (d *Daemon) Endpoint() string {
	return d.endpoint
}

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

func (d *Daemon) fetchTags(ctx context.Context, timeout time.Duration) (*tagsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, consts.BufferSize64KB))
		return nil, fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, consts.BufferSize1MB)).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}
	return &tags, nil
}

// Ping checks that the daemon answers.
func (d *Daemon) Ping(ctx context.Context) error {
	if _, err := d.fetchTags(ctx, consts.DaemonProbeTimeout); err != nil {
		return fmt.Errorf("%w: %v", ErrNotRunning, err)
	}
	return nil
}

// Models lists installed model names. Concurrent callers share one request.
func (d *Daemon) Models(ctx context.Context) ([]string, error) {
	v, err, _ := d.models.Do("models", func() (interface{}, error) {
		tags, err := d.fetchTags(ctx, consts.DaemonModelsTimeout)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(tags.Models))
		for _, m := range tags.Models {
			name := strings.TrimSpace(m.Name)
			if name == "" {
				name = strings.TrimSpace(m.Model)
			}
			if name != "" {
				names = append(names, name)
			}
		}
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	names := v.([]string)
	out := make([]string, len(names))
	copy(out, names)
	return out, nil
}

// EnsureRunning returns nil once the daemon answers. When it does not and
// auto start is on, the daemon is started and probed with linear backoff.
// Concurrent callers share one start attempt.
func (d *Daemon) EnsureRunning(ctx context.Context) error {
	if err := d.Ping(ctx); err == nil {
		return nil
	}
	if !d.autoStart {
		return ErrNotRunning
	}

	d.startMu.Lock()
	defer d.startMu.Unlock()

	// Another caller may have started it while we waited.
	if err := d.Ping(ctx); err == nil {
		return nil
	}

	d.log.Info("local daemon at %s is down, starting it", d.endpoint)
	if err := d.starter.Start(ctx); err != nil {
		return fmt.Errorf("%w: start failed: %v", ErrNotRunning, err)
	}

	var lastErr error
	for attempt := 1; attempt <= d.retries; attempt++ {
		timer := time.NewTimer(Backoff(attempt, d.backoffStep, d.backoffMax))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if lastErr = d.Ping(ctx); lastErr == nil {
			d.log.Info("local daemon is up after %d probes", attempt)
			return nil
		}
	}
	return fmt.Errorf("%w after %d probes: %v", ErrNotRunning, d.retries, lastErr)
}

// Backoff is the wait before probe attempt n (1-based): step*n capped at max.
func Backoff(attempt int, step, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	wait := step * time.Duration(attempt)
	if wait > max {
		return max
	}
	return wait
}

type warmRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	Stream    bool   `json:"stream"`
	KeepAlive string `json:"keep_alive,omitempty"`
}

// Warm loads model into memory by sending a tiny prompt.
func (d *Daemon) Warm(ctx context.Context, model string) error {
	body, err := json.Marshal(warmRequest{Model: model, Prompt: "hi", KeepAlive: "10m"})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, consts.LocalDaemonTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("warm %s: %w", model, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, consts.BufferSize64KB))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("warm %s: status %d", model, resp.StatusCode)
	}
	return nil
}
