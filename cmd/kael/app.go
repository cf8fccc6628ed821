package main

import (
	"context"
	"os"
	"strings"

	"github.com/codefionn/kael/internal/assistant"
	"github.com/codefionn/kael/internal/auth"
	"github.com/codefionn/kael/internal/config"
	"github.com/codefionn/kael/internal/consts"
	"github.com/codefionn/kael/internal/credentials"
	"github.com/codefionn/kael/internal/fallback"
	"github.com/codefionn/kael/internal/health"
	"github.com/codefionn/kael/internal/llm"
	"github.com/codefionn/kael/internal/localai"
	"github.com/codefionn/kael/internal/logger"
	"github.com/codefionn/kael/internal/metrics"
	"github.com/codefionn/kael/internal/provider"
	"github.com/codefionn/kael/internal/pty"
	"github.com/codefionn/kael/internal/router"
	"github.com/codefionn/kael/internal/secrets"
	"github.com/codefionn/kael/internal/state"
	"github.com/prometheus/client_golang/prometheus"
)

// app holds every long-lived component of one kael process.
type app struct {
	cfg      *config.Config
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	daemon   *localai.Daemon
	keys     *credentials.Store
	usage    *state.UsageTracker
	order    *state.ProviderOrderStore
	prefs    *state.PreferencesStore
	shell    *assistant.Shell
	monitor  *health.Monitor
	user     *auth.User
}

func newApp(c *config.Config) *app {
	a := &app{cfg: c, registry: prometheus.NewRegistry()}
	a.metrics = metrics.New(a.registry)

	a.daemon = localai.New(localai.Options{
		Endpoint:  c.Ollama.Endpoint,
		AutoStart: c.Ollama.AutoStart,
		Logger:    logger.Global().WithPrefix("localai"),
	})

	var remote credentials.RemoteSource
	if url := strings.TrimSpace(c.Credentials.RemoteURL); url != "" {
		remote = credentials.NewHTTPRemoteSource(url)
	}
	a.keys = credentials.NewStore(credentials.Options{
		KeyFile: newKeyFile(c),
		Remote:  remote,
	})
	a.user = signedInUser()

	a.usage = state.NewUsageTracker(c.UsagePath())
	a.order = state.NewProviderOrderStore(c.OrderPath())
	a.prefs = state.NewPreferencesStore(c.PreferencesPath())

	models := &fallback.ConfigModels{Config: c, Local: a.daemon}
	orch := fallback.New(fallback.Options{
		Dispatcher:  llm.NewRegistryFromConfig(c, a.daemon),
		Credentials: a.keys,
		Models:      models,
		Metrics:     a.metrics,
	})

	a.shell = assistant.New(assistant.Options{
		Sender: orch,
		Spawner: &pty.PTYSpawner{
			Shell: c.Shell,
			Rows:  consts.DefaultPTYRows,
			Cols:  consts.DefaultPTYCols,
		},
		Usage:             a.usage,
		Order:             a.order,
		Prefs:             a.prefs,
		GPU:               router.NewGPUProbe(nil),
		User:              a.currentUser,
		HybridMode:        c.HybridMode,
		SystemContextPath: c.SystemContextPath,
		Metrics:           a.metrics,
	})

	a.monitor = health.New(health.Options{
		Daemon: a.daemon,
		WarmModels: func(context.Context) []string {
			return c.Ollama.Warmup
		},
		Keys:    a.keys,
		User:    a.currentUser,
		Metrics: a.metrics,
	})
	return a
}

func newKeyFile(c *config.Config) *credentials.KeyFile {
	return &credentials.KeyFile{
		Path:   c.Credentials.KeyCachePath,
		Sealer: secrets.NewSealer(c.SecretsPassword()),
	}
}

func (a *app) currentUser() *auth.User {
	return a.user
}

// signedInUser reads the identity token handed over by the desktop login.
func signedInUser() *auth.User {
	token := strings.TrimSpace(os.Getenv("KAEL_ID_TOKEN"))
	if token == "" {
		return nil
	}
	u, err := auth.FromIDToken(token)
	if err != nil {
		logger.Warn("ignoring KAEL_ID_TOKEN: %v", err)
		return nil
	}
	return u
}

// startBackground launches the health jobs and the order file watcher.
func (a *app) startBackground(ctx context.Context) {
	a.monitor.Start(ctx)
	a.order.OnChange(func(order []provider.ID) {
		logger.Info("provider order reloaded: %v", order)
	})
	if err := a.order.Watch(); err != nil {
		logger.Warn("provider order will not reload: %v", err)
	}
}

func (a *app) Close() {
	a.monitor.Stop()
	if err := a.order.Close(); err != nil {
		logger.Warn("closing order watcher: %v", err)
	}
	if err := a.shell.Close(); err != nil {
		logger.Warn("closing terminal: %v", err)
	}
	a.keys.Close()
}
