// Package health runs the background jobs that keep the assistant warm:
// a local daemon liveness probe, model warm-up after the daemon comes up,
// and periodic remote key prefetch. Jobs publish into a Status that request
// paths may read but never wait on.
package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codefionn/kael/internal/auth"
	"github.com/codefionn/kael/internal/consts"
	"github.com/codefionn/kael/internal/logger"
	"github.com/codefionn/kael/internal/metrics"
)

// Daemon is the local daemon as the probe and warm-up jobs see it.
type Daemon interface {
	Ping(ctx context.Context) error
	Warm(ctx context.Context, model string) error
}

// Prefetcher loads remote keys for a user into the credential cache.
type Prefetcher interface {
	Prefetch(ctx context.Context, user *auth.User) (int, error)
}

// Status is a snapshot of what the jobs last observed.
type Status struct {
	DaemonUp     bool
	CheckedAt    time.Time
	WarmedModels []string
	WarmError    string
	KeysLoaded   int
	PrefetchedAt time.Time
	PrefetchErr  string
}

// Options configures a Monitor. Nil Daemon or Keys disables the matching
// jobs.
type Options struct {
	Daemon Daemon
	// WarmModels names the models to warm once the daemon is up.
	WarmModels func(ctx context.Context) []string
	Keys      Prefetcher
	// User returns the signed-in user, or nil when nobody is signed in.
	User    func() *auth.User
	Metrics *metrics.Metrics
	Logger  *logger.Logger

	ProbeInterval    time.Duration
	PrefetchInterval time.Duration
}

// Monitor owns the job goroutines.
type Monitor struct {
	opts   Options
	log    *logger.Logger
	status atomic.Pointer[Status]

	warmReq chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a stopped Monitor.
func New(opts Options) *Monitor {
	if opts.ProbeInterval <= 0 {
		opts.ProbeInterval = consts.HealthProbeInterval
	}
	if opts.PrefetchInterval <= 0 {
		opts.PrefetchInterval = consts.KeyPrefetchInterval
	}
	log := opts.Logger
	if log == nil {
		log = logger.Global().WithPrefix("health")
	}
	m := &Monitor{opts: opts, log: log, warmReq: make(chan struct{}, 1)}
	m.status.Store(&Status{})
	return m
}

// Status returns the latest snapshot.
func (m *Monitor) Status() Status {
	return *m.status.Load()
}

func (m *Monitor) update(fn func(*Status)) {
	for {
		old := m.status.Load()
		next := *old
		fn(&next)
		if m.status.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Start launches the jobs. Each runs once immediately and then on its
// interval until Stop or ctx is done. Start on a running Monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)

	if m.opts.Daemon != nil {
		m.run(ctx, m.opts.ProbeInterval, m.Probe)
		m.wg.Add(1)
		go m.warmLoop(ctx)
	}
	if m.opts.Keys != nil && m.opts.User != nil {
		m.run(ctx, m.opts.PrefetchInterval, m.Prefetch)
	}
}

// Stop cancels the jobs and waits for them to return.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()
}

func (m *Monitor) run(ctx context.Context, every time.Duration, job func(context.Context)) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		job(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				job(ctx)
			}
		}
	}()
}

// Probe checks the daemon once. A transition to up queues a warm-up.
func (m *Monitor) Probe(ctx context.Context) {
	if m.opts.Daemon == nil {
		return
	}
	err := m.opts.Daemon.Ping(ctx)
	up := err == nil
	m.opts.Metrics.DaemonUp(up)

	var wasUp bool
	m.update(func(s *Status) {
		wasUp = s.DaemonUp
		s.DaemonUp = up
		s.CheckedAt = time.Now()
	})

	switch {
	case up && !wasUp:
		m.log.Info("local daemon is up")
		select {
		case m.warmReq <- struct{}{}:
		default:
		}
	case !up && wasUp:
		m.log.Warn("local daemon went down: %v", err)
	case !up:
		m.log.Debug("local daemon probe failed: %v", err)
	}
}

func (m *Monitor) warmLoop(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.warmReq:
			m.Warm(ctx)
		}
	}
}

// Warm loads the configured models into the daemon. A model that fails
// to load does not stop the others.
func (m *Monitor) Warm(ctx context.Context) {
	if m.opts.Daemon == nil || m.opts.WarmModels == nil {
		return
	}

	var warmed []string
	var lastErr error
	for _, model := range m.opts.WarmModels(ctx) {
		if model == "" {
			continue
		}
		if err := m.opts.Daemon.Warm(ctx, model); err != nil {
			m.log.Warn("warm-up of %s failed: %v", model, err)
			lastErr = err
			continue
		}
		m.log.Info("warmed %s", model)
		warmed = append(warmed, model)
	}

	m.update(func(s *Status) {
		s.WarmedModels = warmed
		s.WarmError = ""
		if lastErr != nil {
			s.WarmError = lastErr.Error()
		}
	})
}

// Prefetch refreshes remote keys for the signed-in user once.
func (m *Monitor) Prefetch(ctx context.Context) {
	if m.opts.Keys == nil || m.opts.User == nil {
		return
	}
	user := m.opts.User()
	if user == nil {
		return
	}

	n, err := m.opts.Keys.Prefetch(ctx, user)
	m.update(func(s *Status) {
		s.PrefetchedAt = time.Now()
		s.KeysLoaded = n
		s.PrefetchErr = ""
		if err != nil {
			s.PrefetchErr = logger.Redact(err.Error())
		}
	})
	if err != nil {
		m.log.Warn("key prefetch failed: %v", err)
	}
}
