// Package metrics holds the Prometheus collectors for provider attempts,
// terminal output and the local daemon.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a set of collectors registered with one registry. A nil
// *Metrics records nothing.
type Metrics struct {
	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	exhausted       prometheus.Counter
	usage           *prometheus.CounterVec
	terminalDropped prometheus.Counter
	terminalBytes   prometheus.Counter
	daemonUp        prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kael_provider_attempts_total",
				Help: "Provider attempts by provider and result.",
			},
			[]string{"provider", "result"},
		),
		attemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kael_provider_attempt_duration_seconds",
				Help:    "Duration of one provider attempt.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		exhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kael_fallback_exhausted_total",
			Help: "Requests for which every provider failed.",
		}),
		usage: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kael_provider_responses_total",
				Help: "Successful responses by provider.",
			},
			[]string{"provider"},
		),
		terminalDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kael_terminal_dropped_chunks_total",
			Help: "Terminal output chunks dropped for slow subscribers.",
		}),
		terminalBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kael_terminal_output_bytes_total",
			Help: "Bytes read from the terminal child process.",
		}),
		daemonUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kael_local_daemon_up",
			Help: "1 when the last local daemon probe succeeded.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.attempts, m.attemptDuration, m.exhausted, m.usage,
			m.terminalDropped, m.terminalBytes, m.daemonUp)
	}
	return m
}

// ObserveAttempt records one provider attempt. result is "ok" or a failure
// label.
func (m *Metrics) ObserveAttempt(provider, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(provider, result).Inc()
	m.attemptDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// Exhausted records a request that no provider could answer.
func (m *Metrics) Exhausted() {
	if m == nil {
		return
	}
	m.exhausted.Inc()
}

// Used records a successful response from provider.
func (m *Metrics) Used(provider string) {
	if m == nil {
		return
	}
	m.usage.WithLabelValues(provider).Inc()
}

// TerminalDropped records n dropped output chunks.
func (m *Metrics) TerminalDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.terminalDropped.Add(float64(n))
}

// TerminalBytes records n bytes of terminal output.
func (m *Metrics) TerminalBytes(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.terminalBytes.Add(float64(n))
}

// DaemonUp sets the local daemon liveness gauge.
func (m *Metrics) DaemonUp(up bool) {
	if m == nil {
		return
	}
	if up {
		m.daemonUp.Set(1)
	} else {
		m.daemonUp.Set(0)
	}
}
