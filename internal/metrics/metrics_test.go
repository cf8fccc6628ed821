package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveAttempt("mistral", "ok", 120*time.Millisecond)
	m.ObserveAttempt("gemini", "timeout", time.Second)
	m.ObserveAttempt("gemini", "timeout", time.Second)
	m.Exhausted()
	m.Used("mistral")
	m.TerminalDropped(3)
	m.TerminalDropped(0)
	m.TerminalBytes(42)
	m.DaemonUp(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("mistral", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.attempts.WithLabelValues("gemini", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exhausted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.usage.WithLabelValues("mistral")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.terminalDropped))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.terminalBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.daemonUp))

	m.DaemonUp(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.daemonUp))

	expected := `
# HELP kael_fallback_exhausted_total Requests for which every provider failed.
# TYPE kael_fallback_exhausted_total counter
kael_fallback_exhausted_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "kael_fallback_exhausted_total"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAttempt("x", "ok", time.Second)
		m.Exhausted()
		m.Used("x")
		m.TerminalDropped(1)
		m.TerminalBytes(1)
		m.DaemonUp(true)
	})
}
