package state

import (
	"sync"

	"github.com/codefionn/kael/internal/logger"
	"github.com/codefionn/kael/internal/provider"
)

// UsageTracker counts successful responses per provider. Counts are keyed
// by provider label and saved after every increment.
type UsageTracker struct {
	path   string
	mu     sync.Mutex
	counts map[string]uint64
}

// NewUsageTracker loads counts from path. An unreadable file starts the
// counts from zero.
func NewUsageTracker(path string) *UsageTracker {
	t := &UsageTracker{path: path, counts: make(map[string]uint64)}
	if _, err := readJSON(path, &t.counts); err != nil {
		logger.Global().Warn("usage counts reset: %v", err)
		t.counts = make(map[string]uint64)
	}
	return t
}

// Increment adds one use of id and persists the counts.
func (t *UsageTracker) Increment(id provider.ID) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	label := id.Label()
	t.counts[label]++
	n := t.counts[label]
	if t.path == "" {
		return n, nil
	}
	return n, writeJSON(t.path, t.counts)
}

// Count returns the uses of id.
func (t *UsageTracker) Count(id provider.ID) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[id.Label()]
}

// Counts returns a copy of every count by label.
func (t *UsageTracker) Counts() map[string]uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]uint64, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}
