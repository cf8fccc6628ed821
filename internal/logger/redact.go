package logger

import (
	"sort"
	"strings"
	"sync"

	"github.com/codefionn/kael/internal/secretdetect"
)

// minSecretLen keeps short strings (empty keys, placeholders) from turning
// every log line into asterisks.
const minSecretLen = 6

const redactedMarker = "[REDACTED]"

var (
	secretsMu sync.RWMutex
	secrets   = make(map[string]struct{})
)

// RegisterSecret marks value as sensitive for the rest of the process.
// Every later log line and every string passed to Redact has its occurrences
// replaced.
func RegisterSecret(value string) {
	value = strings.TrimSpace(value)
	if len(value) < minSecretLen {
		return
	}
	secretsMu.Lock()
	secrets[value] = struct{}{}
	secretsMu.Unlock()
}

// Redact replaces every registered secret in s, then anything shaped like a
// provider credential.
func Redact(s string) string {
	if s == "" {
		return s
	}
	return secretdetect.Mask(redactRegistered(s), redactedMarker)
}

func redactRegistered(s string) string {
	secretsMu.RLock()
	defer secretsMu.RUnlock()
	if len(secrets) == 0 {
		return s
	}

	// Longest first so a secret that contains another is masked whole.
	values := make([]string, 0, len(secrets))
	for v := range secrets {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool { return len(values[i]) > len(values[j]) })

	for _, v := range values {
		if strings.Contains(s, v) {
			s = strings.ReplaceAll(s, v, redactedMarker)
		}
	}
	return s
}
