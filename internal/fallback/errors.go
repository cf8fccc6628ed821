package fallback

import (
	"strings"
	"time"

	"github.com/codefionn/kael/internal/provider"
)

// Attempt records one failed provider call.
type Attempt struct {
	Provider provider.ID
	Model    string
	Err      error
	Duration time.Duration
}

// AggregateError is returned when every provider of a call failed. It
// unwraps to the last failure.
type AggregateError struct {
	Attempts []Attempt
}

func (e *AggregateError) Error() string {
	last := e.Unwrap()
	if last == nil {
		return "all providers failed: no provider was tried"
	}
	return "all providers failed: " + last.Error()
}

func (e *AggregateError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// Summary lists every attempt on its own line.
func (e *AggregateError) Summary() string {
	var b strings.Builder
	for i, a := range e.Attempts {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(a.Provider.Label())
		b.WriteString(": ")
		b.WriteString(a.Err.Error())
	}
	return b.String()
}

// Tried returns the providers attempted, in order.
func (e *AggregateError) Tried() []provider.ID {
	ids := make([]provider.ID, len(e.Attempts))
	for i, a := range e.Attempts {
		ids[i] = a.Provider
	}
	return ids
}
