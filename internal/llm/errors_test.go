package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/codefionn/kael/internal/logger"
	"github.com/codefionn/kael/internal/provider"
	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &Error{Kind: KindTimeout, Provider: provider.Mistral})

	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Zero(t, KindOf(errors.New("plain")))

	// Non-sentinel errors of the same kind do not match each other.
	assert.False(t, errors.Is(&Error{Kind: KindTimeout}, &Error{Kind: KindTimeout}))
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "status and body",
			err:  &Error{Kind: KindBackendError, Provider: provider.Mistral, Status: 429, Body: "slow down"},
			want: "Mistral AI: backend error (status 429): slow down",
		},
		{
			name: "message",
			err:  &Error{Kind: KindMissingCredential, Provider: provider.Gemini, Message: "add a key"},
			want: "Google Gemini: no API key configured: add a key",
		},
		{
			name: "wrapped cause when no message",
			err:  &Error{Kind: KindUnavailable, Provider: provider.Ollama, Err: errors.New("dial tcp: refused")},
			want: "Ollama (Local): unavailable: dial tcp: refused",
		},
		{
			name: "no provider",
			err:  &Error{Kind: KindEmptyResponse},
			want: "empty response",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorRedactsKeys(t *testing.T) {
	logger.RegisterSecret("sk-live-abcdef123456")
	err := &Error{Kind: KindAuthRequired, Provider: provider.Copilot, Status: 401, Body: `{"error":"bad key sk-live-abcdef123456"}`}
	assert.NotContains(t, err.Error(), "sk-live-abcdef123456")
	assert.Contains(t, err.Error(), "[REDACTED]")
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{401, KindAuthRequired},
		{403, KindAuthRequired},
		{404, KindBackendError},
		{429, KindBackendError},
		{500, KindBackendError},
		{503, KindBackendError},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := statusError(provider.Minstrel, tt.status, []byte("oops"))
			assert.Equal(t, tt.want, err.Kind)
			assert.Equal(t, tt.status, err.Status)
			assert.Equal(t, "oops", err.Body)
		})
	}
}

func TestTruncateBody(t *testing.T) {
	long := strings.Repeat("x", 2000)
	got := truncateBody([]byte("  " + long + "  "))
	assert.Len(t, got, 512+len("..."))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, "short", truncateBody([]byte(" short\n")))
}

func TestTruncateBodyKeepsRunesWhole(t *testing.T) {
	// The two-byte "é" straddles the cut.
	body := strings.Repeat("x", 511) + "é" + strings.Repeat("y", 100)
	got := truncateBody([]byte(body))
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("x", 511)+"...", got)
}

type timeoutNetErr struct{}

func (timeoutNetErr) Error() string   { return "i/o timeout" }
func (timeoutNetErr) Timeout() bool   { return true }
func (timeoutNetErr) Temporary() bool { return true }

var _ net.Error = timeoutNetErr{}

func TestTransportError(t *testing.T) {
	ctx := context.Background()

	err := transportError(ctx, provider.Gemini, 25*time.Second, context.DeadlineExceeded)
	assert.Equal(t, KindTimeout, err.Kind)
	assert.Contains(t, err.Error(), "25s")

	err = transportError(ctx, provider.Gemini, time.Second, timeoutNetErr{})
	assert.Equal(t, KindTimeout, err.Kind)

	refused := &net.OpError{Op: "dial", Err: &osSyscallErr{}}
	err = transportError(ctx, provider.Ollama, time.Second, refused)
	assert.Equal(t, KindUnavailable, err.Kind)

	err = transportError(ctx, provider.Ollama, time.Second, errors.New("no route to host"))
	assert.Equal(t, KindUnavailable, err.Kind)
}
