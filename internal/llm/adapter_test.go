package llm

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/codefionn/kael/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAdapter answers with a fixed response or error.
type stubAdapter struct {
	id    provider.ID
	resp  string
	err   error
	calls atomic.Int32
	last  atomic.Pointer[Request]
}

func (s *stubAdapter) ID() provider.ID { return s.id }

func (s *stubAdapter) Send(ctx context.Context, req Request) (Response, error) {
	s.calls.Add(1)
	s.last.Store(&req)
	if s.err != nil {
		return Response{}, s.err
	}
	return Response{Provider: s.id, Content: s.resp}, nil
}

func TestRegistryDispatch(t *testing.T) {
	mistral := &stubAdapter{id: provider.Mistral, resp: "bonjour"}
	r := NewRegistry(mistral, &stubAdapter{id: provider.Gemini})

	resp, err := r.Dispatch(context.Background(), Request{Provider: provider.Mistral, Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "bonjour", resp.Content)
	assert.Equal(t, provider.Mistral, resp.Provider)

	_, err = r.Dispatch(context.Background(), Request{Provider: provider.Anthropic})
	require.ErrorIs(t, err, ErrUnavailable)

	assert.Equal(t, []provider.ID{provider.Gemini, provider.Mistral}, r.IDs())

	replacement := &stubAdapter{id: provider.Mistral, resp: "salut"}
	r.Register(replacement)
	resp, err = r.Dispatch(context.Background(), Request{Provider: provider.Mistral})
	require.NoError(t, err)
	assert.Equal(t, "salut", resp.Content)
	assert.Equal(t, int32(1), mistral.calls.Load())
}
