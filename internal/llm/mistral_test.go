package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/codefionn/kael/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMistralSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer mistral-key", r.Header.Get("Authorization"))

		var req mistralChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mistral-small", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Bonjour"}}]}`))
	}))
	defer srv.Close()

	a := NewMistralAdapter(srv.URL+"/v1/", "mistral-small", time.Second)
	resp, err := a.Send(context.Background(), Request{Prompt: "hi", SystemPrompt: "sys", APIKey: "mistral-key"})
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", resp.Content)
	assert.Equal(t, provider.Mistral, resp.Provider)
}

func TestMistralChunkedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":[{"type":"text","text":"a"},{"type":"thinking","text":"x"},{"type":"text","text":"b"}]}}]}`))
	}))
	defer srv.Close()

	resp, err := NewMistralAdapter(srv.URL, "m", time.Second).Send(context.Background(), Request{Prompt: "hi", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "ab", resp.Content)
}

func TestMistralErrors(t *testing.T) {
	_, err := NewMistralAdapter("http://unused", "m", time.Second).Send(context.Background(), Request{Prompt: "hi"})
	require.ErrorIs(t, err, ErrMissingCredential)

	tests := []struct {
		status int
		body   string
		want   error
	}{
		{http.StatusUnauthorized, `{"message":"Unauthorized"}`, ErrAuthRequired},
		{http.StatusTooManyRequests, `{"message":"rate limited"}`, ErrBackendError},
		{http.StatusOK, `{"choices":[]}`, ErrEmptyResponse},
		{http.StatusOK, `not json`, ErrParseError},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(tt.body))
		}))
		_, err := NewMistralAdapter(srv.URL, "m", time.Second).Send(context.Background(), Request{Prompt: "hi", APIKey: "k"})
		assert.ErrorIs(t, err, tt.want, tt.body)
		srv.Close()
	}
}
