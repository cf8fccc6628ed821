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

func googleTestAdapter(t *testing.T, id provider.ID, handler http.HandlerFunc) *GoogleAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a := NewGoogleAdapter(id, srv.URL+"/", "models/gemini-1.5-pro", time.Second)
	a.httpClient = srv.Client()
	return a
}

func TestGoogleAdapterSend(t *testing.T) {
	a := googleTestAdapter(t, provider.Gemini, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-1.5-pro:generateContent", r.URL.Path)
		assert.Equal(t, "gemini-key", r.Header.Get("x-goog-api-key"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "systemInstruction")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[
			{"text":"pondering","thought":true},
			{"text":"Hello "},
			{"text":"there"}
		]}}]}`))
	})

	resp, err := a.Send(context.Background(), Request{Prompt: "hi", SystemPrompt: "sys", APIKey: "gemini-key"})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", resp.Content)
	assert.Equal(t, provider.Gemini, resp.Provider)
	assert.Equal(t, "gemini-1.5-pro", resp.Model)
}

func TestGoogleAdapterServesGoogleOne(t *testing.T) {
	a := googleTestAdapter(t, provider.GoogleOne, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	})
	assert.Equal(t, provider.GoogleOne, a.ID())

	resp, err := a.Send(context.Background(), Request{Prompt: "hi", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, provider.GoogleOne, resp.Provider)
}

func TestGoogleAdapterErrors(t *testing.T) {
	_, err := NewGoogleAdapter(provider.Gemini, "", "m", time.Second).Send(context.Background(), Request{Prompt: "hi"})
	require.ErrorIs(t, err, ErrMissingCredential)

	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"forbidden", http.StatusForbidden, `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`, ErrAuthRequired},
		{"server error", http.StatusInternalServerError, `{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`, ErrBackendError},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, ErrEmptyResponse},
		{"only thoughts", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"hmm","thought":true}]}}]}`, ErrEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := googleTestAdapter(t, provider.Gemini, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := a.Send(context.Background(), Request{Prompt: "hi", APIKey: "k"})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNormalizeGoogleModelName(t *testing.T) {
	assert.Equal(t, "gemini-1.5-pro", normalizeGoogleModelName("models/gemini-1.5-pro"))
	assert.Equal(t, "gemini-1.5-pro", normalizeGoogleModelName(" gemini-1.5-pro "))
}
