package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/codefionn/kael/internal/consts"
	"github.com/codefionn/kael/internal/provider"
	"google.golang.org/genai"
)

// GoogleAdapter serves Gemini and Google One AI through the Gemini API.
type GoogleAdapter struct {
	id           provider.ID
	baseURL      string
	defaultModel string
	timeout      time.Duration
	httpClient   *http.Client
}

// NewGoogleAdapter creates a Gemini API adapter registered as id. Empty
// baseURL selects the public endpoint.
func NewGoogleAdapter(id provider.ID, baseURL, defaultModel string, timeout time.Duration) *GoogleAdapter {
	if timeout <= 0 {
		timeout = consts.CloudTimeout
	}
	return &GoogleAdapter{
		id:           id,
		baseURL:      strings.TrimSpace(baseURL),
		defaultModel: defaultModel,
		timeout:      timeout,
	}
}

// ID implements Adapter.
func (a *GoogleAdapter) ID() provider.ID { return a.id }

// Send implements Adapter.
func (a *GoogleAdapter) Send(ctx context.Context, req Request) (Response, error) {
	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		return Response{}, missingKey(a.id)
	}
	model := normalizeGoogleModelName(firstNonEmpty(req.Model, a.defaultModel))

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      key,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  a.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: a.baseURL},
	})
	if err != nil {
		return Response{}, &Error{Kind: KindUnavailable, Provider: a.id, Message: "create client", Err: err}
	}

	var cfg *genai.GenerateContentConfig
	if sys := strings.TrimSpace(req.SystemPrompt); sys != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(sys, genai.RoleUser),
		}
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), cfg)
	if err != nil {
		if apiErr, ok := asGenAIError(err); ok {
			return Response{}, statusError(a.id, apiErr.Code, []byte(apiErr.Message))
		}
		return Response{}, transportError(ctx, a.id, a.timeout, err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return Response{}, newError(a.id, KindEmptyResponse, "no candidates")
	}
	content := strings.TrimSpace(collectTextFromContent(resp.Candidates[0].Content))
	if content == "" {
		return Response{}, newError(a.id, KindEmptyResponse, "no text in reply")
	}
	return Response{Provider: a.id, Model: model, Content: content}, nil
}

func asGenAIError(err error) (genai.APIError, bool) {
	var value genai.APIError
	if errors.As(err, &value) {
		return value, true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return genai.APIError{}, false
}

// normalizeGoogleModelName drops the "models/" prefix some configs carry.
func normalizeGoogleModelName(model string) string {
	return strings.TrimPrefix(strings.TrimSpace(model), "models/")
}

func collectTextFromContent(content *genai.Content) string {
	if content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}
