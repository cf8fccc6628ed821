package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/codefionn/kael/internal/consts"
	"github.com/codefionn/kael/internal/provider"
)

const mistralDefaultBaseURL = "https://api.mistral.ai/v1"

// MistralAdapter uses the native Mistral chat completions API.
type MistralAdapter struct {
	baseURL      string
	defaultModel string
	timeout      time.Duration
	client       *http.Client
}

// NewMistralAdapter creates the Mistral adapter. Empty baseURL selects the
// public API.
func NewMistralAdapter(baseURL, defaultModel string, timeout time.Duration) *MistralAdapter {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = mistralDefaultBaseURL
	}
	if timeout <= 0 {
		timeout = consts.CloudTimeout
	}
	return &MistralAdapter{
		baseURL:      baseURL,
		defaultModel: defaultModel,
		timeout:      timeout,
		client:       &http.Client{},
	}
}

// ID implements Adapter.
func (a *MistralAdapter) ID() provider.ID { return provider.Mistral }

type mistralMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type mistralChatRequest struct {
	Model    string           `json:"model"`
	Messages []mistralMessage `json:"messages"`
}

type mistralChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			// Content is a string or a list of typed chunks.
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Send implements Adapter.
func (a *MistralAdapter) Send(ctx context.Context, req Request) (Response, error) {
	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		return Response{}, missingKey(provider.Mistral)
	}
	model := firstNonEmpty(req.Model, a.defaultModel)

	messages := make([]mistralMessage, 0, 2)
	if sys := strings.TrimSpace(req.SystemPrompt); sys != "" {
		messages = append(messages, mistralMessage{Role: "system", Content: sys})
	}
	messages = append(messages, mistralMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(mistralChatRequest{Model: model, Messages: messages})
	if err != nil {
		return Response{}, &Error{Kind: KindParseError, Provider: provider.Mistral, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Response{}, &Error{Kind: KindUnavailable, Provider: provider.Mistral, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+key)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return Response{}, transportError(ctx, provider.Mistral, a.timeout, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, consts.BufferSize1MB))
	if err != nil {
		return Response{}, transportError(ctx, provider.Mistral, a.timeout, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Response{}, statusError(provider.Mistral, resp.StatusCode, data)
	}

	var out mistralChatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return Response{}, &Error{Kind: KindParseError, Provider: provider.Mistral, Body: truncateBody(data), Err: err}
	}
	if len(out.Choices) == 0 {
		return Response{}, newError(provider.Mistral, KindEmptyResponse, "no choices")
	}

	content := strings.TrimSpace(mistralExtractContent(out.Choices[0].Message.Content))
	if content == "" {
		return Response{}, newError(provider.Mistral, KindEmptyResponse, "no text in reply")
	}
	return Response{Provider: provider.Mistral, Model: model, Content: content}, nil
}

func mistralExtractContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	var chunks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &chunks); err != nil {
		return ""
	}
	var sb strings.Builder
	for _, c := range chunks {
		if c.Type == "" || c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	return sb.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
