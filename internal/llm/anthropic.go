package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/codefionn/kael/internal/consts"
	"github.com/codefionn/kael/internal/provider"
)

const anthropicMaxTokens = 1024

// AnthropicAdapter talks to the Anthropic Messages API.
type AnthropicAdapter struct {
	baseURL      string
	defaultModel string
	timeout      time.Duration
	httpClient   *http.Client
}

// NewAnthropicAdapter creates the adapter. Empty baseURL selects the public
// API.
func NewAnthropicAdapter(baseURL, defaultModel string, timeout time.Duration) *AnthropicAdapter {
	if timeout <= 0 {
		timeout = consts.CloudTimeout
	}
	return &AnthropicAdapter{
		baseURL:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		defaultModel: defaultModel,
		timeout:      timeout,
	}
}

// ID implements Adapter.
func (a *AnthropicAdapter) ID() provider.ID { return provider.Anthropic }

// Send implements Adapter.
func (a *AnthropicAdapter) Send(ctx context.Context, req Request) (Response, error) {
	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		return Response{}, missingKey(provider.Anthropic)
	}
	model := firstNonEmpty(req.Model, a.defaultModel)

	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
	}
	if a.baseURL != "" {
		opts = append(opts, option.WithBaseURL(a.baseURL+"/"))
	}
	if a.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(a.httpClient))
	}
	client := anthropic.NewClient(opts...)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if sys := strings.TrimSpace(req.SystemPrompt); sys != "" {
		params.System = []anthropic.TextBlockParam{{Text: sys}}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	msg, err := client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return Response{}, statusError(provider.Anthropic, apiErr.StatusCode, []byte(apiErr.RawJSON()))
		}
		return Response{}, transportError(ctx, provider.Anthropic, a.timeout, err)
	}

	content := strings.TrimSpace(collectAnthropicText(msg.Content))
	if content == "" {
		return Response{}, newError(provider.Anthropic, KindEmptyResponse, "no text in reply")
	}
	return Response{Provider: provider.Anthropic, Model: model, Content: content}, nil
}

func collectAnthropicText(blocks []anthropic.ContentBlockUnion) string {
	var sb strings.Builder
	for _, block := range blocks {
		if block.Type != "text" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(block.Text)
	}
	return sb.String()
}
