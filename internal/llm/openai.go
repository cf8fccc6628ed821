package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/codefionn/kael/internal/consts"
	"github.com/codefionn/kael/internal/provider"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	copilotDefaultBaseURL  = "https://models.inference.ai.azure.com"
	minstrelDefaultBaseURL = "https://api.minstral.ai/v1"
)

// OpenAIConfig describes an OpenAI-style chat completions backend.
type OpenAIConfig struct {
	Provider     provider.ID
	BaseURL      string
	DefaultModel string
	// APIVersion is sent as the api-version query parameter when set.
	APIVersion string
	// KeyHeader sends the key as an api-key header instead of a bearer
	// token, as Azure OpenAI deployments expect.
	KeyHeader   bool
	Temperature float64
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// OpenAIAdapter serves every backend that speaks the OpenAI chat
// completions protocol.
type OpenAIAdapter struct {
	cfg OpenAIConfig
}

// NewOpenAIAdapter creates an adapter from cfg.
func NewOpenAIAdapter(cfg OpenAIConfig) *OpenAIAdapter {
	cfg.BaseURL = normalizeChatBaseURL(cfg.BaseURL)
	if cfg.Timeout <= 0 {
		cfg.Timeout = consts.CloudTimeout
	}
	return &OpenAIAdapter{cfg: cfg}
}

// NewCopilotAdapter targets GitHub Models.
func NewCopilotAdapter(endpoint, model, apiVersion string, timeout time.Duration) *OpenAIAdapter {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = copilotDefaultBaseURL
	}
	return NewOpenAIAdapter(OpenAIConfig{
		Provider:     provider.Copilot,
		BaseURL:      endpoint,
		DefaultModel: model,
		APIVersion:   apiVersion,
		Timeout:      timeout,
	})
}

// NewMinstrelAdapter targets the Minstrel API.
func NewMinstrelAdapter(endpoint, model string, timeout time.Duration) *OpenAIAdapter {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = minstrelDefaultBaseURL
	}
	if timeout <= 0 {
		timeout = consts.MinstrelTimeout
	}
	return NewOpenAIAdapter(OpenAIConfig{
		Provider:     provider.Minstrel,
		BaseURL:      endpoint,
		DefaultModel: model,
		Temperature:  0.7,
		Timeout:      timeout,
	})
}

// NewOffice365Adapter targets an Azure OpenAI deployment. Without an
// endpoint every request fails as unavailable.
func NewOffice365Adapter(endpoint, model, apiVersion string, timeout time.Duration) *OpenAIAdapter {
	return NewOpenAIAdapter(OpenAIConfig{
		Provider:     provider.Office365,
		BaseURL:      endpoint,
		DefaultModel: model,
		APIVersion:   apiVersion,
		KeyHeader:    true,
		Timeout:      timeout,
	})
}

// normalizeChatBaseURL strips a trailing /chat/completions so full endpoint
// URLs and API roots are both accepted.
func normalizeChatBaseURL(u string) string {
	u = strings.TrimRight(strings.TrimSpace(u), "/")
	u = strings.TrimSuffix(u, "/chat/completions")
	return u
}

// ID implements Adapter.
func (a *OpenAIAdapter) ID() provider.ID { return a.cfg.Provider }

// Send implements Adapter.
func (a *OpenAIAdapter) Send(ctx context.Context, req Request) (Response, error) {
	id := a.cfg.Provider
	if a.cfg.BaseURL == "" {
		return Response{}, newError(id, KindUnavailable, "no endpoint configured")
	}
	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		return Response{}, missingKey(id)
	}
	model := firstNonEmpty(req.Model, a.cfg.DefaultModel)

	opts := []option.RequestOption{
		option.WithBaseURL(a.cfg.BaseURL + "/"),
		option.WithMaxRetries(0),
		option.WithAPIKey(key),
	}
	if a.cfg.KeyHeader {
		opts = append(opts, option.WithHeaderDel("authorization"), option.WithHeader("api-key", key))
	}
	if a.cfg.APIVersion != "" {
		opts = append(opts, option.WithQuery("api-version", a.cfg.APIVersion))
	}
	if a.cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(a.cfg.HTTPClient))
	}
	client := openai.NewClient(opts...)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if sys := strings.TrimSpace(req.SystemPrompt); sys != "" {
		messages = append(messages, openai.SystemMessage(sys))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if a.cfg.Temperature > 0 {
		params.Temperature = openai.Float(a.cfg.Temperature)
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return Response{}, statusError(id, apiErr.StatusCode, []byte(apiErr.RawJSON()))
		}
		return Response{}, transportError(ctx, id, a.cfg.Timeout, err)
	}

	if completion == nil || len(completion.Choices) == 0 {
		return Response{}, newError(id, KindEmptyResponse, "no choices")
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return Response{}, newError(id, KindEmptyResponse, "no text in reply")
	}
	return Response{Provider: id, Model: model, Content: content}, nil
}
