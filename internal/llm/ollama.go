package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/codefionn/kael/internal/consts"
	"github.com/codefionn/kael/internal/localai"
	"github.com/codefionn/kael/internal/logger"
	"github.com/codefionn/kael/internal/provider"
)

// LocalDaemon is the part of *localai.Daemon the Ollama adapter needs.
type LocalDaemon interface {
	Endpoint() string
	EnsureRunning(ctx context.Context) error
	Models(ctx context.Context) ([]string, error)
}

// OllamaAdapter talks to the local daemon's generate API.
type OllamaAdapter struct {
	daemon       LocalDaemon
	defaultModel string
	timeout      time.Duration
	client       *http.Client
	log          *logger.Logger
}

// NewOllamaAdapter creates the local adapter. timeout <= 0 selects the
// default per-attempt bound.
func NewOllamaAdapter(daemon LocalDaemon, defaultModel string, timeout time.Duration) *OllamaAdapter {
	if timeout <= 0 {
		timeout = consts.LocalDaemonTimeout
	}
	return &OllamaAdapter{
		daemon:       daemon,
		defaultModel: defaultModel,
		timeout:      timeout,
		client:       &http.Client{},
		log:          logger.Global().WithPrefix("ollama"),
	}
}

// ID implements Adapter.
func (a *OllamaAdapter) ID() provider.ID { return provider.Ollama }

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Send implements Adapter. When the daemon reports the model as missing,
// exactly one other installed model is tried.
func (a *OllamaAdapter) Send(ctx context.Context, req Request) (Response, error) {
	if err := a.daemon.EnsureRunning(ctx); err != nil {
		return Response{}, &Error{Kind: KindUnavailable, Provider: provider.Ollama, Message: "local daemon is not running", Err: err}
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = a.defaultModel
	}

	resp, err := a.generate(ctx, model, req)
	if err == nil || !isModelNotFound(err) {
		return resp, err
	}

	installed, listErr := a.daemon.Models(ctx)
	if listErr != nil {
		a.log.Warn("model %s not found and listing models failed: %v", model, listErr)
		return Response{}, err
	}
	alt := localai.PickModel(installed, model)
	if alt == "" {
		return Response{}, err
	}
	a.log.Info("model %s not found, retrying with %s", model, alt)
	return a.generate(ctx, alt, req)
}

func (a *OllamaAdapter) generate(ctx context.Context, model string, req Request) (Response, error) {
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  model,
		Prompt: req.Prompt,
		System: req.SystemPrompt,
	})
	if err != nil {
		return Response{}, &Error{Kind: KindParseError, Provider: provider.Ollama, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.daemon.Endpoint()+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return Response{}, &Error{Kind: KindUnavailable, Provider: provider.Ollama, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return Response{}, transportError(ctx, provider.Ollama, a.timeout, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, consts.BufferSize1MB))
	if err != nil {
		return Response{}, transportError(ctx, provider.Ollama, a.timeout, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Response{}, statusError(provider.Ollama, resp.StatusCode, data)
	}

	var out ollamaGenerateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return Response{}, &Error{Kind: KindParseError, Provider: provider.Ollama, Body: truncateBody(data), Err: err}
	}
	if out.Error != "" {
		return Response{}, &Error{Kind: KindBackendError, Provider: provider.Ollama, Message: out.Error}
	}
	content := strings.TrimSpace(out.Response)
	if content == "" {
		return Response{}, newError(provider.Ollama, KindEmptyResponse, "model "+model+" returned no text")
	}
	return Response{Provider: provider.Ollama, Model: model, Content: content}, nil
}

func isModelNotFound(err error) bool {
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindBackendError {
		return false
	}
	return e.Status == http.StatusNotFound ||
		strings.Contains(strings.ToLower(e.Body), "not found") ||
		strings.Contains(strings.ToLower(e.Message), "not found")
}
