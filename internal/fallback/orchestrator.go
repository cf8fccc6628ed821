// Package fallback sends a request to a primary provider and, when it fails,
// to alternates in order until one answers.
package fallback

import (
	"context"
	"strings"
	"time"

	"github.com/codefionn/kael/internal/auth"
	"github.com/codefionn/kael/internal/credentials"
	"github.com/codefionn/kael/internal/llm"
	"github.com/codefionn/kael/internal/logger"
	"github.com/codefionn/kael/internal/metrics"
	"github.com/codefionn/kael/internal/provider"
	"github.com/google/uuid"
)

// Dispatcher sends one request to the adapter for req.Provider.
type Dispatcher interface {
	Dispatch(ctx context.Context, req llm.Request) (llm.Response, error)
}

// CredentialResolver finds the API key for a provider.
type CredentialResolver interface {
	Resolve(ctx context.Context, id provider.ID, explicit string, user *auth.User) (string, credentials.Source)
}

// Options configures an Orchestrator. Credentials, Models and Metrics are
// optional.
type Options struct {
	Dispatcher  Dispatcher
	Credentials CredentialResolver
	Models      ModelResolver
	Metrics     *metrics.Metrics
	Logger      *logger.Logger
}

// Orchestrator drives sequential fallback across providers. It is safe for
// concurrent use; calls share no state beyond their collaborators.
type Orchestrator struct {
	dispatch Dispatcher
	creds    CredentialResolver
	models   ModelResolver
	metrics  *metrics.Metrics
	log      *logger.Logger
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		dispatch: opts.Dispatcher,
		creds:    opts.Credentials,
		models:   opts.Models,
		metrics:  opts.Metrics,
		log:      opts.Logger,
	}
	if o.log == nil {
		o.log = logger.Global().WithPrefix("fallback")
	}
	return o
}

// Send tries initial once, then each chain entry in order, and returns the
// first success. No provider is called twice in one Send. When every
// attempt fails the error is an *AggregateError.
func (o *Orchestrator) Send(ctx context.Context, initial llm.Request, user *auth.User, chain Chain) (llm.Response, error) {
	callID := uuid.NewString()[:8]
	tried := make(map[provider.ID]bool, len(chain)+1)
	agg := &AggregateError{}

	candidates := make(Chain, 0, len(chain)+1)
	candidates = append(candidates, Entry{Provider: initial.Provider, APIKey: initial.APIKey})
	candidates = append(candidates, chain...)

	for i, c := range candidates {
		if tried[c.Provider] {
			continue
		}
		tried[c.Provider] = true

		if i > 0 && ctx.Err() != nil {
			o.log.Warn("[%s] stopping fallback: %v", callID, ctx.Err())
			break
		}

		req := initial
		req.Provider = c.Provider
		req.APIKey = c.APIKey
		if i > 0 {
			req.Model = ""
		}

		resp, attempt := o.attempt(ctx, callID, req, user)
		if attempt.Err == nil {
			return resp, nil
		}
		agg.Attempts = append(agg.Attempts, attempt)
	}

	o.metrics.Exhausted()
	o.log.Error("[%s] all providers failed after %d attempts", callID, len(agg.Attempts))
	return llm.Response{}, agg
}

func (o *Orchestrator) attempt(ctx context.Context, callID string, req llm.Request, user *auth.User) (llm.Response, Attempt) {
	if strings.TrimSpace(req.Model) == "" && o.models != nil {
		req.Model = o.models.DefaultModel(ctx, req.Provider)
	}

	if req.Provider.NeedsKey() && o.creds != nil {
		key, source := o.creds.Resolve(ctx, req.Provider, req.APIKey, user)
		req.APIKey = key
		o.log.Debug("[%s] %s key source: %s", callID, req.Provider, source)
	}

	o.log.Info("[%s] trying %s (model %q)", callID, req.Provider, req.Model)
	start := time.Now()
	resp, err := o.dispatch.Dispatch(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		o.metrics.ObserveAttempt(string(req.Provider), llm.KindOf(err).Label(), elapsed)
		o.log.Warn("[%s] %s failed after %s: %v", callID, req.Provider, elapsed.Round(time.Millisecond), err)
		return llm.Response{}, Attempt{Provider: req.Provider, Model: req.Model, Err: err, Duration: elapsed}
	}

	// The answering provider is always the one attempted.
	resp.Provider = req.Provider
	if resp.Model == "" {
		resp.Model = req.Model
	}
	o.metrics.ObserveAttempt(string(req.Provider), "ok", elapsed)
	o.metrics.Used(string(req.Provider))
	o.log.Info("[%s] %s answered in %s", callID, req.Provider, elapsed.Round(time.Millisecond))
	return resp, Attempt{Provider: req.Provider, Model: req.Model, Duration: elapsed}
}
