// Package llm sends single-turn prompts to the supported backends. Every
// backend sits behind the Adapter interface and fails with *Error.
package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/codefionn/kael/internal/provider"
)

// Request is one prompt for one provider. It is a value type; callers copy
// it and change Provider, Model and APIKey per attempt.
type Request struct {
	Provider     provider.ID
	Model        string
	Prompt       string
	APIKey       string
	SystemPrompt string
}

// Response is a complete answer. Provider is the backend that produced it.
type Response struct {
	Provider provider.ID
	Model    string
	Content  string
}

// Adapter talks to one backend.
type Adapter interface {
	ID() provider.ID
	// Send performs one bounded request. Failures are *Error.
	Send(ctx context.Context, req Request) (Response, error)
}

// Registry maps provider IDs to adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[provider.ID]Adapter
}

// NewRegistry creates a registry holding adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[provider.ID]Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the adapter for a.ID().
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.ID()] = a
}

// Get returns the adapter for id.
func (r *Registry) Get(id provider.ID) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[id]
	return a, ok
}

// IDs lists registered providers in a stable order.
func (r *Registry) IDs() []provider.ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]provider.ID, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Dispatch sends req to the adapter for req.Provider.
func (r *Registry) Dispatch(ctx context.Context, req Request) (Response, error) {
	a, ok := r.Get(req.Provider)
	if !ok {
		return Response{}, &Error{
			Kind:     KindUnavailable,
			Provider: req.Provider,
			Message:  fmt.Sprintf("no adapter registered for %q", req.Provider),
		}
	}
	return a.Send(ctx, req)
}
