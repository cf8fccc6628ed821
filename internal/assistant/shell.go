// Package assistant ties the pieces together: each line of user input is
// either written to the terminal or answered by an AI provider with
// fallback.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/codefionn/kael/internal/auth"
	"github.com/codefionn/kael/internal/fallback"
	"github.com/codefionn/kael/internal/llm"
	"github.com/codefionn/kael/internal/logger"
	"github.com/codefionn/kael/internal/metrics"
	"github.com/codefionn/kael/internal/provider"
	"github.com/codefionn/kael/internal/pty"
	"github.com/codefionn/kael/internal/router"
	"github.com/codefionn/kael/internal/state"
)

// Sender answers a prompt with fallback across providers.
type Sender interface {
	Send(ctx context.Context, initial llm.Request, user *auth.User, chain fallback.Chain) (llm.Response, error)
}

// GPUChecker reports whether the GPU is too busy for the heavy local models.
type GPUChecker interface {
	Busy(ctx context.Context) bool
}

// ReplyKind says what Submit did with the input.
type ReplyKind int

const (
	// ReplyCommand means the input was written to the terminal. Its output
	// arrives on the terminal stream.
	ReplyCommand ReplyKind = iota
	// ReplyChat carries a provider answer.
	ReplyChat
	// ReplyError carries a user-facing failure message.
	ReplyError
)

// Reply is the outcome of one Submit.
type Reply struct {
	Kind     ReplyKind
	Text     string
	Provider provider.ID
	Model    string
	Category router.Category
	// Status notes which local model class answered, when local.
	Status string
	// Detail lists every failed provider attempt of a chat error, one per line.
	Detail string
}

// Options wires a Shell. Sender is required; every other field is optional.
type Options struct {
	Sender  Sender
	Spawner pty.Spawner
	Usage   *state.UsageTracker
	Order   *state.ProviderOrderStore
	Prefs   *state.PreferencesStore
	GPU     GPUChecker
	// User returns the signed-in user, or nil.
	User       func() *auth.User
	HybridMode bool
	// SystemContextPath is the machine description prepended to the system
	// prompt.
	SystemContextPath string
	Metrics           *metrics.Metrics
	Logger            *logger.Logger
}

// Shell routes user input. It is safe for concurrent use; chat requests
// run concurrently and terminal writes are serialized by the session.
type Shell struct {
	opts Options
	log  *logger.Logger

	mu       sync.Mutex
	terminal *pty.Session
}

// New creates a Shell with an unstarted terminal.
func New(opts Options) *Shell {
	log := opts.Logger
	if log == nil {
		log = logger.Global().WithPrefix("assistant")
	}
	s := &Shell{opts: opts, log: log}
	s.terminal = s.newTerminal()
	return s
}

func (s *Shell) newTerminal() *pty.Session {
	return pty.NewSession(pty.Options{
		Spawner: s.opts.Spawner,
		Metrics: s.opts.Metrics,
		Logger:  s.log.WithPrefix("pty"),
	})
}

// Terminal returns the current terminal session.
func (s *Shell) Terminal() *pty.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal
}

// RestartTerminal closes the current terminal and starts a fresh one.
// Subscribers of the old terminal see their channels closed.
func (s *Shell) RestartTerminal(ctx context.Context) (*pty.Session, error) {
	s.mu.Lock()
	old := s.terminal
	s.terminal = s.newTerminal()
	next := s.terminal
	s.mu.Unlock()

	if err := old.Close(); err != nil {
		s.log.Warn("closing old terminal: %v", err)
	}
	if err := next.EnsureSession(ctx); err != nil {
		return next, err
	}
	return next, nil
}

// Close shuts the terminal down.
func (s *Shell) Close() error {
	return s.Terminal().Close()
}

// Submit handles one line of input with the default provider choice.
func (s *Shell) Submit(ctx context.Context, text string) Reply {
	return s.SubmitTo(ctx, text, "")
}

// SubmitTo handles one line of input. A valid preferred provider overrides
// the saved order for this prompt; system queries still go local.
func (s *Shell) SubmitTo(ctx context.Context, text string, preferred provider.ID) Reply {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{Kind: ReplyError, Text: "Nothing to do: empty input"}
	}

	if router.IsCommand(text) {
		return s.runCommand(ctx, router.Route(text, "", false).Command)
	}

	if !preferred.Valid() {
		preferred = s.primary(text)
	}
	gpuBusy := false
	if s.opts.GPU != nil && (preferred.IsLocal() || router.IsSystemQuery(text)) {
		gpuBusy = s.opts.GPU.Busy(ctx)
	}
	return s.chat(ctx, text, router.Route(text, preferred, gpuBusy), gpuBusy)
}

// primary picks the first provider for a prompt: the last answering cloud
// provider in hybrid mode, else the head of the saved order.
func (s *Shell) primary(text string) provider.ID {
	if s.opts.HybridMode && s.opts.Prefs != nil && !router.IsSystemQuery(text) {
		if last := s.opts.Prefs.Get().LastCloudProvider; last.Valid() {
			return last
		}
	}
	order := s.order()
	if len(order) == 0 {
		return provider.Ollama
	}
	return order[0]
}

func (s *Shell) order() []provider.ID {
	if s.opts.Order != nil {
		return s.opts.Order.Order()
	}
	return append([]provider.ID(nil), state.DefaultOrder...)
}

func (s *Shell) runCommand(ctx context.Context, command string) Reply {
	term := s.Terminal()
	if err := term.EnsureSession(ctx); err != nil {
		return terminalError(err)
	}
	if err := term.WriteLine(command); err != nil {
		return terminalError(err)
	}
	return Reply{Kind: ReplyCommand, Text: command}
}

func terminalError(err error) Reply {
	return Reply{Kind: ReplyError, Text: "Terminal error: " + err.Error()}
}

func (s *Shell) chat(ctx context.Context, text string, d router.Decision, gpuBusy bool) Reply {
	req := llm.Request{
		Provider:     d.Provider,
		Model:        d.Model,
		Prompt:       text,
		SystemPrompt: SystemPrompt(s.opts.SystemContextPath),
	}

	// The saved order comes first, then the built-in cloud order so a short
	// saved order still has somewhere to fall back to.
	candidates := append(s.order(), fallback.DefaultChain().IDs()...)
	chain := fallback.ChainFromOrder(candidates, d.Provider)

	var user *auth.User
	if s.opts.User != nil {
		user = s.opts.User()
	}

	resp, err := s.opts.Sender.Send(ctx, req, user, chain)
	if err != nil {
		reply := Reply{Kind: ReplyError, Text: chatFailure(err), Category: d.Category}
		var agg *fallback.AggregateError
		if errors.As(err, &agg) {
			reply.Detail = logger.Redact(agg.Summary())
			s.log.Warn("chat failed after trying %v", agg.Tried())
		}
		return reply
	}

	s.record(resp.Provider)

	reply := Reply{
		Kind:     ReplyChat,
		Text:     resp.Content,
		Provider: resp.Provider,
		Model:    resp.Model,
		Category: d.Category,
	}
	if resp.Provider.IsLocal() {
		reply.Status = router.StatusMessage(d.Category, gpuBusy)
	}
	return reply
}

func (s *Shell) record(id provider.ID) {
	if s.opts.Usage != nil {
		if _, err := s.opts.Usage.Increment(id); err != nil {
			s.log.Warn("saving usage for %s: %v", id, err)
		}
	}
	if s.opts.Prefs != nil {
		if err := s.opts.Prefs.RememberCloud(id); err != nil {
			s.log.Warn("saving preferences: %v", err)
		}
	}
}

// chatFailure renders a failed chat for the user. Key material never
// reaches this text.
func chatFailure(err error) string {
	reason := err
	var agg *fallback.AggregateError
	if errors.As(err, &agg) && agg.Unwrap() != nil {
		reason = agg.Unwrap()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "All AI providers failed: %s", logger.Redact(reason.Error()))
	b.WriteString("\n\n")
	b.WriteString(keyHint(agg))
	return b.String()
}

func keyHint(agg *fallback.AggregateError) string {
	var vars []string
	if agg != nil {
		for _, a := range agg.Attempts {
			switch llm.KindOf(a.Err) {
			case llm.KindMissingCredential, llm.KindAuthRequired:
				if hints := provider.EnvVarHints(a.Provider); len(hints) > 0 {
					vars = append(vars, hints[0])
				}
			}
		}
	}
	if len(vars) == 0 {
		return "Add an API key with `kael keys set <provider>` or start the local daemon."
	}
	return fmt.Sprintf("Add an API key with `kael keys set <provider>` or set %s.", strings.Join(vars, ", "))
}
