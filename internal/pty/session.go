// Package pty owns one long-lived interactive shell and broadcasts its raw
// output to any number of subscribers.
package pty

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/codefionn/kael/internal/consts"
	"github.com/codefionn/kael/internal/logger"
	"github.com/codefionn/kael/internal/metrics"
)

// Options configures a Session. Zero values pick the defaults.
type Options struct {
	Spawner Spawner
	// BufferSize is the per-subscriber chunk backlog.
	BufferSize int
	Metrics    *metrics.Metrics
	Logger     *logger.Logger
}

// Session owns at most one shell child for its whole life. After the child
// exits the session is Dead and stays Dead.
type Session struct {
	spawner Spawner
	bufSize int
	metrics *metrics.Metrics
	log     *logger.Logger

	mu       sync.Mutex
	state    State
	starting chan struct{}
	startErr error
	proc     Process
	exitErr  error

	writeMu sync.Mutex

	subsMu sync.RWMutex
	subs   map[*Subscription]struct{}

	done       chan struct{}
	finishOnce sync.Once
	readerDone chan struct{}
}

// NewSession creates an unstarted session.
func NewSession(opts Options) *Session {
	s := &Session{
		spawner: opts.Spawner,
		bufSize: opts.BufferSize,
		metrics: opts.Metrics,
		log:     opts.Logger,
		subs:    make(map[*Subscription]struct{}),
		done:    make(chan struct{}),
	}
	if s.spawner == nil {
		s.spawner = &PTYSpawner{}
	}
	if s.bufSize <= 0 {
		s.bufSize = consts.DefaultSubscriberBuffer
	}
	if s.log == nil {
		s.log = logger.Global().WithPrefix("pty")
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed when the session ends, by child exit or Close.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the child's exit error once the session is Dead.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitErr
}

// Pid returns the child pid, or 0 before the child is started.
func (s *Session) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return 0
	}
	return s.proc.Pid()
}

// EnsureSession starts the child on first use. Concurrent callers share one
// spawn. It is a no-op when Ready. A failed spawn leaves the session
// Unstarted so a later call can try again.
func (s *Session) EnsureSession(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case Ready:
		s.mu.Unlock()
		return nil
	case Dead:
		s.mu.Unlock()
		return &IOError{Op: "start", Err: ErrSessionDead}
	case Closed:
		s.mu.Unlock()
		return &IOError{Op: "start", Err: ErrSessionClosed}
	case Starting:
		ch := s.starting
		s.mu.Unlock()
		select {
		case <-ch:
			s.mu.Lock()
			defer s.mu.Unlock()
			return s.startErr
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.state = Starting
	s.starting = make(chan struct{})
	s.startErr = nil
	s.mu.Unlock()

	proc, err := s.spawner.Spawn()

	s.mu.Lock()
	defer s.mu.Unlock()
	defer close(s.starting)

	if err != nil {
		s.state = Unstarted
		s.startErr = &IOError{Op: "spawn", Err: err}
		s.log.Error("spawn failed: %v", err)
		return s.startErr
	}
	if s.state == Closed {
		_ = proc.Kill()
		_ = proc.Close()
		go func() { _ = proc.Wait() }()
		s.startErr = &IOError{Op: "start", Err: ErrSessionClosed}
		return s.startErr
	}

	s.proc = proc
	s.state = Ready
	s.readerDone = make(chan struct{})
	go s.readLoop(proc, s.readerDone)
	s.log.Info("shell started (pid %d)", proc.Pid())
	return nil
}

// WriteLine writes text followed by one newline to the child's input.
// Writes are serialized.
func (s *Session) WriteLine(text string) error {
	s.mu.Lock()
	state, proc := s.state, s.proc
	s.mu.Unlock()

	switch state {
	case Ready:
	case Dead:
		return &IOError{Op: "write", Err: ErrSessionDead}
	case Closed:
		return &IOError{Op: "write", Err: ErrSessionClosed}
	default:
		return &IOError{Op: "write", Err: ErrNotReady}
	}

	line := strings.TrimRight(text, "\r\n") + "\n"

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := io.WriteString(proc, line); err != nil {
		return &IOError{Op: "write", Err: err}
	}
	return nil
}

// Resize changes the terminal size of a Ready session.
func (s *Session) Resize(rows, cols uint16) error {
	s.mu.Lock()
	state, proc := s.state, s.proc
	s.mu.Unlock()
	if state != Ready {
		return &IOError{Op: "resize", Err: ErrNotReady}
	}
	if err := proc.Resize(rows, cols); err != nil {
		return &IOError{Op: "resize", Err: err}
	}
	return nil
}

// Subscribe returns a new subscriber. Subscribing to an ended session yields
// a closed channel.
func (s *Session) Subscribe() *Subscription {
	sub := newSubscription(s.bufSize, s.unsubscribe)

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	select {
	case <-s.done:
		sub.closeChannel()
		return sub
	default:
	}
	s.subs[sub] = struct{}{}
	return sub
}

func (s *Session) unsubscribe(sub *Subscription) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	delete(s.subs, sub)
	sub.closeChannel()
}

// Subscribers returns the number of live subscriptions.
func (s *Session) Subscribers() int {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	return len(s.subs)
}

func (s *Session) broadcast(chunk []byte) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for sub := range s.subs {
		if n := sub.deliver(chunk); n > 0 {
			s.metrics.TerminalDropped(n)
		}
	}
}

func (s *Session) readLoop(proc Process, readerDone chan struct{}) {
	defer close(readerDone)

	buf := make([]byte, consts.BufferSize4KB)
	for {
		n, err := proc.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.metrics.TerminalBytes(n)
			s.broadcast(chunk)
		}
		if err != nil {
			if err != io.EOF {
				s.log.Debug("read ended: %v", err)
			}
			break
		}
	}

	waitErr := proc.Wait()

	s.mu.Lock()
	if s.state == Ready {
		s.state = Dead
		s.exitErr = waitErr
		if waitErr != nil {
			s.log.Warn("shell exited: %v", waitErr)
		} else {
			s.log.Info("shell exited")
		}
	}
	s.mu.Unlock()

	s.finish()
}

// finish closes every subscriber and the done channel once.
func (s *Session) finish() {
	s.finishOnce.Do(func() {
		s.subsMu.Lock()
		close(s.done)
		for sub := range s.subs {
			sub.closeChannel()
			delete(s.subs, sub)
		}
		s.subsMu.Unlock()
	})
}

// Close kills the child, waits for its output to drain and closes every
// subscriber. It is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return nil
	}
	prev := s.state
	s.state = Closed
	proc, readerDone := s.proc, s.readerDone
	s.mu.Unlock()

	var err error
	if proc != nil && prev == Ready {
		if kerr := proc.Kill(); kerr != nil {
			err = fmt.Errorf("kill shell: %w", kerr)
		}
	}
	if readerDone != nil {
		<-readerDone
	}
	if proc != nil {
		_ = proc.Close()
	}
	s.finish()
	return err
}
