// Package ptytest provides a scripted shell child for tests of packages
// built on pty.Session.
package ptytest

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/codefionn/kael/internal/pty"
)

// Process is a fake child. Output is pushed with Emit; the child ends with
// Exit or Kill. With Echo set every write is also emitted as output.
type Process struct {
	Echo bool

	outR *io.PipeReader
	outW *io.PipeWriter

	mu         sync.Mutex
	input      bytes.Buffer
	rows, cols uint16

	exited   chan struct{}
	exitOnce sync.Once
	exitErr  error
}

// NewProcess returns a running fake child.
func NewProcess() *Process {
	r, w := io.Pipe()
	return &Process{outR: r, outW: w, exited: make(chan struct{})}
}

// Emit writes s to the child's output. It blocks until the session reads it.
func (p *Process) Emit(s string) {
	_, _ = p.outW.Write([]byte(s))
}

// Exit ends the child with err.
func (p *Process) Exit(err error) {
	p.exitOnce.Do(func() {
		p.exitErr = err
		_ = p.outW.Close()
		close(p.exited)
	})
}

// Written returns everything written to the child so far.
func (p *Process) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.input.String()
}

// Size returns the last size passed to Resize.
func (p *Process) Size() (rows, cols uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rows, p.cols
}

func (p *Process) Read(b []byte) (int, error) { return p.outR.Read(b) }

func (p *Process) Write(b []byte) (int, error) {
	select {
	case <-p.exited:
		return 0, io.ErrClosedPipe
	default:
	}
	p.mu.Lock()
	n, err := p.input.Write(b)
	p.mu.Unlock()
	if p.Echo {
		go p.Emit(string(b))
	}
	return n, err
}

func (p *Process) Resize(rows, cols uint16) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rows, p.cols = rows, cols
	return nil
}

func (p *Process) Kill() error {
	p.Exit(errors.New("signal: killed"))
	return nil
}

func (p *Process) Wait() error {
	<-p.exited
	return p.exitErr
}

func (p *Process) Close() error { return p.outR.Close() }
func (p *Process) Pid() int     { return 4242 }

// Spawner hands out a new Process per Spawn, or Err when set.
type Spawner struct {
	Echo bool
	Err  error

	mu    sync.Mutex
	procs []*Process
}

// Spawn implements pty.Spawner.
func (s *Spawner) Spawn() (pty.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p := NewProcess()
	p.Echo = s.Echo
	s.procs = append(s.procs, p)
	return p, nil
}

// Count returns how many processes were spawned.
func (s *Spawner) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.procs)
}

// Last returns the most recent process, or nil.
func (s *Spawner) Last() *Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.procs) == 0 {
		return nil
	}
	return s.procs[len(s.procs)-1]
}
