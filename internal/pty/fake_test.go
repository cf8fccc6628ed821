package pty

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

// fakeProcess is a scripted child: tests push output with emit and end it
// with exit.
type fakeProcess struct {
	outR *io.PipeReader
	outW *io.PipeWriter

	mu    sync.Mutex
	input bytes.Buffer

	exited   chan struct{}
	exitOnce sync.Once
	exitErr  error
	killed   atomic.Bool
}

func newFakeProcess() *fakeProcess {
	r, w := io.Pipe()
	return &fakeProcess{outR: r, outW: w, exited: make(chan struct{})}
}

func (p *fakeProcess) emit(s string) {
	_, _ = p.outW.Write([]byte(s))
}

func (p *fakeProcess) exit(err error) {
	p.exitOnce.Do(func() {
		p.exitErr = err
		_ = p.outW.Close()
		close(p.exited)
	})
}

func (p *fakeProcess) written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.input.String()
}

func (p *fakeProcess) Read(b []byte) (int, error) { return p.outR.Read(b) }

func (p *fakeProcess) Write(b []byte) (int, error) {
	select {
	case <-p.exited:
		return 0, io.ErrClosedPipe
	default:
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.input.Write(b)
}

func (p *fakeProcess) Resize(rows, cols uint16) error { return nil }

func (p *fakeProcess) Kill() error {
	p.killed.Store(true)
	p.exit(errors.New("signal: killed"))
	return nil
}

func (p *fakeProcess) Wait() error {
	<-p.exited
	return p.exitErr
}

func (p *fakeProcess) Close() error { return p.outR.Close() }
func (p *fakeProcess) Pid() int     { return 4242 }

// fakeSpawner hands out one prepared process per Spawn and counts calls.
type fakeSpawner struct {
	mu    sync.Mutex
	calls int
	procs []*fakeProcess
	err   error
	gate  chan struct{}
}

func (s *fakeSpawner) Spawn() (Process, error) {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	p := newFakeProcess()
	s.procs = append(s.procs, p)
	return p, nil
}

func (s *fakeSpawner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *fakeSpawner) last() *fakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.procs[len(s.procs)-1]
}
