package pty

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady means the session has not been started.
	ErrNotReady = errors.New("terminal session not started")
	// ErrSessionDead means the child process exited. A dead session is not
	// restarted; create a new Session instead.
	ErrSessionDead = errors.New("terminal session has exited")
	// ErrSessionClosed means Close was called.
	ErrSessionClosed = errors.New("terminal session closed")
)

// IOError is a terminal I/O failure. It is never an LLM error.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("terminal %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
