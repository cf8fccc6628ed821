package pty

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/codefionn/kael/internal/consts"
	creack "github.com/creack/pty"
)

// Process is a running child with its terminal I/O.
type Process interface {
	io.Reader
	io.Writer
	// Resize changes the terminal size. Pipe-backed processes ignore it.
	Resize(rows, cols uint16) error
	Kill() error
	Wait() error
	Close() error
	Pid() int
}

// Spawner starts the shell child of a Session.
type Spawner interface {
	Spawn() (Process, error)
}

// fallbackShells are tried in order when neither an explicit shell nor
// $SHELL is set.
var fallbackShells = []string{"/bin/bash", "/bin/sh"}

// DefaultShell returns shell, or $SHELL, or the first existing fallback
// shell, or /bin/sh.
func DefaultShell(shell string) string {
	if s := strings.TrimSpace(shell); s != "" {
		return s
	}
	if s := strings.TrimSpace(os.Getenv("SHELL")); s != "" {
		return s
	}
	for _, candidate := range fallbackShells {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return "/bin/sh"
}

// PTYSpawner runs Shell on a pseudo-terminal.
type PTYSpawner struct {
	Shell string
	Args  []string
	Dir   string
	// Env is appended to the current environment.
	Env  []string
	Rows uint16
	Cols uint16
}

// Spawn implements Spawner.
func (s *PTYSpawner) Spawn() (Process, error) {
	cmd := exec.Command(DefaultShell(s.Shell), s.Args...)
	cmd.Dir = s.Dir
	cmd.Env = append(append(os.Environ(), "TERM=xterm-256color"), s.Env...)

	rows, cols := s.Rows, s.Cols
	if rows == 0 {
		rows = consts.DefaultPTYRows
	}
	if cols == 0 {
		cols = consts.DefaultPTYCols
	}

	f, err := creack.StartWithSize(cmd, &creack.Winsize{Rows: rows, Cols: cols})
	if err != nil {
		return nil, fmt.Errorf("start %s on pty: %w", cmd.Path, err)
	}
	return &ptyProcess{cmd: cmd, f: f}, nil
}

type ptyProcess struct {
	cmd *exec.Cmd
	f   *os.File
}

func (p *ptyProcess) Read(b []byte) (int, error)  { return p.f.Read(b) }
func (p *ptyProcess) Write(b []byte) (int, error) { return p.f.Write(b) }
func (p *ptyProcess) Wait() error                 { return p.cmd.Wait() }
func (p *ptyProcess) Close() error                { return p.f.Close() }
func (p *ptyProcess) Pid() int                    { return p.cmd.Process.Pid }
func (p *ptyProcess) Kill() error                 { return killTree(p.cmd) }

func (p *ptyProcess) Resize(rows, cols uint16) error {
	return creack.Setsize(p.f, &creack.Winsize{Rows: rows, Cols: cols})
}

// PipeSpawner runs Shell with plain pipes; stdout and stderr share one
// stream. It serves platforms without pseudo-terminals and non-interactive
// use.
type PipeSpawner struct {
	Shell string
	Args  []string
	Dir   string
	Env   []string
}

// Spawn implements Spawner.
func (s *PipeSpawner) Spawn() (Process, error) {
	cmd := exec.Command(DefaultShell(s.Shell), s.Args...)
	cmd.Dir = s.Dir
	cmd.Env = append(os.Environ(), s.Env...)
	configureProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("output pipe: %w", err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, fmt.Errorf("start %s: %w", cmd.Path, err)
	}
	// The child holds its own copy of the write end.
	_ = pw.Close()

	return &pipeProcess{cmd: cmd, stdin: stdin, out: pr}, nil
}

type pipeProcess struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	out   *os.File
}

func (p *pipeProcess) Read(b []byte) (int, error)  { return p.out.Read(b) }
func (p *pipeProcess) Write(b []byte) (int, error) { return p.stdin.Write(b) }
func (p *pipeProcess) Wait() error                 { return p.cmd.Wait() }
func (p *pipeProcess) Pid() int                    { return p.cmd.Process.Pid }
func (p *pipeProcess) Kill() error                 { return killTree(p.cmd) }
func (p *pipeProcess) Resize(rows, cols uint16) error {
	return nil
}

func (p *pipeProcess) Close() error {
	err := p.stdin.Close()
	if cerr := p.out.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) {
		err = cerr
	}
	return err
}
