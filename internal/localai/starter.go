package localai

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/codefionn/kael/internal/logger"
)

// CommandStarter starts the daemon through the user's service manager and
// falls back to spawning `ollama serve` in the background.
type CommandStarter struct {
	// Binary is the daemon executable; "ollama" when empty.
	Binary string
	Log    *logger.Logger
}

// Start implements Starter.
func (s *CommandStarter) Start(ctx context.Context) error {
	bin := s.Binary
	if bin == "" {
		bin = "ollama"
	}

	if path, err := exec.LookPath("systemctl"); err == nil {
		sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := exec.CommandContext(sctx, path, "--user", "start", "ollama").Run()
		cancel()
		if err == nil {
			return nil
		}
		if s.Log != nil {
			s.Log.Debug("systemctl --user start ollama: %v", err)
		}
	}

	path, err := exec.LookPath(bin)
	if err != nil {
		return fmt.Errorf("%s not installed: %w", bin, err)
	}

	// Not tied to ctx: the daemon outlives the request that started it.
	cmd := exec.Command(path, "serve")
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s serve: %w", bin, err)
	}
	if s.Log != nil {
		s.Log.Info("spawned %s serve (pid %d)", bin, cmd.Process.Pid)
	}
	return cmd.Process.Release()
}
