package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/codefionn/kael/internal/consts"
	"github.com/codefionn/kael/internal/provider"
)

const copilotCLIDefaultBinary = "github-copilot"

const copilotInstallHint = "install it with `npm install -g @github/copilot`, authenticate with `gh auth login`, " +
	"or point COPILOT_AGENT_BIN at the binary"

// CopilotCLIAdapter runs the standalone Copilot CLI as a subprocess. It
// needs no API key; the CLI carries its own GitHub login.
type CopilotCLIAdapter struct {
	binary  string
	timeout time.Duration
}

// NewCopilotCLIAdapter creates the adapter for binary (a name on PATH or a
// path).
func NewCopilotCLIAdapter(binary string, timeout time.Duration) *CopilotCLIAdapter {
	if strings.TrimSpace(binary) == "" {
		binary = copilotCLIDefaultBinary
	}
	if timeout <= 0 {
		timeout = consts.CLITimeout
	}
	return &CopilotCLIAdapter{binary: strings.TrimSpace(binary), timeout: timeout}
}

// ID implements Adapter.
func (a *CopilotCLIAdapter) ID() provider.ID { return provider.CopilotCLI }

// Send implements Adapter.
func (a *CopilotCLIAdapter) Send(ctx context.Context, req Request) (Response, error) {
	id := provider.CopilotCLI

	path, err := exec.LookPath(a.binary)
	if err != nil {
		return Response{}, &Error{
			Kind:     KindToolMissing,
			Provider: id,
			Message:  fmt.Sprintf("%s not found; %s", a.binary, copilotInstallHint),
			Err:      err,
		}
	}

	prompt := req.Prompt
	if sys := strings.TrimSpace(req.SystemPrompt); sys != "" {
		prompt = sys + "\n\n" + req.Prompt
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, "chat", "--format", "plain", "--prompt", prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	err = cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return Response{}, &Error{Kind: KindTimeout, Provider: id, Message: fmt.Sprintf("no response within %s", a.timeout), Err: ctx.Err()}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Response{}, &Error{Kind: KindUnavailable, Provider: id, Err: err}
		}

		errText := strings.TrimSpace(stderr.String())
		lower := strings.ToLower(errText)
		if strings.Contains(lower, "not logged in") || strings.Contains(lower, "authentication") {
			return Response{}, &Error{
				Kind:     KindAuthRequired,
				Provider: id,
				Status:   exitErr.ExitCode(),
				Message:  "run `gh auth login`",
				Body:     truncateBody([]byte(errText)),
			}
		}

		body := errText
		if out := strings.TrimSpace(stdout.String()); out != "" {
			body = strings.TrimSpace(body + "\n" + out)
		}
		return Response{}, &Error{
			Kind:     KindBackendError,
			Provider: id,
			Status:   exitErr.ExitCode(),
			Body:     truncateBody([]byte(body)),
		}
	}

	content := strings.TrimSpace(stdout.String())
	if content == "" {
		return Response{}, newError(id, KindEmptyResponse, "CLI printed nothing")
	}
	return Response{Provider: id, Model: req.Model, Content: content}, nil
}
