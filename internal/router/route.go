package router

import (
	"fmt"
	"strings"

	"github.com/codefionn/kael/internal/provider"
)

// LocalModelFor returns the local model suited to c. An empty result leaves
// the choice to the daemon's default model.
func LocalModelFor(c Category, gpuBusy bool) string {
	switch c {
	case Coding:
		if gpuBusy {
			return "phi3:latest"
		}
		return "deepseek-coder:6.7b"
	case Quick:
		return "phi3:latest"
	case Complex:
		if gpuBusy {
			return "llama3:latest"
		}
		return "mixtral:8x7b"
	default:
		return ""
	}
}

// StatusMessage is a one-line note telling the user which model class
// answers.
func StatusMessage(c Category, gpuBusy bool) string {
	gpuNote := " (GPU accelerated)"
	if gpuBusy {
		gpuNote = " (GPU in use, running on CPU)"
	}

	switch c {
	case Coding:
		return fmt.Sprintf("Using %s for coding%s", LocalModelFor(c, gpuBusy), gpuNote)
	case Quick:
		return "Using phi3 for quick answers"
	case Complex:
		return "Using heavy reasoning model" + gpuNote
	default:
		return "Using local system assistant"
	}
}

// Decision is where one line of user input goes.
type Decision struct {
	IsCommand bool
	// Command is the shell line to run, without a leading "!".
	Command  string
	Category Category
	Provider provider.ID
	// Model is empty when the provider default applies.
	Model string
}

// Route decides how to handle text. Prompts go to preferred unless they
// are system queries, which always go to the local provider. An invalid
// preferred provider also falls back to the local one.
func Route(text string, preferred provider.ID, gpuBusy bool) Decision {
	if IsCommand(text) {
		cmd := strings.TrimSpace(text)
		cmd = strings.TrimSpace(strings.TrimPrefix(cmd, "!"))
		return Decision{IsCommand: true, Command: cmd}
	}

	d := Decision{Category: Classify(text), Provider: preferred}
	if IsSystemQuery(text) || !preferred.Valid() {
		d.Provider = provider.Ollama
	}
	if d.Provider == provider.Ollama {
		d.Model = LocalModelFor(d.Category, gpuBusy)
	}
	return d
}
