package assistant

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const basePrompt = `You are Kael, the assistant built into the Kael desktop shell. You sit next to a live terminal and help the user run, understand and fix their system.

Environment:
- Arch Linux with paru for AUR packages, systemd, KDE Plasma on Wayland.
- The user can run any line you suggest in the attached terminal.

How to answer:
- Put every command in a fenced code block and say what it does.
- Warn before anything destructive and offer a safer alternative.
- For services, look at journalctl first. Mention Wayland versus X11 differences when they matter.
- Prefer Arch Wiki and KDE documentation over generic advice.
- Keep answers focused. Ask a clarifying question when the request is ambiguous.
- Casual questions get a short, friendly answer.`

// SystemContext is the machine description written on first launch. Only
// the prompt is read here.
type SystemContext struct {
	SystemPrompt string `json:"system_prompt"`
}

// LoadSystemContext reads the system context file at path.
func LoadSystemContext(path string) (*SystemContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc SystemContext
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse system context %s: %w", path, err)
	}
	return &sc, nil
}

// SystemPrompt returns the system prompt sent with every chat request. The
// machine description from contextPath, if readable, comes first.
func SystemPrompt(contextPath string) string {
	if contextPath == "" {
		return basePrompt
	}
	sc, err := LoadSystemContext(contextPath)
	if err != nil || strings.TrimSpace(sc.SystemPrompt) == "" {
		return basePrompt
	}
	return strings.TrimSpace(sc.SystemPrompt) + "\n\n" + basePrompt
}
