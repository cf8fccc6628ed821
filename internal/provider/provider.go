// Package provider names the LLM backends kael can talk to.
package provider

import "strings"

// ID identifies a backend. The string values are persisted in state files
// and must not change.
type ID string

const (
	Ollama     ID = "ollama"
	Mistral    ID = "mistral"
	Gemini     ID = "gemini"
	Copilot    ID = "copilot"
	CopilotCLI ID = "copilot-cli"
	Office365  ID = "office365"
	GoogleOne  ID = "google-one"
	Minstrel   ID = "minstrel"
	Anthropic  ID = "anthropic"
)

type info struct {
	label      string
	credential string
	local      bool
	keyless    bool
}

var registry = map[ID]info{
	Ollama:     {label: "Ollama (Local)", credential: "Ollama (Local)", local: true, keyless: true},
	Mistral:    {label: "Mistral AI", credential: "Mistral AI"},
	Gemini:     {label: "Google Gemini", credential: "Google Gemini"},
	Copilot:    {label: "GitHub Copilot", credential: "GitHub Copilot"},
	CopilotCLI: {label: "GitHub Copilot CLI (New)", credential: "GitHub Copilot CLI", keyless: true},
	Office365:  {label: "Office 365 AI", credential: "Office 365 AI"},
	GoogleOne:  {label: "Google One AI", credential: "Google One AI"},
	Minstrel:   {label: "Minstrel AI", credential: "Minstrel AI"},
	Anthropic:  {label: "Anthropic Claude", credential: "Anthropic Claude"},
}

var ordered = []ID{Ollama, Mistral, Gemini, Copilot, CopilotCLI, Office365, GoogleOne, Minstrel, Anthropic}

// All returns every known provider in display order.
func All() []ID {
	out := make([]ID, len(ordered))
	copy(out, ordered)
	return out
}

// Valid reports whether id is a known provider.
func (id ID) Valid() bool {
	_, ok := registry[id]
	return ok
}

func (id ID) String() string {
	return string(id)
}

// Label is the human-readable name. Usage counters and order files written
// by older installs are keyed by it.
func (id ID) Label() string {
	if i, ok := registry[id]; ok {
		return i.label
	}
	return string(id)
}

// CredentialName is the key used for this provider in the key cache file
// and the remote key store.
func (id ID) CredentialName() string {
	if i, ok := registry[id]; ok {
		return i.credential
	}
	return string(id)
}

// IsLocal reports whether the provider runs on this machine.
func (id ID) IsLocal() bool {
	return registry[id].local
}

// NeedsKey reports whether requests to the provider require an API key.
func (id ID) NeedsKey() bool {
	i, ok := registry[id]
	return ok && !i.keyless
}

// Parse resolves an ID, label or credential name, ignoring case and
// surrounding whitespace.
func Parse(s string) (ID, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, id := range ordered {
		i := registry[id]
		if strings.EqualFold(s, string(id)) ||
			strings.EqualFold(s, i.label) ||
			strings.EqualFold(s, i.credential) {
			return id, true
		}
	}
	return "", false
}
