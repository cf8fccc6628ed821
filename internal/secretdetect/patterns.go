package secretdetect

import "regexp"

// Pattern is one recognizable credential shape.
type Pattern struct {
	Name  string
	Regex *regexp.Regexp
}

// Credential shapes of the providers kael talks to, plus generic tokens that
// show up in HTTP error bodies.
var defaultPatterns = []Pattern{
	{Name: "Anthropic API Key", Regex: regexp.MustCompile(`sk-ant-[a-zA-Z0-9]+-[a-zA-Z0-9_\-]{20,}`)},
	{Name: "OpenAI Project Key", Regex: regexp.MustCompile(`sk-proj-[a-zA-Z0-9_\-]{32,}`)},
	{Name: "OpenAI API Key", Regex: regexp.MustCompile(`sk-[a-zA-Z0-9]{32,}`)},
	{Name: "Google API Key", Regex: regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`)},
	{Name: "GitHub Token", Regex: regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{36,}`)},
	{Name: "GitHub Fine-Grained Token", Regex: regexp.MustCompile(`github_pat_[a-zA-Z0-9_]{22,}`)},
	{Name: "JSON Web Token", Regex: regexp.MustCompile(`eyJ[a-zA-Z0-9_\-]{8,}\.eyJ[a-zA-Z0-9_\-]{8,}\.[a-zA-Z0-9_\-]{8,}`)},
	{Name: "Bearer Token", Regex: regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_\-\.=]{20,}`)},
	{Name: "Private Key", Regex: regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`)},
}

// DefaultPatterns returns a copy of the built-in patterns.
func DefaultPatterns() []Pattern {
	return append([]Pattern(nil), defaultPatterns...)
}
