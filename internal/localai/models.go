package localai

import "strings"

// modelPriority orders model families from most to least preferred.
var modelPriority = []string{"llama", "phi", "mistral", "qwen", "granite", "gemma"}

// PickModel chooses an installed model: the first whose name contains a
// preferred family, else the first installed one. Names in exclude are
// skipped. It returns "" when nothing is left.
func PickModel(installed []string, exclude ...string) string {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[strings.TrimSpace(e)] = true
	}

	candidates := make([]string, 0, len(installed))
	for _, m := range installed {
		if m = strings.TrimSpace(m); m != "" && !skip[m] {
			candidates = append(candidates, m)
		}
	}

	for _, family := range modelPriority {
		for _, m := range candidates {
			if strings.Contains(strings.ToLower(m), family) {
				return m
			}
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return ""
}
