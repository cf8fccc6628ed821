package fallback

import "github.com/codefionn/kael/internal/provider"

// Entry is one fallback candidate. APIKey, when set, is used as the
// explicit key for that attempt.
type Entry struct {
	Provider provider.ID
	APIKey   string
}

// Chain is an ordered list of fallback candidates.
type Chain []Entry

// defaultOrder is the cloud order used when the user has not chosen one.
var defaultOrder = []provider.ID{
	provider.Mistral,
	provider.Gemini,
	provider.Copilot,
	provider.CopilotCLI,
	provider.Office365,
	provider.GoogleOne,
}

// DefaultChain returns the built-in fallback order.
func DefaultChain() Chain {
	c := make(Chain, 0, len(defaultOrder))
	for _, id := range defaultOrder {
		c = append(c, Entry{Provider: id})
	}
	return c
}

// ChainFromOrder builds a chain from a persisted provider order. Unknown
// IDs, repeats and primary are dropped.
func ChainFromOrder(order []provider.ID, primary provider.ID) Chain {
	seen := map[provider.ID]bool{primary: true}
	c := make(Chain, 0, len(order))
	for _, id := range order {
		if !id.Valid() || seen[id] {
			continue
		}
		seen[id] = true
		c = append(c, Entry{Provider: id})
	}
	return c
}

// IDs returns the providers of c in order.
func (c Chain) IDs() []provider.ID {
	ids := make([]provider.ID, len(c))
	for i, e := range c {
		ids[i] = e.Provider
	}
	return ids
}
