// Package secretdetect recognizes credentials by their shape, so text that
// carries a key nobody registered (a backend echoing a header, a pasted
// token) can still be masked before it is logged or shown.
package secretdetect

import "sort"

// Match is a detected credential. Start and End are byte offsets.
type Match struct {
	Pattern string
	Text    string
	Start   int
	End     int
}

// Detector scans text against a fixed set of patterns. It is safe for
// concurrent use.
type Detector struct {
	patterns []Pattern
}

// NewDetector creates a detector with the default patterns plus extra.
func NewDetector(extra ...Pattern) *Detector {
	return &Detector{patterns: append(DefaultPatterns(), extra...)}
}

var defaultDetector = NewDetector()

// Scan returns non-overlapping matches ordered by position. Where patterns
// overlap the earliest, then longest, match wins.
func (d *Detector) Scan(content string) []Match {
	var all []Match
	for _, p := range d.patterns {
		for _, loc := range p.Regex.FindAllStringIndex(content, -1) {
			all = append(all, Match{Pattern: p.Name, Text: content[loc[0]:loc[1]], Start: loc[0], End: loc[1]})
		}
	}
	if len(all) == 0 {
		return nil
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return all[i].End > all[j].End
	})

	matches := all[:1]
	for _, m := range all[1:] {
		if m.Start >= matches[len(matches)-1].End {
			matches = append(matches, m)
		}
	}
	return matches
}

// Mask replaces every match in content with placeholder.
func (d *Detector) Mask(content, placeholder string) string {
	matches := d.Scan(content)
	if len(matches) == 0 {
		return content
	}

	out := make([]byte, 0, len(content))
	last := 0
	for _, m := range matches {
		out = append(out, content[last:m.Start]...)
		out = append(out, placeholder...)
		last = m.End
	}
	out = append(out, content[last:]...)
	return string(out)
}

// Mask masks content with the default detector.
func Mask(content, placeholder string) string {
	return defaultDetector.Mask(content, placeholder)
}
