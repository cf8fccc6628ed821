package securemem

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Pool is a named set of secrets. Writes replace; last write wins.
type Pool struct {
	mu    sync.RWMutex
	items map[string]*String
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{items: make(map[string]*String)}
}

// Set stores value under key, replacing any previous value.
func (p *Pool) Set(key, value string) {
	s := NewString(value)

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.items[key]; ok {
		existing.Destroy()
	}
	p.items[key] = s
}

// Lookup returns the plaintext stored under key.
func (p *Pool) Lookup(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s, ok := p.items[key]
	if !ok {
		return "", false
	}
	return s.Reveal(), true
}

// Delete removes key.
func (p *Pool) Delete(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.items[key]; ok {
		s.Destroy()
		delete(p.items, key)
	}
}

// Clear removes every key.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, s := range p.items {
		s.Destroy()
		delete(p.items, key)
	}
}

// Keys returns the stored keys in sorted order.
func (p *Pool) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	keys := make([]string, 0, len(p.items))
	for key := range p.items {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Count returns the number of stored keys.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.items)
}

// String lists keys only, never values.
func (p *Pool) String() string {
	return fmt.Sprintf("SecurePool{%s}", strings.Join(p.Keys(), ", "))
}
