package state

import (
	"path/filepath"
	"sync"

	"github.com/codefionn/kael/internal/logger"
	"github.com/codefionn/kael/internal/provider"
	"github.com/fsnotify/fsnotify"
)

// DefaultOrder is used until the user saves an order: the local provider
// first, then the two main cloud providers.
var DefaultOrder = []provider.ID{provider.Ollama, provider.Mistral, provider.Gemini}

// ProviderOrderStore holds the user's provider priority. The file is a JSON
// list of provider IDs or labels; unknown entries are ignored.
type ProviderOrderStore struct {
	path string
	log  *logger.Logger

	mu       sync.RWMutex
	order    []provider.ID
	onChange func([]provider.ID)

	watcher *fsnotify.Watcher
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewProviderOrderStore loads the order from path.
func NewProviderOrderStore(path string) *ProviderOrderStore {
	s := &ProviderOrderStore{path: path, log: logger.Global().WithPrefix("state")}
	s.reload()
	return s
}

// parseOrder maps stored names to IDs, dropping unknown names and repeats.
func parseOrder(names []string) []provider.ID {
	seen := make(map[provider.ID]bool, len(names))
	out := make([]provider.ID, 0, len(names))
	for _, n := range names {
		id, ok := provider.Parse(n)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (s *ProviderOrderStore) reload() {
	var names []string
	if _, err := readJSON(s.path, &names); err != nil {
		s.log.Warn("provider order ignored: %v", err)
		names = nil
	}
	order := parseOrder(names)

	s.mu.Lock()
	s.order = order
	cb := s.onChange
	s.mu.Unlock()

	if cb != nil {
		cb(s.Order())
	}
}

// Order returns the saved order, or DefaultOrder when none is saved.
func (s *ProviderOrderStore) Order() []provider.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.order
	if len(src) == 0 {
		src = DefaultOrder
	}
	return append([]provider.ID(nil), src...)
}

// Set saves order.
func (s *ProviderOrderStore) Set(order []provider.ID) error {
	names := make([]string, 0, len(order))
	for _, id := range order {
		names = append(names, string(id))
	}
	clean := parseOrder(names)

	s.mu.Lock()
	s.order = clean
	s.mu.Unlock()

	stored := make([]string, len(clean))
	for i, id := range clean {
		stored[i] = string(id)
	}
	return writeJSON(s.path, stored)
}

// OnChange registers fn to run after the file is reloaded.
func (s *ProviderOrderStore) OnChange(fn func([]provider.ID)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Watch reloads the order whenever the file changes on disk. It watches the
// parent directory so atomic replacements are seen.
func (s *ProviderOrderStore) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return err
	}

	s.watcher = watcher
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.watchLoop()
	return nil
}

func (s *ProviderOrderStore) watchLoop() {
	defer s.wg.Done()
	target := filepath.Clean(s.path)
	for {
		select {
		case <-s.stop:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				s.reload()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Error("provider order watcher error: %v", err)
		}
	}
}

// Close stops watching.
func (s *ProviderOrderStore) Close() error {
	if s.watcher == nil {
		return nil
	}
	close(s.stop)
	err := s.watcher.Close()
	s.wg.Wait()
	s.watcher = nil
	return err
}
