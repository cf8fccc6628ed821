package state

import (
	"sync"

	"github.com/codefionn/kael/internal/logger"
	"github.com/codefionn/kael/internal/provider"
)

// Preferences are user choices remembered between runs.
type Preferences struct {
	// LastCloudProvider is the cloud provider that last answered. In hybrid
	// mode it becomes the primary for non-system prompts.
	LastCloudProvider provider.ID `json:"last_cloud_provider,omitempty"`
}

// PreferencesStore guards and persists Preferences.
type PreferencesStore struct {
	path  string
	mu    sync.Mutex
	prefs Preferences
}

// NewPreferencesStore loads preferences from path.
func NewPreferencesStore(path string) *PreferencesStore {
	s := &PreferencesStore{path: path}
	if _, err := readJSON(path, &s.prefs); err != nil {
		logger.Global().Warn("preferences reset: %v", err)
		s.prefs = Preferences{}
	}
	if !s.prefs.LastCloudProvider.Valid() {
		s.prefs.LastCloudProvider = ""
	}
	return s
}

// Get returns the current preferences.
func (s *PreferencesStore) Get() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// RememberCloud records id as the last answering cloud provider. Local
// providers are ignored.
func (s *PreferencesStore) RememberCloud(id provider.ID) error {
	if !id.Valid() || id.IsLocal() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prefs.LastCloudProvider == id {
		return nil
	}
	s.prefs.LastCloudProvider = id
	if s.path == "" {
		return nil
	}
	return writeJSON(s.path, s.prefs)
}
