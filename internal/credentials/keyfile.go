package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codefionn/kael/internal/secrets"
)

// keyEntry is one record of the on-disk key cache.
type keyEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// KeyFile is the on-disk key cache: a JSON list of {name, value} records
// keyed by credential name. Values are sealed when the Sealer has a password.
type KeyFile struct {
	Path   string
	Sealer *secrets.Sealer
}

// Load reads every key. A missing file is an empty cache. Values that cannot
// be opened are skipped and reported in the returned error alongside the keys
// that could be read.
func (f *KeyFile) Load() (map[string]string, error) {
	keys := make(map[string]string)
	if f == nil || f.Path == "" {
		return keys, nil
	}

	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return keys, nil
	}
	if err != nil {
		return keys, fmt.Errorf("read key cache: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return keys, nil
	}

	var entries []keyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return keys, fmt.Errorf("parse key cache %s: %w", f.Path, err)
	}

	var errs []error
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		value, err := f.Sealer.Open(e.Value)
		if err != nil {
			errs = append(errs, fmt.Errorf("open key %q: %w", name, err))
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			keys[name] = value
		}
	}
	return keys, errors.Join(errs...)
}

// Lookup returns the key stored under name.
func (f *KeyFile) Lookup(name string) (string, bool, error) {
	keys, err := f.Load()
	value, ok := keys[name]
	return value, ok, err
}

// Save replaces the file contents with keys. The write goes to a temporary
// file first so readers never see a partial list.
func (f *KeyFile) Save(keys map[string]string) error {
	if f == nil || f.Path == "" {
		return errors.New("key cache path not configured")
	}

	names := make([]string, 0, len(keys))
	for name := range keys {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]keyEntry, 0, len(names))
	for _, name := range names {
		sealed, err := f.Sealer.Seal(keys[name])
		if err != nil {
			return fmt.Errorf("seal key %q: %w", name, err)
		}
		entries = append(entries, keyEntry{Name: name, Value: sealed})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode key cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create key cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), ".keys-*.json")
	if err != nil {
		return fmt.Errorf("create temp key cache: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write key cache: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod key cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close key cache: %w", err)
	}
	return os.Rename(tmpName, f.Path)
}

// Put stores one key, keeping the others.
func (f *KeyFile) Put(name, value string) error {
	keys, err := f.Load()
	if err != nil {
		return err
	}
	keys[name] = strings.TrimSpace(value)
	return f.Save(keys)
}

// Merge adds keys to the file, overwriting existing names.
func (f *KeyFile) Merge(keys map[string]string) error {
	existing, err := f.Load()
	if err != nil {
		return err
	}
	for name, value := range keys {
		existing[name] = value
	}
	return f.Save(existing)
}
