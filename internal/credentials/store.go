// Package credentials resolves API keys for providers from, in order, the
// request itself, an in-memory cache, the on-disk key cache, the environment
// and a per-user remote store.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/codefionn/kael/internal/auth"
	"github.com/codefionn/kael/internal/consts"
	"github.com/codefionn/kael/internal/logger"
	"github.com/codefionn/kael/internal/provider"
	"github.com/codefionn/kael/internal/securemem"
)

// Source says where a resolved key came from.
type Source int

const (
	SourceNone Source = iota
	SourceExplicit
	SourceMemory
	SourceDisk
	SourceEnv
	SourceRemote
)

func (s Source) String() string {
	switch s {
	case SourceExplicit:
		return "explicit"
	case SourceMemory:
		return "memory"
	case SourceDisk:
		return "key cache"
	case SourceEnv:
		return "environment"
	case SourceRemote:
		return "remote"
	default:
		return "none"
	}
}

// Options configures a Store. Every field is optional.
type Options struct {
	KeyFile *KeyFile
	Remote  RemoteSource
	// Env looks keys up in the environment. Defaults to provider.EnvAPIKey.
	Env    func(provider.ID) string
	Logger *logger.Logger
}

// Store is safe for concurrent use. The memory cache is last-write-wins per
// credential name.
type Store struct {
	pool    *securemem.Pool
	keyFile *KeyFile
	remote  RemoteSource
	env     func(provider.ID) string
	log     *logger.Logger
}

// NewStore creates a Store.
func NewStore(opts Options) *Store {
	env := opts.Env
	if env == nil {
		env = provider.EnvAPIKey
	}
	log := opts.Logger
	if log == nil {
		log = logger.Global().WithPrefix("credentials")
	}
	return &Store{
		pool:    securemem.NewPool(),
		keyFile: opts.KeyFile,
		remote:  opts.Remote,
		env:     env,
		log:     log,
	}
}

// Cache stores key under name in memory exactly as given. A blank key
// clears name, so an older key is never served after it.
func (s *Store) Cache(name, key string) {
	if name == "" {
		return
	}
	if strings.TrimSpace(key) == "" {
		s.Forget(name)
		return
	}
	logger.RegisterSecret(key)
	s.pool.Set(name, key)
}

// Cached returns the memory-cached key for name.
func (s *Store) Cached(name string) (string, bool) {
	return s.pool.Lookup(name)
}

// Forget drops name from memory.
func (s *Store) Forget(name string) {
	s.pool.Delete(name)
}

// Close wipes the memory cache.
func (s *Store) Close() {
	s.pool.Clear()
}

// Resolve returns the key for id, or "" with SourceNone when no source has
// one. Remote lookup happens only when user is non-nil; a remote hit is
// cached in memory. Remote failures are logged and treated as no key.
func (s *Store) Resolve(ctx context.Context, id provider.ID, explicit string, user *auth.User) (string, Source) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		logger.RegisterSecret(explicit)
		return explicit, SourceExplicit
	}

	name := id.CredentialName()
	if key, ok := s.Cached(name); ok && key != "" {
		return key, SourceMemory
	}

	if s.keyFile != nil {
		key, ok, err := s.keyFile.Lookup(name)
		if err != nil {
			s.log.Warn("key cache lookup for %s: %v", name, err)
		}
		if ok {
			logger.RegisterSecret(key)
			return key, SourceDisk
		}
	}

	if key := strings.TrimSpace(s.env(id)); key != "" {
		logger.RegisterSecret(key)
		return key, SourceEnv
	}

	if user != nil && s.remote != nil {
		if key := s.fetchRemote(ctx, name, user); key != "" {
			s.Cache(name, key)
			return key, SourceRemote
		}
	}

	return "", SourceNone
}

func (s *Store) fetchRemote(ctx context.Context, name string, user *auth.User) string {
	ctx, cancel := context.WithTimeout(ctx, consts.RemoteKeyTimeout)
	defer cancel()

	keys, err := s.remote.FetchAll(ctx, user)
	if err != nil {
		s.log.Warn("remote key fetch for %s failed: %v", name, err)
		return ""
	}
	for _, v := range keys {
		logger.RegisterSecret(v)
	}
	return keys[name]
}

// Prefetch loads every remote key for user into memory and merges them into
// the on-disk key cache. It returns the number of keys loaded.
func (s *Store) Prefetch(ctx context.Context, user *auth.User) (int, error) {
	if user == nil {
		return 0, errors.New("prefetch: no user")
	}
	if s.remote == nil {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, consts.RemoteKeyTimeout)
	defer cancel()

	keys, err := s.remote.FetchAll(ctx, user)
	if err != nil {
		return 0, fmt.Errorf("prefetch: %w", err)
	}
	for name, key := range keys {
		s.Cache(name, key)
	}

	if s.keyFile != nil && len(keys) > 0 {
		if err := s.keyFile.Merge(keys); err != nil {
			return len(keys), fmt.Errorf("prefetch: write key cache: %w", err)
		}
	}
	s.log.Info("prefetched %d remote keys", len(keys))
	return len(keys), nil
}

// Save caches key in memory, writes it to the key cache file, and pushes it
// to the remote store when user is non-nil.
func (s *Store) Save(ctx context.Context, id provider.ID, key string, user *auth.User) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("empty key")
	}
	name := id.CredentialName()
	s.Cache(name, key)

	if s.keyFile != nil {
		if err := s.keyFile.Put(name, key); err != nil {
			return fmt.Errorf("save %s key: %w", name, err)
		}
	}
	if user != nil && s.remote != nil {
		ctx, cancel := context.WithTimeout(ctx, consts.RemoteKeyTimeout)
		defer cancel()
		if err := s.remote.Store(ctx, user, name, key); err != nil {
			return fmt.Errorf("push %s key: %w", name, err)
		}
	}
	return nil
}
