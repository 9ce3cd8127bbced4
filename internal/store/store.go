// Package store provides storage backends for FarmGenius.
//
// Every browser client owns a namespace of string keys and string values, the
// durable equivalent of the page's local storage. Structured values (the user
// session) are stored JSON-encoded by the caller.
package store

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Store is a namespaced string key-value store.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, namespace, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, namespace, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, namespace, key string) error
	// Keys lists the keys present in namespace in lexical order.
	Keys(ctx context.Context, namespace string) ([]string, error)
	// Close releases backend resources.
	Close() error
}

// Opts holds configuration for store backends.
type Opts struct {
	DSN string
}

// Option configures a store backend.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType returns "postgres" for PostgreSQL connection strings and
// "sqlite3" for everything else.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite3"
}

// InMemoryStore is a simple in-memory store. Values do not survive a restart.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string]map[string]string)}
}

func (s *InMemoryStore) Get(_ context.Context, namespace, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[namespace][key]
	return v, ok, nil
}

func (s *InMemoryStore) Set(_ context.Context, namespace, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.data[namespace]
	if !ok {
		ns = make(map[string]string)
		s.data[namespace] = ns
	}
	ns[key] = value
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns, ok := s.data[namespace]; ok {
		delete(ns, key)
		if len(ns) == 0 {
			delete(s.data, namespace)
		}
	}
	return nil
}

func (s *InMemoryStore) Keys(_ context.Context, namespace string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data[namespace]))
	for k := range s.data[namespace] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *InMemoryStore) Close() error { return nil }

// LocalStorage is one client's view of a Store.
type LocalStorage struct {
	store     Store
	namespace string
}

// NewLocalStorage scopes st to the given client namespace.
func NewLocalStorage(st Store, namespace string) *LocalStorage {
	return &LocalStorage{store: st, namespace: namespace}
}

// Namespace returns the client namespace this storage is bound to.
func (l *LocalStorage) Namespace() string { return l.namespace }

// GetItem returns the stored value, or "" and false when absent.
func (l *LocalStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := l.store.Get(ctx, l.namespace, key)
	if err != nil {
		slog.Error("LocalStorage.GetItem: read failed", "namespace", l.namespace, "key", key, "error", err)
	}
	return v, ok, err
}

func (l *LocalStorage) SetItem(ctx context.Context, key, value string) error {
	if err := l.store.Set(ctx, l.namespace, key, value); err != nil {
		slog.Error("LocalStorage.SetItem: write failed", "namespace", l.namespace, "key", key, "error", err)
		return err
	}
	slog.Debug("LocalStorage.SetItem", "namespace", l.namespace, "key", key)
	return nil
}

func (l *LocalStorage) RemoveItem(ctx context.Context, key string) error {
	if err := l.store.Delete(ctx, l.namespace, key); err != nil {
		slog.Error("LocalStorage.RemoveItem: delete failed", "namespace", l.namespace, "key", key, "error", err)
		return err
	}
	slog.Debug("LocalStorage.RemoveItem", "namespace", l.namespace, "key", key)
	return nil
}

// Snapshot returns every key/value pair in the namespace.
func (l *LocalStorage) Snapshot(ctx context.Context) (map[string]string, error) {
	keys, err := l.store.Keys(ctx, l.namespace)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		v, ok, err := l.store.Get(ctx, l.namespace, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out[k] = v
		}
	}
	return out, nil
}
