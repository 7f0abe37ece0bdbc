package store

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/coinwatch/ratevault/internal/domain/entity"
	"github.com/coinwatch/ratevault/internal/domain/repository"
)

// FileStore is the flat, synchronous fallback backend: one file per
// key, values stored as JSON text. It deliberately depends on nothing
// but the filesystem so it cannot share a failure domain with the
// structured store.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a file store rooted at dir
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &FileStore{dir: dir}, nil
}

// filePath flattens a domain+key into a single escaped file name.
// The flat store uses the same keys as the structured one, joined by
// the domain separator.
func (s *FileStore) filePath(domain repository.Domain, key string) string {
	flat := string(domain) + ":" + key
	return filepath.Join(s.dir, url.QueryEscape(flat)+".json")
}

// Set writes the value to its file, replacing any previous content
func (s *FileStore) Set(ctx context.Context, domain repository.Domain, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.filePath(domain, key), value, 0o644); err != nil {
		return &entity.StoreWriteError{Backend: "file", Err: err}
	}

	return nil
}

// Get reads a value, or returns nil if the key is absent
func (s *FileStore) Get(ctx context.Context, domain repository.Domain, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath(domain, key))
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return data, nil
}

// Delete removes a key's file; an absent file is not an error
func (s *FileStore) Delete(ctx context.Context, domain repository.Domain, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.filePath(domain, key))
	if err != nil && !os.IsNotExist(err) {
		return &entity.StoreWriteError{Backend: "file", Err: err}
	}

	return nil
}

// Clear removes every cache-domain record file; settings files stay
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return &entity.StoreWriteError{Backend: "file", Err: err}
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}

		flat, err := url.QueryUnescape(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			continue // not one of our record files
		}

		if !inCacheDomain(flat) {
			continue
		}

		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return &entity.StoreWriteError{Backend: "file", Err: err}
		}
	}

	return nil
}

// inCacheDomain reports whether a flattened domain:key name belongs to
// a cache domain
func inCacheDomain(flat string) bool {
	for _, domain := range repository.CacheDomains {
		if strings.HasPrefix(flat, string(domain)+":") {
			return true
		}
	}
	return false
}

// Close is a no-op for the file store
func (s *FileStore) Close() error {
	return nil
}

// Ensure FileStore implements repository.Store
var _ repository.Store = (*FileStore)(nil)
