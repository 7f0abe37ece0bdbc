// Package agent internal/infrastructure/agent/generation.go
package agent

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const indexFile = "index.json"

// assetEntry describes one cached response inside a generation
type assetEntry struct {
	File        string    `json:"file"`
	ContentType string    `json:"content_type"`
	StoredAt    time.Time `json:"stored_at"`
}

// GenerationStore keeps versioned asset generations on disk: one
// directory per generation, response bodies stored under hashed file
// names, and an index mapping request paths to entries
type GenerationStore struct {
	root string
	mu   sync.Mutex
}

// NewGenerationStore opens (or creates) the generation root. Failure
// here aborts agent installation.
func NewGenerationStore(root string) (*GenerationStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}

	return &GenerationStore{root: root}, nil
}

// List returns the names of every stored generation
func (s *GenerationStore) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}

	sort.Strings(names)
	return names, nil
}

// Delete removes a whole generation
func (s *GenerationStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return os.RemoveAll(filepath.Join(s.root, name))
}

// Put stores a response body under a request path inside a generation
func (s *GenerationStore) Put(generation, path, contentType string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.root, generation)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	file := hashName(path)
	if err := os.WriteFile(filepath.Join(dir, file), body, 0o644); err != nil {
		return err
	}

	index, err := s.readIndex(dir)
	if err != nil {
		return err
	}

	index[path] = assetEntry{
		File:        file,
		ContentType: contentType,
		StoredAt:    time.Now().UTC(),
	}

	return s.writeIndex(dir, index)
}

// Get retrieves a cached response body and content type, if present
func (s *GenerationStore) Get(generation, path string) ([]byte, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.root, generation)

	index, err := s.readIndex(dir)
	if err != nil {
		return nil, "", false
	}

	entry, ok := index[path]
	if !ok {
		return nil, "", false
	}

	body, err := os.ReadFile(filepath.Join(dir, entry.File))
	if err != nil {
		return nil, "", false
	}

	return body, entry.ContentType, true
}

// Keys returns every request path held in a generation, sorted
func (s *GenerationStore) Keys(generation string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.readIndex(filepath.Join(s.root, generation))
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(index))
	for path := range index {
		keys = append(keys, path)
	}

	sort.Strings(keys)
	return keys, nil
}

func (s *GenerationStore) readIndex(dir string) (map[string]assetEntry, error) {
	data, err := os.ReadFile(filepath.Join(dir, indexFile))
	if os.IsNotExist(err) {
		return map[string]assetEntry{}, nil
	}
	if err != nil {
		return nil, err
	}

	var index map[string]assetEntry
	if err := json.Unmarshal(data, &index); err != nil {
		// A corrupt index means the generation is unusable; start over
		return map[string]assetEntry{}, nil
	}

	return index, nil
}

func (s *GenerationStore) writeIndex(dir string, index map[string]assetEntry) error {
	data, err := json.Marshal(index)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, indexFile), data, 0o644)
}

// hashName flattens an arbitrary request path into a safe file name
func hashName(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:16])
}
