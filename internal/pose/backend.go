package pose

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend persists each key as one file under a directory. Keys are
// path-escaped so arbitrary configuration names stay inside the directory.
type FileBackend struct {
	mu  sync.Mutex
	dir string
}

// NewFileBackend creates dir if needed and returns a backend over it.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, url.PathEscape(key))
}

// Get implements Backend.
func (b *FileBackend) Get(key string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := os.ReadFile(b.path(key))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Set implements Backend.
func (b *FileBackend) Set(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.WriteFile(b.path(key), []byte(value), 0o644); err != nil {
		return fmt.Errorf("write key %q: %w", key, err)
	}
	return nil
}

// Remove implements Backend. Removing an absent key is a no-op.
func (b *FileBackend) Remove(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.Remove(b.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove key %q: %w", key, err)
	}
	return nil
}

// MemoryBackend is an in-memory Backend for tests and ephemeral sessions.
type MemoryBackend struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

// Get implements Backend.
func (b *MemoryBackend) Get(key string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.values[key]
	return v, ok
}

// Set implements Backend.
func (b *MemoryBackend) Set(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
	return nil
}

// Remove implements Backend.
func (b *MemoryBackend) Remove(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.values, key)
	return nil
}
