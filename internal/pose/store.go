package pose

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Backend is the key-value persistence contract the store needs.
type Backend interface {
	// Get returns the value under key, or false when absent.
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// Persistence layout: the active pose under a fixed key, each named
// configuration under a derived key, and the list of configuration names
// under its own fixed key. All payloads use the canonical pose encoding.
const (
	activeKey      = "armdeck.pose.active"
	indexKey       = "armdeck.pose.index"
	namedKeyPrefix = "armdeck.pose.named."
)

// Store persists poses to a Backend: one active slot plus any number of
// named configurations with a de-duplicated name index.
//
// All methods are safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	backend Backend
}

// NewStore creates a store over backend.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// SaveActive writes p to the active slot.
func (s *Store) SaveActive(p Pose) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := Encode(p)
	if err != nil {
		return err
	}
	return s.backend.Set(activeKey, payload)
}

// LoadActive reads the active slot. A missing key returns (nil, nil); a
// payload that fails to parse returns ErrMalformedPayload and the caller's
// current pose stays untouched.
func (s *Store) LoadActive() (Pose, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, ok := s.backend.Get(activeKey)
	if !ok {
		return nil, nil
	}
	return Decode(payload)
}

// SaveNamed writes p under name and adds name to the index. Saving the same
// name twice overwrites the payload without duplicating the index entry.
func (s *Store) SaveNamed(name string, p Pose) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := Encode(p)
	if err != nil {
		return err
	}
	if err := s.backend.Set(namedKeyPrefix+name, payload); err != nil {
		return fmt.Errorf("save named pose %q: %w", name, err)
	}

	names := s.readIndex()
	for _, existing := range names {
		if existing == name {
			return nil
		}
	}
	return s.writeIndex(append(names, name))
}

// LoadNamed reads the configuration saved under name. A missing name
// returns (nil, nil).
func (s *Store) LoadNamed(name string) (Pose, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, ok := s.backend.Get(namedKeyPrefix + name)
	if !ok {
		return nil, nil
	}
	return Decode(payload)
}

// DeleteNamed removes both the payload and the index entry for name.
// Deleting an unknown name is a no-op.
func (s *Store) DeleteNamed(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Remove(namedKeyPrefix + name); err != nil {
		return fmt.Errorf("delete named pose %q: %w", name, err)
	}

	names := s.readIndex()
	kept := names[:0]
	for _, existing := range names {
		if existing != name {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(names) {
		return nil
	}
	return s.writeIndex(kept)
}

// ListNames returns the saved configuration names in save order.
func (s *Store) ListNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readIndex()
}

// ExportText serializes p to the canonical encoding for sharing.
func (s *Store) ExportText(p Pose) (string, error) {
	return Encode(p)
}

// ImportText parses a shared pose. Fails with ErrMalformedPayload on
// invalid syntax; nothing in the store changes on failure.
func (s *Store) ImportText(text string) (Pose, error) {
	return Decode(text)
}

// readIndex returns the stored name index. A missing or corrupt index reads
// as empty; the next write repairs it.
func (s *Store) readIndex() []string {
	payload, ok := s.backend.Get(indexKey)
	if !ok {
		return nil
	}
	var names []string
	if err := json.Unmarshal([]byte(payload), &names); err != nil {
		return nil
	}
	return names
}

func (s *Store) writeIndex(names []string) error {
	data, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("encode pose index: %w", err)
	}
	return s.backend.Set(indexKey, string(data))
}
