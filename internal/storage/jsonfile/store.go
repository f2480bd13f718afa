package jsonfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/novaplanner/nova/internal/storage"
)

// Store keeps every slot in one JSON object on disk. Writes go to a temp file
// that is renamed over the original.
type Store struct {
	path  string
	mu    sync.Mutex
	slots map[string]json.RawMessage
}

var _ storage.Provider = (*Store)(nil)

func NewStore(path string) *Store {
	return &Store{
		path: path,
	}
}

func (s *Store) Init() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return s.read()
	}
	s.slots = make(map[string]json.RawMessage)
	return s.write()
}

func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return storage.ErrNotInitialized
	}
	return s.read()
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) Put(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slots == nil {
		return storage.ErrNotLoaded
	}
	// Slots are stored verbatim even when they are not valid JSON, so a corrupt
	// write round-trips as corrupt instead of failing the whole file.
	s.slots[key] = rawOrString(data)
	return s.write()
}

func (s *Store) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slots == nil {
		return nil, storage.ErrNotLoaded
	}
	raw, ok := s.slots[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return []byte(str), nil
	}
	return append([]byte(nil), raw...), nil
}

func (s *Store) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slots == nil {
		return nil, storage.ErrNotLoaded
	}
	keys := make([]string, 0, len(s.slots))
	for k := range s.slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) GetConfigPath() string {
	return s.path
}

func (s *Store) read() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read storage: %w", err)
	}
	slots := make(map[string]json.RawMessage)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &slots); err != nil {
			return fmt.Errorf("failed to parse storage: %w", err)
		}
	}
	s.slots = slots
	return nil
}

func (s *Store) write() error {
	data, err := json.MarshalIndent(s.slots, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize storage: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".nova-*.json")
	if err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	return nil
}

func rawOrString(data []byte) json.RawMessage {
	if json.Valid(data) {
		return append(json.RawMessage(nil), data...)
	}
	quoted, _ := json.Marshal(string(data))
	return quoted
}
