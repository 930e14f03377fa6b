// Package storage is the string key/value store battle state is saved to.
// Each browser-tab equivalent gets its own namespace.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// ErrNotExist is returned by Read when nothing is stored under a key.
var ErrNotExist = errors.New("key not found")

// Store is a per-tab key/value store.
type Store interface {
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
	Clear(key string) error
}

// DefaultSaveDir is where tab namespaces live unless configured.
const DefaultSaveDir = ".saves"

const tabsDir = "tabs"

// FileStore keeps each key as a YAML file under <root>/tabs/<tab>.
type FileStore struct {
	dir string
}

// NewFileStore returns the store for tab under root.
func NewFileStore(root, tab string) (*FileStore, error) {
	if tab == "" {
		return nil, fmt.Errorf("empty tab id")
	}
	if strings.ContainsAny(tab, `/\`) || tab == "." || tab == ".." {
		return nil, fmt.Errorf("invalid tab id %q", tab)
	}
	if root == "" {
		root = DefaultSaveDir
	}
	return &FileStore{dir: filepath.Join(root, tabsDir, tab)}, nil
}

// Dir is the directory holding this tab's keys.
func (s *FileStore) Dir() string { return s.dir }

// fileName maps a key like "battle:v1" to "battle_v1.yaml".
func fileName(key string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		}
		return '_'
	}, key)
	return clean + ".yaml"
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, fileName(key))
}

func (s *FileStore) Read(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Write replaces the value under key. The file is written next to its
// destination and renamed into place so a reader never sees half a value.
func (s *FileStore) Write(key string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Clear removes key. Clearing an absent key is not an error.
func (s *FileStore) Clear(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear %s: %w", key, err)
	}
	return nil
}

// ListTabs returns the tab ids that have a namespace under root.
func ListTabs(root string) ([]string, error) {
	if root == "" {
		root = DefaultSaveDir
	}
	entries, err := os.ReadDir(filepath.Join(root, tabsDir))
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	var tabs []string
	for _, entry := range entries {
		if entry.IsDir() {
			tabs = append(tabs, entry.Name())
		}
	}
	slices.Sort(tabs)
	return tabs, nil
}

// MemStore is an in-memory Store.
type MemStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (m *MemStore) Read(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotExist
	}
	return slices.Clone(v), nil
}

func (m *MemStore) Write(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = slices.Clone(data)
	return nil
}

func (m *MemStore) Clear(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
