package storage

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func exercise(t *testing.T, s Store) {
	t.Helper()
	if _, err := s.Read("battle:v1"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("Read of absent key: %v, want ErrNotExist", err)
	}
	if err := s.Write("battle:v1", []byte("one")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write("battle:v1", []byte("two")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("battle:v1")
	if err != nil || string(got) != "two" {
		t.Fatalf("Read = %q, %v", got, err)
	}
	if err := s.Clear("battle:v1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := s.Clear("battle:v1"); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
	if _, err := s.Read("battle:v1"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("Read after Clear: %v", err)
	}
}

func TestMemStore(t *testing.T) {
	exercise(t, NewMemStore())
}

func TestMemStoreCopiesValues(t *testing.T) {
	s := NewMemStore()
	buf := []byte("abc")
	s.Write("k", buf)
	buf[0] = 'x'
	got, _ := s.Read("k")
	if string(got) != "abc" {
		t.Errorf("stored value aliased caller buffer: %q", got)
	}
}

func TestFileStore(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileStore(root, "tab-1")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	exercise(t, s)

	if err := s.Write("battle:slots", []byte("A: pikachu\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "tabs", "tab-1", "battle_slots.yaml")); err != nil {
		t.Errorf("expected key file on disk: %v", err)
	}
	entries, _ := os.ReadDir(s.Dir())
	for _, e := range entries {
		if e.Name() != "battle_slots.yaml" {
			t.Errorf("leftover file %s", e.Name())
		}
	}
}

func TestFileStoreTabsAreIsolated(t *testing.T) {
	root := t.TempDir()
	a, _ := NewFileStore(root, "a")
	b, _ := NewFileStore(root, "b")
	a.Write("battle:v1", []byte("left"))

	if _, err := b.Read("battle:v1"); !errors.Is(err, ErrNotExist) {
		t.Errorf("tab b sees tab a's value: %v", err)
	}
	tabs, err := ListTabs(root)
	if err != nil || !slices.Equal(tabs, []string{"a"}) {
		t.Errorf("ListTabs = %v, %v", tabs, err)
	}
}

func TestNewFileStoreRejectsBadTab(t *testing.T) {
	for _, tab := range []string{"", "..", "a/b"} {
		if _, err := NewFileStore(t.TempDir(), tab); err == nil {
			t.Errorf("NewFileStore(%q) should fail", tab)
		}
	}
}

func TestListTabsWithoutRoot(t *testing.T) {
	tabs, err := ListTabs(filepath.Join(t.TempDir(), "missing"))
	if err != nil || len(tabs) != 0 {
		t.Errorf("ListTabs = %v, %v", tabs, err)
	}
}
