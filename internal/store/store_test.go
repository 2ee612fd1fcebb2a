package store

import (
	"bytes"
	"path/filepath"
	"testing"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReadMissingKey(t *testing.T) {
	s := tempStore(t)
	_, ok, err := s.Read("absent")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing key")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := tempStore(t)
	if err := s.Write("queue", []byte(`{"entries":[]}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, ok, err := s.Read("queue")
	if err != nil || !ok {
		t.Fatalf("Read: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, []byte(`{"entries":[]}`)) {
		t.Fatalf("unexpected value %q", got)
	}

	// Overwrite replaces.
	if err := s.Write("queue", []byte(`v2`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _, _ = s.Read("queue")
	if string(got) != "v2" {
		t.Fatalf("expected v2, got %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempStore(t)
	s.Write("k", []byte("v"))
	if err := s.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Read("k"); ok {
		t.Fatal("expected key gone after delete")
	}
	if err := s.Delete("k"); err != nil {
		t.Fatalf("deleting an absent key must be a no-op, got %v", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "persist.db")

	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s.Write("backlog", []byte("survives"))
	s.Close()

	s2, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, ok, _ := s2.Read("backlog")
	if !ok || string(got) != "survives" {
		t.Fatalf("expected persisted value, got ok=%v %q", ok, got)
	}
}
