package fonts

import (
	"path/filepath"
	"testing"
)

func TestStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fonts.json")

	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	if err := s.Put(Entry{Family: "Lora", Weight: Bold, Path: "/fonts/Lora-700.ttf", Source: "download"}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if err := s.Put(Entry{Family: "Inter", Weight: Regular, Path: "/fonts/Inter-400.ttf", Source: "dir"}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() reopen error: %v", err)
	}
	e, ok := reopened.Get("Lora", Bold)
	if !ok || e.Path != "/fonts/Lora-700.ttf" {
		t.Errorf("Get() = %+v, %v", e, ok)
	}

	all := reopened.All()
	if len(all) != 2 || all[0].Family != "Inter" {
		t.Errorf("All() = %+v, want Inter first", all)
	}
}

func TestStore_Remove(t *testing.T) {
	s, _ := NewStore("")
	s.Put(Entry{Family: "Lora", Weight: Regular, Path: "x"})

	if !s.Remove("Lora", Regular) {
		t.Error("Expected Remove to report a deleted entry")
	}
	if s.Remove("Lora", Regular) {
		t.Error("Expected second Remove to report nothing deleted")
	}
}

func TestFileNameRoundTrip(t *testing.T) {
	family, weight := parseFileName(FileName("Source Sans 3", SemiBold))
	if family != "Source Sans 3" || weight != SemiBold {
		t.Errorf("parseFileName(FileName()) = %q, %d", family, weight)
	}
}
