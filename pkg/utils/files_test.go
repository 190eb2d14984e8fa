package utils

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestExpandSources(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pine")
	b := filepath.Join(dir, "nested", "b.PINE")
	other := filepath.Join(dir, "notes.txt")
	writeFile(t, a)
	writeFile(t, b)
	writeFile(t, other)

	got, err := ExpandSources([]string{dir, a, other})
	if err != nil {
		t.Fatalf("ExpandSources() error = %v", err)
	}
	want := []string{a, b, other}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandSources() = %v, want %v", got, want)
	}
}

func TestExpandSourcesMissing(t *testing.T) {
	if _, err := ExpandSources([]string{filepath.Join(t.TempDir(), "missing.pine")}); err == nil {
		t.Errorf("Expected an error for a missing file")
	}
}

func TestRelocate(t *testing.T) {
	src := filepath.Join("in", "rsi.js")
	if got := Relocate(src, ""); got != src {
		t.Errorf("Relocate(%q, \"\") = %q", src, got)
	}
	if got, want := Relocate(src, "out"), filepath.Join("out", "rsi.js"); got != want {
		t.Errorf("Relocate() = %q, want %q", got, want)
	}
}
