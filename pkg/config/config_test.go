package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmptyTextYieldsZeroValue(t *testing.T) {
	f, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}

	if f != (File{}) {
		t.Fatalf("expected a zero-value File for empty text, got %+v", f)
	}
}

func TestLoadDecodesKnownFields(t *testing.T) {
	text := `
target = "llvm"
profile = "debug"
verbose = true
indent = 4
stdlib = "vendor/std"
`

	f, err := Load(text)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := File{Target: "llvm", Profile: "debug", Verbose: true, Indent: 4, Stdlib: "vendor/std"}
	if f != want {
		t.Fatalf("Load() = %+v, want %+v", f, want)
	}
}

func TestLoadInvalidTOMLIsAnError(t *testing.T) {
	if _, err := Load("[target\n"); err == nil {
		t.Fatalf("expected an error for malformed TOML, got nil")
	}
}

func TestLoadPathMissingFileIsAnError(t *testing.T) {
	if _, err := LoadPath(filepath.Join(t.TempDir(), "neplg2.toml")); err == nil {
		t.Fatalf("expected an error for a missing project file, got nil")
	}
}

func TestLoadPathReadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "neplg2.toml")

	if err := os.WriteFile(path, []byte("target = \"wasi\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	f, err := LoadPath(path)
	if err != nil {
		t.Fatalf("LoadPath() error = %v", err)
	}

	if f.Target != "wasi" {
		t.Fatalf("LoadPath().Target = %q, want %q", f.Target, "wasi")
	}
}
