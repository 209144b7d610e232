package mmap

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMap_RegularFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	if err := os.WriteFile(path, []byte("hello, mmap"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	f, err := Map(path)
	if err != nil {
		t.Fatalf("Map() error: %v", err)
	}
	defer f.Unmap()

	if !f.Mapped() {
		t.Fatal("Mapped() = false after successful Map()")
	}
	if string(f.Data()) != "hello, mmap" {
		t.Fatalf("Data() = %q, want %q", f.Data(), "hello, mmap")
	}
	if f.Size() != len("hello, mmap") {
		t.Fatalf("Size() = %d, want %d", f.Size(), len("hello, mmap"))
	}
}

func TestMap_MissingFile(t *testing.T) {
	_, err := Map(filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Fatal("Map() on missing file should return an error")
	}
}

func TestMap_Directory(t *testing.T) {
	_, err := Map(t.TempDir())
	if err != ErrNotRegular {
		t.Fatalf("Map() on a directory = %v, want ErrNotRegular", err)
	}
}

func TestMap_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	f, err := Map(path)
	if err != nil {
		t.Fatalf("Map() error: %v", err)
	}
	defer f.Unmap()

	if !f.Mapped() || f.Size() != 0 {
		t.Fatalf("Map() of empty file: mapped=%v size=%d, want mapped=true size=0", f.Mapped(), f.Size())
	}
}

func TestFile_UnmapIsIdempotent(t *testing.T) {
	var f File
	if err := f.Unmap(); err != nil {
		t.Fatalf("Unmap() on zero value returned error: %v", err)
	}
	if f.Mapped() {
		t.Fatal("Mapped() should be false after Unmap()")
	}
}
