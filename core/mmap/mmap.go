// Package mmap maps files read-only for zero-copy response bodies.
package mmap

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// ErrNotRegular is returned when the target path is not a regular file
// (a directory, device, or similar), which the response builder demotes to
// a Bad Request rather than treating as a system error.
var ErrNotRegular = errors.New("mmap: not a regular file")

// File is a read-only memory-mapped file. The zero value is an unmapped
// File; Data and Size are meaningless until Map succeeds.
type File struct {
	data []byte
}

// Map opens and maps path read-only. The caller must call Unmap when done,
// even on later error paths, to release the mapping.
func Map(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return File{}, err
	}
	if !info.Mode().IsRegular() {
		return File{}, ErrNotRegular
	}

	size := info.Size()
	if size == 0 {
		// mmap of a zero-length file is undefined on most platforms;
		// represent it as a valid, empty mapping instead.
		return File{data: []byte{}}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return File{}, err
	}
	return File{data: data}, nil
}

// Data returns the mapped bytes, or nil if the file is unmapped. A mapped
// empty file yields an empty, non-nil slice.
func (f File) Data() []byte { return f.data }

// Size returns the number of mapped bytes.
func (f File) Size() int { return len(f.data) }

// Mapped reports whether Map succeeded and Unmap has not yet been called.
func (f File) Mapped() bool { return f.data != nil }

// Unmap releases the mapping. It is a no-op on a zero value or an
// already-unmapped File.
func (f *File) Unmap() error {
	if f.data == nil || len(f.data) == 0 {
		f.data = nil
		return nil
	}
	err := unix.Munmap(f.data)
	f.data = nil
	return err
}
