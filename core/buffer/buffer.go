// Package buffer implements an auto-growing FIFO byte region shared between
// socket I/O and the HTTP parser.
//
// A Buffer is divided into three regions delimited by a read cursor and a
// write cursor: prependable (already-consumed space at the front, free to
// reuse), readable (data waiting to be consumed) and writable (free space at
// the back). Growth slides the readable region back to offset zero before it
// reallocates, so a connection that alternates short reads and retrieves
// rarely grows its backing array at all.
package buffer

import (
	"sync/atomic"

	"github.com/hatchetline/echod/core/pools"
)

// NewLine selects the line terminator Append uses when writing text.
type NewLine int

const (
	// LF appends a single line feed.
	LF NewLine = iota
	// CRLF appends the HTTP line terminator.
	CRLF
)

const initialSize = 1024

// Buffer is an auto-growing byte FIFO. The read and write cursors are atomic
// so a reader on one goroutine can observe a consistent readable size while a
// writer on another goroutine advances the write cursor; structural mutation
// (growth) is not concurrency-safe and must be serialised by the owning
// connection, exactly as the single-writer discipline in the design doc
// describes.
type Buffer struct {
	buf    []byte
	reader atomic.Int64
	writer atomic.Int64

	pool *pools.BytePool
}

// New creates an empty buffer with the default initial capacity.
func New() *Buffer {
	return NewSize(initialSize)
}

// NewSize creates an empty buffer with room for at least capacity bytes.
func NewSize(capacity int) *Buffer {
	return &Buffer{buf: make([]byte, capacity)}
}

// NewFromPool creates an empty buffer whose backing array is drawn from a
// tiered byte pool, returned to the pool when Release is called.
func NewFromPool(pool *pools.BytePool, capacity int) *Buffer {
	return &Buffer{buf: pool.Get(capacity), pool: pool}
}

// NewBytes creates a buffer prefilled with a copy of data.
func NewBytes(data []byte) *Buffer {
	b := NewSize(len(data))
	b.Append(data)
	return b
}

// NewString creates a buffer prefilled with a copy of s.
func NewString(s string) *Buffer {
	return NewBytes([]byte(s))
}

// Release returns the backing array to the pool it was allocated from, if
// any. The buffer must not be used afterwards.
func (b *Buffer) Release() {
	if b.pool != nil {
		b.pool.Put(b.buf)
		b.buf = nil
		b.pool = nil
	}
}

func (b *Buffer) readerIdx() int { return int(b.reader.Load()) }
func (b *Buffer) writerIdx() int { return int(b.writer.Load()) }

// ReadableSize returns the number of bytes waiting to be consumed.
func (b *Buffer) ReadableSize() int { return b.writerIdx() - b.readerIdx() }

// WritableSize returns the number of free bytes at the back of the buffer.
func (b *Buffer) WritableSize() int { return len(b.buf) - b.writerIdx() }

// PrependableSize returns the number of already-consumed bytes at the front.
func (b *Buffer) PrependableSize() int { return b.readerIdx() }

// Peek returns the first readable byte without advancing the read cursor.
func (b *Buffer) Peek() (byte, bool) {
	if b.ReadableSize() == 0 {
		return 0, false
	}
	return b.buf[b.readerIdx()], true
}

// ReadableView returns the readable region. The slice aliases the buffer's
// backing array and is invalidated by the next mutating call.
func (b *Buffer) ReadableView() []byte {
	return b.buf[b.readerIdx():b.writerIdx()]
}

// WritableView returns the writable region. The slice aliases the buffer's
// backing array and is invalidated by the next mutating call.
func (b *Buffer) WritableView() []byte {
	return b.buf[b.writerIdx():]
}

// HasWritten advances the write cursor by n bytes, as if n bytes had been
// written directly into WritableView.
func (b *Buffer) HasWritten(n int) {
	b.writer.Add(int64(n))
}

// UnwriteBytes reverts the write cursor by n bytes, undoing a HasWritten.
func (b *Buffer) UnwriteBytes(n int) {
	b.writer.Add(-int64(n))
}

// Retrieve advances the read cursor by n bytes, discarding them.
func (b *Buffer) Retrieve(n int) {
	b.reader.Add(int64(n))
}

// RetrieveUntil advances the read cursor up to the absolute index pos, which
// must lie within [readerIdx, writerIdx]. It is the Go analogue of advancing
// a C++ read cursor up to an interior pointer, e.g. the result of scanning
// ReadableView() for a line terminator.
func (b *Buffer) RetrieveUntil(pos int) {
	b.Retrieve(pos - b.readerIdx())
}

// RetrieveAll discards every readable byte and returns how many were
// discarded.
func (b *Buffer) RetrieveAll() int {
	n := b.ReadableSize()
	b.Clear()
	return n
}

// RetrieveAllAsString discards every readable byte, returning a copy as a
// string.
func (b *Buffer) RetrieveAllAsString() string {
	s := string(b.ReadableView())
	b.Clear()
	return s
}

// Clear discards every readable and writable byte, resetting both cursors to
// zero.
func (b *Buffer) Clear() {
	b.reader.Store(0)
	b.writer.Store(0)
}

// Append copies data into the writable region, growing the buffer first if
// necessary.
func (b *Buffer) Append(data []byte) {
	if len(data) == 0 {
		return
	}
	b.EnsureWritable(len(data))
	copy(b.WritableView(), data)
	b.HasWritten(len(data))
}

// AppendString copies s into the writable region, optionally followed by a
// line terminator.
func (b *Buffer) AppendString(s string, nl ...NewLine) {
	b.Append([]byte(s))
	if len(nl) > 0 {
		switch nl[0] {
		case CRLF:
			b.Append([]byte("\r\n"))
		default:
			b.Append([]byte("\n"))
		}
	}
}

// AppendBuffer copies other's readable region into b without consuming it
// from other.
func (b *Buffer) AppendBuffer(other *Buffer) {
	b.Append(other.ReadableView())
}

// EnsureWritable grows the buffer so that at least n bytes are writable. Per
// the growth policy, prependable space is reclaimed by sliding the readable
// region to offset zero before a new allocation is made; only when that is
// still insufficient does the buffer reallocate, and then to exactly
// writerIdx+n bytes.
func (b *Buffer) EnsureWritable(n int) {
	if b.WritableSize() >= n {
		return
	}

	if b.WritableSize()+b.PrependableSize() < n {
		newCap := b.writerIdx() + n
		grown := make([]byte, newCap)
		copy(grown, b.ReadableView())
		if b.pool != nil {
			b.pool.Put(b.buf)
			b.pool = nil
		}
		b.buf = grown
		readable := b.ReadableSize()
		b.reader.Store(0)
		b.writer.Store(int64(readable))
		return
	}

	readable := b.ReadableSize()
	copy(b.buf, b.ReadableView())
	b.reader.Store(0)
	b.writer.Store(int64(readable))
}
