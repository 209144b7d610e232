// Package ioadapter provides buffer-oriented read/write operations over a
// raw file descriptor: the calls a connection uses to move bytes between its
// socket and its read and write buffers.
package ioadapter

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/hatchetline/echod/core/buffer"
)

// overflowSize is the size of the per-adapter scratch region ReadFrom
// scatters into when the buffer's writable view is smaller than what the
// kernel has ready, so one syscall can still drain a burst of small
// requests instead of returning early and forcing another poll cycle.
const overflowSize = 65536

// ErrClosed indicates the peer closed its end of the connection (a read
// returning zero bytes).
var ErrClosed = errors.New("ioadapter: connection closed by peer")

// Reader drains a source into a buffer.
type Reader interface {
	ReadFrom(buf *buffer.Buffer) (int, error)
}

// Writer emits a buffer's readable region to a sink.
type Writer interface {
	WriteTo(buf *buffer.Buffer) (int, error)
}

// ReadWriter is a full-duplex adapter, the shape a connection's socket
// exposes to the buffers on either side of it.
type ReadWriter interface {
	Reader
	Writer
}

// FD adapts a raw, non-blocking file descriptor to the Reader/Writer
// contract. It is not safe for concurrent use; the one-shot poller
// registration is what guarantees a single goroutine touches an fd's
// adapter at a time.
type FD struct {
	fd       int
	overflow [overflowSize]byte
}

// New wraps fd, which must already be non-blocking.
func New(fd int) *FD {
	return &FD{fd: fd}
}

// Fd returns the underlying file descriptor.
func (a *FD) Fd() int { return a.fd }

// ReadFrom performs a scatter read: unix.Readv into the buffer's writable
// view plus the adapter's overflow region, in one syscall, so a small
// writable window never caps how much a single readiness notification can
// drain. Any bytes landing in the overflow region are appended to the
// buffer afterwards. Returning unix.EAGAIN is not an error: it means no
// more data is available right now, and ReadFrom reports zero bytes moved,
// nil error.
func (a *FD) ReadFrom(buf *buffer.Buffer) (int, error) {
	writable := buf.WritableView()
	iov := [][]byte{writable, a.overflow[:]}

	n, err := readv(a.fd, iov)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, nil
		}
		return 0, err
	}
	if n == 0 {
		return 0, ErrClosed
	}

	if n <= len(writable) {
		buf.HasWritten(n)
		return n, nil
	}

	buf.HasWritten(len(writable))
	overflowN := n - len(writable)
	buf.Append(a.overflow[:overflowN])
	return n, nil
}

// WriteTo emits buf's readable region to the fd. It retrieves exactly the
// number of bytes the kernel accepted, leaving the rest for a subsequent
// call once the fd is writable again. unix.EAGAIN reports zero bytes moved,
// nil error, the write-side end-of-available-capacity signal.
func (a *FD) WriteTo(buf *buffer.Buffer) (int, error) {
	readable := buf.ReadableView()
	if len(readable) == 0 {
		return 0, nil
	}

	n, err := unix.Write(a.fd, readable)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, nil
		}
		return 0, err
	}

	buf.Retrieve(n)
	return n, nil
}

// readv performs a scatter read across iov using unix.Readv where
// available, falling back to per-segment unix.Read for platforms without a
// readv wrapper covering this fd type.
func readv(fd int, iov [][]byte) (int, error) {
	n, err := unix.Readv(fd, iov)
	if err == nil {
		return n, nil
	}
	if err != unix.ENOSYS {
		return n, err
	}

	total := 0
	for _, seg := range iov {
		if len(seg) == 0 {
			continue
		}
		m, rerr := unix.Read(fd, seg)
		if m > 0 {
			total += m
		}
		if rerr != nil {
			if total > 0 {
				return total, nil
			}
			return 0, rerr
		}
		if m < len(seg) {
			break
		}
	}
	return total, nil
}
