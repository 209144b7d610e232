// Package conn holds the per-client connection state the reactor hands to
// workers: the socket, buffers, parser, and the file currently mapped for
// the response in flight.
package conn

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/hatchetline/echod/core/buffer"
	"github.com/hatchetline/echod/core/httpmsg"
	"github.com/hatchetline/echod/core/ioadapter"
	"github.com/hatchetline/echod/core/mmap"
	"github.com/hatchetline/echod/core/pools"
	"github.com/hatchetline/echod/core/response"
	"github.com/hatchetline/echod/core/router"
)

// paramPool recycles the small string map extractUserMessage fills on every
// request to the index page, instead of allocating one per request.
var paramPool = pools.NewSmartPool(pools.SmartPoolConfig{
	New: func() any { return make(map[string]string, 3) },
	Reset: func(obj any) {
		m := obj.(map[string]string)
		for k := range m {
			delete(m, k)
		}
	},
	WarmupSize: 64,
})

const indexPage = "/index.html"

// routes sends "/" and "/index.html" to the echo handler; everything else
// falls through to static file serving.
var routes = router.New("/", indexPage)

var (
	rootDirOnce sync.Once
	rootDir     string
)

// SetRootDirectory sets the process-wide document root. Only the first
// call takes effect, matching the original's set-before-first-accept,
// immutable-afterward contract without exposing a bare mutable global.
func SetRootDirectory(dir string) {
	rootDirOnce.Do(func() { rootDir = dir })
}

// RootDirectory returns the document root set by SetRootDirectory, or the
// empty string if it was never called.
func RootDirectory() string {
	return rootDir
}

// Connection is one client's state, exclusively owned by the reactor's
// connection table for its lifetime; workers receive a pointer to operate
// on but never mutate the table or timer heap themselves.
type Connection struct {
	fd         int
	remoteAddr string
	keepAlive  atomic.Bool

	io       *ioadapter.FD
	readBuf  *buffer.Buffer
	writeBuf *buffer.Buffer
	request  *httpmsg.Request
	file     mmap.File
	fileSent int

	closed atomic.Bool
}

// New wraps an already-accepted, non-blocking socket fd.
func New(fd int, remoteAddr string) *Connection {
	return &Connection{
		fd:         fd,
		remoteAddr: remoteAddr,
		io:         ioadapter.New(fd),
		readBuf:    buffer.New(),
		writeBuf:   buffer.New(),
		request:    httpmsg.NewRequest(),
	}
}

// Reset clears per-request state so the connection can be pulled from a
// pool and reused for a new socket, satisfying pools.ConnectionPoolable.
func (c *Connection) Reset() {
	c.remoteAddr = ""
	c.keepAlive.Store(false)
	c.readBuf.Clear()
	c.writeBuf.Clear()
	c.file.Unmap()
	c.fileSent = 0
	c.closed.Store(false)
}

// SetFD rebinds a pooled connection to a freshly accepted socket.
func (c *Connection) SetFD(fd int) {
	c.fd = fd
	c.io = ioadapter.New(fd)
}

// Fd returns the underlying socket descriptor.
func (c *Connection) Fd() int { return c.fd }

// SetRemoteAddr records the peer address for a pooled connection rebound by
// SetFD; New already sets this for a freshly constructed Connection.
func (c *Connection) SetRemoteAddr(addr string) { c.remoteAddr = addr }

// RemoteAddr returns the address the socket was accepted from.
func (c *Connection) RemoteAddr() string { return c.remoteAddr }

// KeepAlive reports whether the most recently processed request asked to
// keep the connection open.
func (c *Connection) KeepAlive() bool { return c.keepAlive.Load() }

// Valid reports whether the connection has not yet been closed.
func (c *Connection) Valid() bool { return !c.closed.Load() }

// Close releases the socket and any mapped file. It is safe to call more
// than once.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.file.Unmap()
	return unix.Close(c.fd)
}

// Receive drains the socket into the read buffer until the kernel reports
// no more data is available. It returns the number of bytes moved.
func (c *Connection) Receive() (int, error) {
	total := 0
	for {
		n, err := c.io.ReadFrom(c.readBuf)
		if err != nil {
			return total, err
		}
		total += n
		if n == 0 {
			return total, nil
		}
	}
}

// Send drains the write buffer to the socket, then streams the mapped
// response file (if any) directly, bypassing the write buffer.
func (c *Connection) Send() (int, error) {
	total := 0
	for c.writeBuf.ReadableSize() > 0 {
		n, err := c.io.WriteTo(c.writeBuf)
		if err != nil {
			return total, err
		}
		total += n
		if n == 0 {
			break
		}
	}

	data := c.file.Data()
	for c.fileSent < len(data) {
		n, err := unix.Write(c.fd, data[c.fileSent:])
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				break
			}
			return total, err
		}
		c.fileSent += n
		total += n
		if n == 0 {
			break
		}
	}
	return total, nil
}

// Pending reports whether Send still has buffered or mapped-file data left
// to write, i.e. the last Send call did not fully drain the response.
func (c *Connection) Pending() bool {
	return c.writeBuf.ReadableSize() > 0 || (c.file.Mapped() && c.fileSent < c.file.Size())
}

// Process parses whatever is in the read buffer and builds a response into
// the write buffer. It returns false if the read buffer was empty (the
// caller should wait for more bytes) and true otherwise, including on a
// parse failure (which still produces a BadRequest response).
func (c *Connection) Process() bool {
	c.file.Unmap()
	c.fileSent = 0
	if c.readBuf.ReadableSize() == 0 {
		return false
	}

	builder := response.New(RootDirectory())
	err := c.request.Parse(c.readBuf)
	c.keepAlive.Store(c.request.KeepAlive())
	builder.SetKeepAlive(c.keepAlive.Load())

	if err != nil {
		builder.BuildError(c.writeBuf, response.BadRequest, err.Error())
		return true
	}

	path := c.request.Path()
	if path == "" {
		path = indexPage
	}

	if routes.Resolve(path) == router.Echo {
		params := paramPool.Get().(map[string]string)
		extractUserMessage(c.request, params)
		builder.BuildTemplate(c.writeBuf, indexPage, params)
		paramPool.Put(params)
		return true
	}

	_, file := builder.BuildFile(c.writeBuf, path)
	c.file = file
	return true
}

// extractUserMessage mirrors the original form: the index template always
// renders with "user" and "msg" (empty when absent), but its message block
// is hidden unless both were supplied.
func extractUserMessage(req *httpmsg.Request, params map[string]string) {
	user, _ := req.Post("user")
	msg, _ := req.Post("msg")

	params["user"] = user
	params["msg"] = msg
	if user != "" && msg != "" {
		params["hide-msg"] = "false"
	} else {
		params["hide-msg"] = "true"
	}
}

// ReadBuffer and WriteBuffer expose the connection's I/O buffers for the
// server's diagnostics and tests; workers use Receive/Send/Process instead.
func (c *Connection) ReadBuffer() *buffer.Buffer  { return c.readBuf }
func (c *Connection) WriteBuffer() *buffer.Buffer { return c.writeBuf }

// String renders a short diagnostic identifier for logging.
func (c *Connection) String() string {
	return fmt.Sprintf("conn{fd=%d addr=%s}", c.fd, c.remoteAddr)
}
