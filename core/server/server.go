// Package server implements the reactor: one goroutine that accepts
// connections, demultiplexes their readiness with core/poller, and hands
// I/O work to a worker pool, serialized per connection by one-shot
// registration.
package server

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/hatchetline/echod/core/conn"
	"github.com/hatchetline/echod/core/middleware"
	"github.com/hatchetline/echod/core/observability"
	"github.com/hatchetline/echod/core/poller"
	"github.com/hatchetline/echod/core/pools"
	"github.com/hatchetline/echod/core/timer"
	"github.com/hatchetline/echod/core/workerpool"
)

// minPort is the lowest port the reactor will bind to, per the original's
// refusal to run on a privileged port.
const minPort = 1024

// connPoolCapacity is the capacity handed to the *conn.Connection pool. The
// pool is backed by sync.Pool and does not enforce it as a bound.
const connPoolCapacity = 4096

// Server is the accept/dispatch reactor. Exactly one goroutine calls Run;
// everything that touches the connection table or timer heap either is
// that goroutine or goes through the mutex documented on those fields.
type Server struct {
	port        int
	idleTimeout time.Duration
	logger      *slog.Logger
	metrics     *observability.Recorder

	listenFD int
	poll     poller.Poller
	pool     *workerpool.Pool
	connPool *pools.ConnectionPool

	mu     sync.Mutex
	conns  map[int]*conn.Connection
	timers *timer.HeapTimer[int]

	closing chan struct{}
	closed  sync.WaitGroup
}

// New validates port and prepares a Server; it does not touch the network
// until Run is called.
func New(port int, idleTimeout time.Duration, logger *slog.Logger) (*Server, error) {
	if port < minPort {
		return nil, fmt.Errorf("server: port %d is below the minimum of %d", port, minPort)
	}
	if logger == nil {
		logger = slog.Default()
	}

	pl, err := poller.New()
	if err != nil {
		return nil, err
	}

	return &Server{
		port:        port,
		idleTimeout: idleTimeout,
		logger:      logger,
		metrics:     observability.NewRecorder(),
		poll:        pl,
		pool:        workerpool.New(0, logger),
		connPool:    pools.NewConnectionPool(connPoolCapacity, func() any { return conn.New(-1, "") }),
		conns:       make(map[int]*conn.Connection),
		timers:      timer.New[int](logger),
		closing:     make(chan struct{}),
	}, nil
}

// Metrics returns the in-process request counters, for tests and any
// future diagnostics accessor.
func (s *Server) Metrics() *observability.Recorder { return s.metrics }

// Run creates the listening socket and blocks running the accept/dispatch
// loop until Close is called.
func (s *Server) Run() error {
	if err := s.listen(); err != nil {
		return err
	}
	defer unix.Close(s.listenFD)

	s.pool.Start()
	s.logger.Info("server listening", "port", s.port)

	for {
		select {
		case <-s.closing:
			return s.shutdown()
		default:
		}

		timeout := s.tick()
		events, err := s.poll.Wait(int(timeout / time.Millisecond))
		if err != nil {
			s.logger.Error("poller wait failed", "error", err)
			continue
		}

		for _, ev := range events {
			s.dispatch(ev)
		}
	}
}

// Close requests an orderly shutdown; Run returns once the current
// iteration finishes draining.
func (s *Server) Close() {
	select {
	case <-s.closing:
	default:
		close(s.closing)
	}
}

func (s *Server) listen() error {
	family := unix.AF_INET
	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return err
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return err
	}
	if err := unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, &unix.Linger{Onoff: 1, Linger: 1}); err != nil {
		unix.Close(fd)
		return err
	}

	addr := &unix.SockaddrInet4{Port: s.port}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return err
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return err
	}
	if err := s.poll.Add(fd, poller.Readable); err != nil {
		unix.Close(fd)
		return err
	}

	s.listenFD = fd
	return nil
}

func (s *Server) dispatch(ev poller.Event) {
	if ev.Fd == s.listenFD {
		s.acceptAll()
		// Every poller registration is one-shot, so the listener has to be
		// re-armed after each drained accept batch to keep accepting.
		if err := s.poll.Modify(s.listenFD, poller.Readable); err != nil {
			s.logger.Error("poller re-arm of listener failed", "error", err)
		}
		return
	}
	if ev.Err {
		s.markForClose(ev.Fd)
		return
	}
	if ev.Readable {
		s.onReadable(ev.Fd)
	}
	if ev.Writable {
		s.onWritable(ev.Fd)
	}
}

func (s *Server) acceptAll() {
	for {
		fd, sa, err := unix.Accept4(s.listenFD, unix.SOCK_NONBLOCK)
		if err != nil {
			if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
				s.logger.Error("accept failed", "error", err)
			}
			return
		}

		if err := s.poll.Add(fd, poller.Readable); err != nil {
			s.logger.Error("poller add failed", "error", err)
			unix.Close(fd)
			continue
		}

		c := s.connPool.Get().(*conn.Connection)
		c.SetFD(fd)
		c.SetRemoteAddr(remoteAddrString(sa))

		s.mu.Lock()
		s.conns[fd] = c
		s.timers.Push(fd, s.idleTimeout, s.evictLocked)
		s.mu.Unlock()
	}
}

// evictLocked is the timer's expiry callback. It runs on the reactor
// goroutine inside tick, which already holds s.mu, so it must not lock it
// itself.
func (s *Server) evictLocked(fd int) {
	c, ok := s.conns[fd]
	if !ok {
		return
	}
	delete(s.conns, fd)
	if err := s.poll.Remove(fd); err != nil {
		s.logger.Debug("poller remove failed", "fd", fd, "error", err)
	}
	if err := c.Close(); err != nil {
		s.logger.Debug("connection close failed", "fd", fd, "error", err)
	}
	s.connPool.Put(c)
}

// tick advances the timer heap, evicting anything expired, and returns the
// duration until the next expiry (or a small default if nothing is
// scheduled, so Wait still polls for new connections promptly).
func (s *Server) tick() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.timers.ToNextTick()
	if d == 0 && s.timers.Empty() {
		return time.Second
	}
	return d
}

// markForClose sets a connection's timer expiry to zero so the next tick
// evicts it on the reactor goroutine, keeping table mutation single
// threaded even when a worker observes the failure.
func (s *Server) markForClose(fd int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timers.Contains(fd) {
		s.timers.Adjust(fd, 0)
	}
}

func (s *Server) refreshTimer(fd int) (*conn.Connection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[fd]
	if !ok {
		return nil, false
	}
	if s.timers.Contains(fd) {
		s.timers.Adjust(fd, s.idleTimeout)
	}
	return c, true
}

func (s *Server) onReadable(fd int) {
	c, ok := s.refreshTimer(fd)
	if !ok {
		return
	}
	s.pool.Submit(s.wrap(fd, "receive", func() middleware.Result {
		return s.runReceive(fd, c)
	}))
}

func (s *Server) onWritable(fd int) {
	c, ok := s.refreshTimer(fd)
	if !ok {
		return
	}
	s.pool.Submit(s.wrap(fd, "send", func() middleware.Result {
		return s.runSend(fd, c)
	}))
}

func (s *Server) wrap(fd int, label string, task middleware.Task) middleware.Task {
	return middleware.Instrument(s.logger, s.metrics, label,
		middleware.Recover(s.logger, task))
}

func (s *Server) runReceive(fd int, c *conn.Connection) middleware.Result {
	if _, err := c.Receive(); err != nil {
		s.markForClose(fd)
		return middleware.Result{Path: "receive", Err: err}
	}

	hasResponse := c.Process()
	interest := poller.Readable
	if hasResponse {
		interest = poller.Writable
	}
	if err := s.poll.Modify(fd, interest); err != nil {
		s.markForClose(fd)
		return middleware.Result{Path: "receive", Err: err}
	}
	return middleware.Result{Path: "receive", StatusCode: 200}
}

func (s *Server) runSend(fd int, c *conn.Connection) middleware.Result {
	if _, err := c.Send(); err != nil {
		s.markForClose(fd)
		return middleware.Result{Path: "send", Err: err}
	}

	if c.Pending() {
		if err := s.poll.Modify(fd, poller.Writable); err != nil {
			s.markForClose(fd)
			return middleware.Result{Path: "send", Err: err}
		}
		return middleware.Result{Path: "send", StatusCode: 200}
	}

	if !c.KeepAlive() {
		s.markForClose(fd)
		return middleware.Result{Path: "send", StatusCode: 200}
	}

	hasResponse := c.Process()
	interest := poller.Readable
	if hasResponse {
		interest = poller.Writable
	}
	if err := s.poll.Modify(fd, interest); err != nil {
		s.markForClose(fd)
		return middleware.Result{Path: "send", Err: err}
	}
	return middleware.Result{Path: "send", StatusCode: 200}
}

func (s *Server) shutdown() error {
	s.pool.Close()

	s.mu.Lock()
	for fd, c := range s.conns {
		s.poll.Remove(fd)
		c.Close()
	}
	s.conns = make(map[int]*conn.Connection)
	s.timers.Clear()
	s.mu.Unlock()

	if err := s.poll.Close(); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func remoteAddrString(sa unix.Sockaddr) string {
	switch addr := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(addr.Addr[:]).String(), fmt.Sprintf("%d", addr.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(addr.Addr[:]).String(), fmt.Sprintf("%d", addr.Port))
	default:
		return ""
	}
}
