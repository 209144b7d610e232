package server

import (
	"bufio"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/hatchetline/echod/core/conn"
)

var testPort int32 = 21000

func nextPort() int {
	testPort++
	return int(testPort)
}

var rootOnce sync.Once

// withRoot points the document root at a directory holding a one-line index
// template. conn.SetRootDirectory only honours its first call, so the
// directory is created once and shared by every test in this package
// instead of living in one test's t.TempDir.
func withRoot(t *testing.T) {
	t.Helper()
	rootOnce.Do(func() {
		dir, err := os.MkdirTemp("", "echod-server-test")
		if err != nil {
			t.Fatalf("MkdirTemp() error: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<$hide-msg$>"), 0o644); err != nil {
			t.Fatalf("WriteFile() error: %v", err)
		}
		conn.SetRootDirectory(dir)
	})
}

func startServer(t *testing.T, port int) *Server {
	t.Helper()
	s, err := New(port, 2*time.Second, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Run() }()
	t.Cleanup(func() {
		s.Close()
		<-done
	})

	waitForListener(t, port)
	return s
}

func waitForListener(t *testing.T, port int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c, err := net.DialTimeout("tcp", "127.0.0.1:"+strconv.Itoa(port), 50*time.Millisecond)
		if err == nil {
			c.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server never started listening on port %d", port)
}

func TestNew_RejectsPrivilegedPort(t *testing.T) {
	if _, err := New(80, time.Second, nil); err == nil {
		t.Fatal("New() should reject a port below 1024")
	}
}

func TestServer_ServesIndexPage(t *testing.T) {
	withRoot(t)
	port := nextPort()
	startServer(t, port)

	c, err := net.Dial("tcp", "127.0.0.1:"+strconv.Itoa(port))
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer c.Close()

	if _, err := c.Write([]byte("GET / HTTP/1.1\r\nConnection: close\r\n\r\n")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(c)
	status, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("ReadString() error: %v", err)
	}
	if status != "HTTP/1.1 200 OK\r\n" {
		t.Fatalf("status line = %q", status)
	}
}

func TestServer_KeepAliveServesSecondRequest(t *testing.T) {
	withRoot(t)
	port := nextPort()
	startServer(t, port)

	c, err := net.Dial("tcp", "127.0.0.1:"+strconv.Itoa(port))
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer c.Close()
	c.SetDeadline(time.Now().Add(2 * time.Second))

	reader := bufio.NewReader(c)
	for i := 0; i < 2; i++ {
		if _, err := c.Write([]byte("GET / HTTP/1.1\r\nConnection: keep-alive\r\n\r\n")); err != nil {
			t.Fatalf("Write() error: %v", err)
		}
		status, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("ReadString() error on request %d: %v", i, err)
		}
		if status != "HTTP/1.1 200 OK\r\n" {
			t.Fatalf("status line on request %d = %q", i, status)
		}
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("ReadString() header error: %v", err)
			}
			if line == "\r\n" {
				break
			}
		}
		// "<$hide-msg$>" renders as "true" for a request without form fields.
		body := make([]byte, len("true"))
		if _, err := io.ReadFull(reader, body); err != nil {
			t.Fatalf("ReadFull() body error: %v", err)
		}
	}
}

func TestServer_MetricsRecordRequests(t *testing.T) {
	withRoot(t)
	port := nextPort()
	s := startServer(t, port)

	c, err := net.Dial("tcp", "127.0.0.1:"+strconv.Itoa(port))
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	c.Write([]byte("GET / HTTP/1.1\r\nConnection: close\r\n\r\n"))
	io.Copy(io.Discard, c)
	c.Close()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s.Metrics().Total() > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server did not record any request metrics")
}
