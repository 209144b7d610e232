package httpmsg

import (
	"strconv"
	"testing"

	"github.com/hatchetline/echod/core/buffer"
)

func TestRequest_ParseGet(t *testing.T) {
	buf := buffer.NewString("GET /index.html HTTP/1.1\r\nHost: localhost\r\nConnection: keep-alive\r\n\r\n")
	r := NewRequest()
	if err := r.Parse(buf); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if r.Method() != "GET" || r.Path() != "/index.html" || r.Version() != "1.1" {
		t.Fatalf("got method=%q path=%q version=%q", r.Method(), r.Path(), r.Version())
	}
	if host, ok := r.Header("Host"); !ok || host != "localhost" {
		t.Fatalf("Header(Host) = %q, %v", host, ok)
	}
	if !r.KeepAlive() {
		t.Fatal("KeepAlive() should be true")
	}
	if buf.ReadableSize() != 0 {
		t.Fatalf("Parse() left %d unconsumed bytes for a complete request", buf.ReadableSize())
	}
}

func TestRequest_ParsePostForm(t *testing.T) {
	body := "user=alice&msg=hi+there"
	raw := "POST /index.html HTTP/1.1\r\n" +
		"Content-Type: application/x-www-form-urlencoded\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n" +
		"\r\n" + body
	buf := buffer.NewString(raw)

	r := NewRequest()
	if err := r.Parse(buf); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if v, ok := r.Post("user"); !ok || v != "alice" {
		t.Fatalf("Post(user) = %q, %v", v, ok)
	}
	if v, ok := r.Post("msg"); !ok || v != "hi there" {
		t.Fatalf("Post(msg) = %q, %v, want %q", v, ok, "hi there")
	}
	if r.State() != Finished {
		t.Fatalf("State() = %v, want Finished", r.State())
	}
}

func TestRequest_PercentDecoding(t *testing.T) {
	// The whole body is percent-decoded before it is split into pairs, so an
	// encoded '&' or '=' separates fields exactly like a literal one.
	body := "key=a%26b%3Dc"
	raw := "POST / HTTP/1.1\r\nContent-Type: application/x-www-form-urlencoded\r\n\r\n" + body
	buf := buffer.NewString(raw)

	r := NewRequest()
	if err := r.Parse(buf); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if v, _ := r.Post("key"); v != "a" {
		t.Fatalf("Post(key) = %q, want %q", v, "a")
	}
	if v, _ := r.Post("b"); v != "c" {
		t.Fatalf("Post(b) = %q, want %q", v, "c")
	}
}

func TestRequest_DuplicateKeyRejected(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nContent-Type: application/x-www-form-urlencoded\r\n\r\na=1&a=2"
	buf := buffer.NewString(raw)

	r := NewRequest()
	if err := r.Parse(buf); err == nil {
		t.Fatal("Parse() should reject duplicate form keys")
	}
}

func TestRequest_EmptyValueRejected(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nContent-Type: application/x-www-form-urlencoded\r\n\r\na="
	buf := buffer.NewString(raw)

	r := NewRequest()
	if err := r.Parse(buf); err == nil {
		t.Fatal("Parse() should reject an empty form value")
	}
}

func TestRequest_NonPostBodyRejected(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nHost: x\r\n\r\nsomebody"
	buf := buffer.NewString(raw)

	r := NewRequest()
	if err := r.Parse(buf); err == nil {
		t.Fatal("Parse() should reject a body on a non-POST request")
	}
}

func TestRequest_MalformedRequestLine(t *testing.T) {
	buf := buffer.NewString("NOT A REQUEST\r\n\r\n")
	r := NewRequest()
	if err := r.Parse(buf); err == nil {
		t.Fatal("Parse() should reject a malformed request line")
	}
}

func TestRequest_PartialRequestLeavesBufferUntouched(t *testing.T) {
	buf := buffer.NewString("GET /index.html HTTP/1.1\r\nHost: x\r\n")
	r := NewRequest()
	if err := r.Parse(buf); err != nil {
		t.Fatalf("Parse() on a partial request returned an error: %v", err)
	}
	if buf.ReadableSize() != 0 {
		t.Fatalf("Parse() should consume every complete line it saw, got %d left", buf.ReadableSize())
	}
	if r.State() != Headers {
		t.Fatalf("State() = %v, want Headers for a request missing its blank line", r.State())
	}
}

func TestRequest_HTTP10NoKeepAlive(t *testing.T) {
	buf := buffer.NewString("GET / HTTP/1.0\r\nConnection: keep-alive\r\n\r\n")
	r := NewRequest()
	if err := r.Parse(buf); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if r.KeepAlive() {
		t.Fatal("KeepAlive() must be false for HTTP/1.0")
	}
}
