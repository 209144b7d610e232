// Package response builds HTTP/1.1 responses into a connection's write
// buffer: a mapped file streamed verbatim, an HTML template with parameters
// substituted in, or a predefined error page.
package response

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hatchetline/echod/core/buffer"
	"github.com/hatchetline/echod/core/mmap"
)

// StatusCode is one of the small set of statuses this server ever returns.
type StatusCode int

const (
	OK         StatusCode = 200
	BadRequest StatusCode = 400
	Forbidden  StatusCode = 403
	NotFound   StatusCode = 404
)

// Message returns the status code's reason phrase.
func (c StatusCode) Message() string {
	switch c {
	case OK:
		return "OK"
	case BadRequest:
		return "Bad Request"
	case Forbidden:
		return "Forbidden"
	case NotFound:
		return "Not Found"
	default:
		return "Unknown"
	}
}

const httpVersion = "1.1"

var contentTypes = map[string]string{
	".html":  "text/html",
	".xml":   "text/xml",
	".xhtml": "application/xhtml+xml",
	".txt":   "text/plain",
	".rtf":   "application/rtf",
	".pdf":   "application/pdf",
	".word":  "application/nsword",
	".png":   "image/png",
	".gif":   "image/gif",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".au":    "audio/basic",
	".mpeg":  "video/mpeg",
	".mpg":   "video/mpeg",
	".avi":   "video/x-msvideo",
	".gz":    "application/x-gzip",
	".tar":   "application/x-tar",
	".css":   "text/css",
	".js":    "text/javascript",
}

// ContentType returns the MIME type associated with name's extension,
// case-insensitively, falling back to application/octet-stream.
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Placeholder returns the HTML placeholder text for a parameter key, e.g.
// "<$user$>".
func Placeholder(key string) string {
	return fmt.Sprintf("<$%s$>", key)
}

// Builder assembles response headers and bodies into a connection's write
// buffer, relative to a shared root directory.
type Builder struct {
	rootDir   string
	keepAlive bool
}

// New creates a builder rooted at rootDir. An empty rootDir treats every
// path as already absolute or cwd-relative.
func New(rootDir string) *Builder {
	return &Builder{rootDir: rootDir}
}

// SetKeepAlive records whether the connection this response belongs to
// should be kept alive, controlling the Connection header.
func (b *Builder) SetKeepAlive(keepAlive bool) *Builder {
	b.keepAlive = keepAlive
	return b
}

func (b *Builder) resolve(path string) string {
	if b.rootDir == "" {
		return path
	}
	return filepath.Join(b.rootDir, strings.TrimPrefix(path, "/"))
}

// BuildFile maps path read-only and writes a file response's headers into
// buf. On success it returns (OK, mapped-file); the caller owns the mapped
// file and must stream it after the buffer, then Unmap it. On failure
// (missing file, directory, unreadable) it demotes to BadRequest and writes
// the error page through BuildError; the returned file is not mapped.
func (b *Builder) BuildFile(buf *buffer.Buffer, path string) (StatusCode, mmap.File) {
	file, err := mmap.Map(b.resolve(path))
	if err != nil {
		b.BuildError(buf, BadRequest, err.Error())
		return BadRequest, mmap.File{}
	}

	b.addStatusLine(buf, OK)
	b.addConnectionHeader(buf)
	buf.AppendString(fmt.Sprintf("Content-type: %s", ContentType(path)), buffer.CRLF)
	buf.AppendString(fmt.Sprintf("Content-length: %d", file.Size()), buffer.CRLF)
	buf.AppendString("", buffer.CRLF)
	return OK, file
}

// BuildTemplate renders the HTML template at path with every "<$key$>"
// placeholder replaced by its matching entry in params (unmatched
// placeholders are left as-is, unmatched params are dropped), and writes
// the headers and rendered body into buf. Content-length is computed from
// the rendered body split into CRLF-joined lines, matching the accounting
// the template format was originally specified with so golden fixtures stay
// byte-identical. On a mapping failure it demotes to BadRequest.
func (b *Builder) BuildTemplate(buf *buffer.Buffer, path string, params map[string]string) StatusCode {
	file, err := mmap.Map(b.resolve(path))
	if err != nil {
		b.BuildError(buf, BadRequest, err.Error())
		return BadRequest
	}
	content := string(file.Data())
	file.Unmap()

	for key, val := range params {
		content = strings.ReplaceAll(content, Placeholder(key), val)
	}

	b.addStatusLine(buf, OK)
	b.addConnectionHeader(buf)
	buf.AppendString(fmt.Sprintf("Content-type: %s", ContentType(path)), buffer.CRLF)

	lines := splitLines(content)
	length := len("\r\n") * (len(lines) - 1)
	for _, line := range lines {
		length += len(line)
	}
	buf.AppendString(fmt.Sprintf("Content-length: %d", length), buffer.CRLF)
	buf.AppendString("", buffer.CRLF)

	for i, line := range lines {
		if i != len(lines)-1 {
			buf.AppendString(line, buffer.CRLF)
		} else {
			buf.AppendString(line)
		}
	}
	return OK
}

// errorPage is the path, relative to the root directory, of the HTML
// template BuildError renders status pages from.
const errorPage = "/http-status.html"

// BuildError renders the error-page template with the status code, its
// reason phrase, and an optional diagnostic message substituted into the
// "<$status-code$>", "<$status$>", and "<$msg$>" placeholders. If the
// template itself can't be mapped (e.g. the asset folder is missing it),
// it falls back to a predefined inline page so an error response can
// always be produced.
func (b *Builder) BuildError(buf *buffer.Buffer, code StatusCode, msg string) {
	file, err := mmap.Map(b.resolve(errorPage))
	if err != nil {
		b.buildPredefinedError(buf, code, msg)
		return
	}
	content := string(file.Data())
	file.Unmap()

	content = strings.ReplaceAll(content, Placeholder("status-code"), strconv.Itoa(int(code)))
	content = strings.ReplaceAll(content, Placeholder("status"), code.Message())
	content = strings.ReplaceAll(content, Placeholder("msg"), msg)

	b.addStatusLine(buf, code)
	b.addConnectionHeader(buf)
	buf.AppendString(fmt.Sprintf("Content-type: %s", ContentType(errorPage)), buffer.CRLF)

	lines := splitLines(content)
	length := len("\r\n") * (len(lines) - 1)
	for _, line := range lines {
		length += len(line)
	}
	buf.AppendString(fmt.Sprintf("Content-length: %d", length), buffer.CRLF)
	buf.AppendString("", buffer.CRLF)

	for i, line := range lines {
		if i != len(lines)-1 {
			buf.AppendString(line, buffer.CRLF)
		} else {
			buf.AppendString(line)
		}
	}
}

// buildPredefinedError writes a hardcoded HTML error page, used only when
// the error-page template itself can't be mapped.
func (b *Builder) buildPredefinedError(buf *buffer.Buffer, code StatusCode, msg string) {
	b.addStatusLine(buf, code)
	b.addConnectionHeader(buf)
	buf.AppendString("Content-type: text/html", buffer.CRLF)

	var body strings.Builder
	body.WriteString("<html>\r\n")
	body.WriteString("<title>ERROR</title>\r\n")
	body.WriteString("<body>\r\n")
	fmt.Fprintf(&body, "<p>%d : %s</p>\r\n", int(code), code.Message())
	if msg != "" {
		fmt.Fprintf(&body, "<p>%s</p>\r\n", msg)
	}
	body.WriteString("</body>\r\n")
	body.WriteString("</html>")

	buf.AppendString(fmt.Sprintf("Content-length: %d", body.Len()), buffer.CRLF)
	buf.AppendString("", buffer.CRLF)
	buf.AppendString(body.String())
}

func (b *Builder) addStatusLine(buf *buffer.Buffer, code StatusCode) {
	buf.AppendString(fmt.Sprintf("HTTP/%s %d %s", httpVersion, int(code), code.Message()), buffer.CRLF)
}

func (b *Builder) addConnectionHeader(buf *buffer.Buffer) {
	buf.AppendString("Connection: ")
	if b.keepAlive {
		buf.AppendString("keep-alive", buffer.CRLF)
		buf.AppendString("keep-alive: max=6, timeout=120", buffer.CRLF)
	} else {
		buf.AppendString("close", buffer.CRLF)
	}
}

// splitLines splits s the way the original template engine did: on '\n',
// dropping any carriage returns at the end of each resulting line, the last
// one included.
func splitLines(s string) []string {
	parts := strings.Split(s, "\n")
	for i, p := range parts {
		parts[i] = strings.TrimRight(p, "\r")
	}
	return parts
}

// StatusLine renders a bare "HTTP/1.1 <code> <message>" line, for callers
// that need a status line without the rest of the builder's machinery.
func StatusLine(code StatusCode) string {
	return fmt.Sprintf("HTTP/%s %s %s", httpVersion, strconv.Itoa(int(code)), code.Message())
}
