package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Appender writes a formatted event to one sink (stdout, a file). It
// replaces the original's virtual-dispatch Appender hierarchy with a
// single small interface, since appenders are the one genuinely open set
// in this package.
type Appender interface {
	Write(event Event)
	Close() error
}

// baseAppender shares a formatter and a slog handler writing to an
// io.Writer; slog.Logger gives every appender structured-logging behavior
// (level filtering, attribute support) for free instead of hand-rolling it.
type baseAppender struct {
	mu        sync.Mutex
	formatter *Formatter
	slogger   *slog.Logger
	closer    io.Closer
}

func newBaseAppender(w io.Writer, formatter *Formatter, closer io.Closer) *baseAppender {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &baseAppender{
		formatter: formatter,
		slogger:   slog.New(handler),
		closer:    closer,
	}
}

func (a *baseAppender) write(event Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rendered := a.formatter.Format(event)
	a.slogger.Log(context.Background(), event.Level.slogLevel(), rendered)
}

func (a *baseAppender) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// StdoutAppender writes formatted events to os.Stdout.
type StdoutAppender struct {
	*baseAppender
}

// NewStdoutAppender creates an appender writing to os.Stdout with
// formatter, or DefaultPattern if nil.
func NewStdoutAppender(formatter *Formatter) *StdoutAppender {
	if formatter == nil {
		formatter = NewFormatter(DefaultPattern)
	}
	return &StdoutAppender{baseAppender: newBaseAppender(os.Stdout, formatter, nil)}
}

// Write formats and writes event.
func (a *StdoutAppender) Write(event Event) { a.write(event) }

// FileAppender writes formatted events to a file, opened append-only and
// created if missing.
type FileAppender struct {
	*baseAppender
	path string
}

// NewFileAppender opens path for appending and creates an appender that
// writes to it.
func NewFileAppender(path string, formatter *Formatter) (*FileAppender, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	if formatter == nil {
		formatter = NewFormatter(DefaultPattern)
	}
	return &FileAppender{
		baseAppender: newBaseAppender(f, formatter, f),
		path:         path,
	}, nil
}

// Write formats and writes event.
func (a *FileAppender) Write(event Event) { a.write(event) }

// Path returns the file this appender writes to.
func (a *FileAppender) Path() string { return a.path }
