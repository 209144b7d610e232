// Package logging implements the hierarchical logger: named loggers with a
// level, a set of appenders, and either synchronous delivery or an
// asynchronous delivery queue backed by core/blockdeque, the same
// producer/consumer primitive the worker pool uses for tasks.
package logging

import (
	"fmt"
	"sync"
	"time"

	"github.com/hatchetline/echod/core/blockdeque"
)

// Logger fans a formatted Event out to every attached appender, either
// inline (synchronous) or through a background delivery goroutine
// (asynchronous) when constructed with a positive queue capacity.
type Logger struct {
	name  string
	level Level

	mu        sync.RWMutex
	appenders []Appender

	queue    *blockdeque.BlockDeque[Event]
	wg       sync.WaitGroup
	async    bool
}

// New creates a synchronous logger: Log calls block until every appender
// has written the event.
func New(name string, level Level) *Logger {
	return &Logger{name: name, level: level}
}

// NewAsync creates a logger whose Log calls enqueue onto a bounded queue of
// capacity and return immediately; a background goroutine drains the queue
// into the appenders.
func NewAsync(name string, level Level, capacity int) *Logger {
	l := &Logger{
		name:  name,
		level: level,
		queue: blockdeque.New[Event](capacity),
		async: true,
	}
	l.wg.Add(1)
	go l.deliver()
	return l
}

func (l *Logger) deliver() {
	defer l.wg.Done()
	for {
		event, ok := l.queue.Pop(0)
		if !ok {
			return
		}
		l.fanOut(event)
	}
}

func (l *Logger) fanOut(event Event) {
	l.mu.RLock()
	appenders := append([]Appender{}, l.appenders...)
	l.mu.RUnlock()
	for _, a := range appenders {
		a.Write(event)
	}
}

// AddAppender attaches appender to the logger.
func (l *Logger) AddAppender(a Appender) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appenders = append(l.appenders, a)
}

// RemoveAppender detaches appender. fanOut snapshots the appender list under
// RLock when it delivers an event, so on an async logger the removal also
// applies to events that are already queued but not yet delivered; only an
// event whose fan-out is under way still reaches the removed appender.
func (l *Logger) RemoveAppender(a Appender) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, existing := range l.appenders {
		if existing == a {
			l.appenders = append(l.appenders[:i], l.appenders[i+1:]...)
			return
		}
	}
}

// ClearAppenders detaches every appender.
func (l *Logger) ClearAppenders() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appenders = nil
}

// Level returns the logger's current minimum level.
func (l *Logger) Level() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// SetLevel changes the minimum level events must meet to be processed.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Name returns the logger's name.
func (l *Logger) Name() string { return l.name }

func (l *Logger) log(level Level, message string) {
	if level < l.Level() {
		return
	}
	event := newEvent(level, l.name, message, 3)
	if l.async {
		l.queue.PushBack(event)
		return
	}
	l.fanOut(event)
}

// Debugf logs at Debug level.
func (l *Logger) Debugf(format string, args ...any) { l.log(Debug, fmt.Sprintf(format, args...)) }

// Infof logs at Info level.
func (l *Logger) Infof(format string, args ...any) { l.log(Info, fmt.Sprintf(format, args...)) }

// Warnf logs at Warn level.
func (l *Logger) Warnf(format string, args ...any) { l.log(Warn, fmt.Sprintf(format, args...)) }

// Errorf logs at Error level.
func (l *Logger) Errorf(format string, args ...any) { l.log(Error, fmt.Sprintf(format, args...)) }

// Fatalf logs at Fatal level. It does not exit the process; callers that
// want that behavior call os.Exit after Fatalf themselves.
func (l *Logger) Fatalf(format string, args ...any) { l.log(Fatal, fmt.Sprintf(format, args...)) }

// Close stops the delivery goroutine (if asynchronous), waiting for it to
// drain, then closes every appender.
func (l *Logger) Close() error {
	if l.async {
		// Closing the deque discards queued items, so let the delivery
		// goroutine take every queued event first.
		for !l.queue.Empty() {
			time.Sleep(time.Millisecond)
		}
		l.queue.Close()
		l.wg.Wait()
	}
	l.mu.RLock()
	appenders := append([]Appender{}, l.appenders...)
	l.mu.RUnlock()

	var firstErr error
	for _, a := range appenders {
		if err := a.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
