package logging

import (
	"bytes"
	"runtime"
	"strconv"
	"time"
)

// Event is one log occurrence, carrying everything a Formatter's pattern
// tags can reference.
type Event struct {
	Level      Level
	LoggerName string
	Time       time.Time
	GoroutineID uint64
	File       string
	Line       int
	Message    string
}

// newEvent captures the caller's file/line skip frames above the public
// Logger method that constructed it.
func newEvent(level Level, loggerName, message string, skip int) Event {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		file, line = "???", 0
	}
	return Event{
		Level:       level,
		LoggerName:  loggerName,
		Time:        time.Now(),
		GoroutineID: goroutineID(),
		File:        file,
		Line:        line,
		Message:     message,
	}
}

// goroutineID extracts the calling goroutine's ID from its own stack trace
// header ("goroutine 123 [running]:"). It is for log correlation only, not
// for control flow.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
