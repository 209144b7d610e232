// Package middleware wraps a unit of work with panic recovery and
// instrumentation, the way the connection reactor wraps each request it
// processes.
package middleware

import (
	"log/slog"
	"time"

	"github.com/hatchetline/echod/core/observability"
)

// Result describes the outcome of processing one request, for logging and
// metrics purposes only; it carries no response bytes.
type Result struct {
	Path       string
	StatusCode int
	Err        error
}

// Task performs one unit of work and reports its outcome.
type Task func() Result

// Recover wraps task so a panic inside it is converted into a Result with
// Err set instead of crashing the caller's goroutine.
func Recover(logger *slog.Logger, task Task) Task {
	return func() (res Result) {
		defer func() {
			if r := recover(); r != nil {
				if logger != nil {
					logger.Error("recovered panic in task", "panic", r)
				}
				res = Result{StatusCode: 500, Err: errPanic(r)}
			}
		}()
		return task()
	}
}

// Instrument wraps task so its duration and outcome are recorded against
// label in metrics and logged at debug level.
func Instrument(logger *slog.Logger, metrics *observability.Recorder, label string, task Task) Task {
	return func() Result {
		start := time.Now()
		res := task()
		duration := time.Since(start)

		path := res.Path
		if path == "" {
			path = label
		}
		if metrics != nil {
			metrics.Record(path, duration, res.Err != nil)
		}
		if logger != nil {
			logger.Debug("request processed",
				"path", path,
				"status", res.StatusCode,
				"duration", duration,
				"error", res.Err,
			)
		}
		return res
	}
}

// errPanic turns an arbitrary recovered value into an error.
func errPanic(v interface{}) error {
	if err, ok := v.(error); ok {
		return err
	}
	return panicError{v}
}

type panicError struct{ value interface{} }

func (p panicError) Error() string {
	return "panic: " + toString(p.value)
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return "unknown panic value"
}
