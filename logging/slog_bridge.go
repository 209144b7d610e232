package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// slogBridge adapts a Logger to the slog.Handler interface, so components
// that only know about log/slog (core/server, core/middleware,
// core/workerpool) still end up writing through this package's appenders,
// formatter, and delivery queue.
type slogBridge struct {
	logger *Logger
}

func (h *slogBridge) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.logger.Level().slogLevel()
}

func (h *slogBridge) Handle(_ context.Context, r slog.Record) error {
	level := fromSlogLevel(r.Level)

	var b strings.Builder
	b.WriteString(r.Message)
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Any())
		return true
	})

	h.logger.log(level, b.String())
	return nil
}

func (h *slogBridge) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *slogBridge) WithGroup(_ string) slog.Handler      { return h }

func fromSlogLevel(l slog.Level) Level {
	switch {
	case l < slog.LevelInfo:
		return Debug
	case l < slog.LevelWarn:
		return Info
	case l < slog.LevelError:
		return Warn
	default:
		return Error
	}
}

// Slog returns a *slog.Logger backed by this Logger's appenders, level, and
// delivery mode, for components that only accept the standard library's
// logging interface.
func (l *Logger) Slog() *slog.Logger {
	return slog.New(&slogBridge{logger: l})
}
