// Package app wires configuration, logging, and the reactor together into
// a runnable process, and owns the signal-driven shutdown sequence.
package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hatchetline/echod/config"
	"github.com/hatchetline/echod/core/conn"
	"github.com/hatchetline/echod/core/pools"
	"github.com/hatchetline/echod/core/server"
	"github.com/hatchetline/echod/logging"
)

// gcStatsInterval is how often Run logs a GC/heap snapshot while serving.
const gcStatsInterval = 5 * time.Minute

// App owns the configured server and the logger manager feeding its
// appenders.
type App struct {
	cfg      *config.Config
	registry *config.Manager
	loggers  *logging.Manager
	logger   *logging.Logger
	srv      *server.Server
}

// New builds the logger manager and the reactor from cfg, but does not
// start listening.
func New(cfg *config.Config) (*App, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logging.Info
	}

	loggers := logging.NewManager(level)
	logger := loggers.Logger("echod")
	if err := attachAppenders(logger, cfg); err != nil {
		return nil, err
	}

	conn.SetRootDirectory(cfg.AssetFolder)

	srv, err := server.New(cfg.Port, cfg.IdleTimeout(), logger.Slog())
	if err != nil {
		return nil, err
	}

	registry := config.Registry(cfg)
	registry.Watch("idle_alive_seconds", func(_ string, v interface{}) {
		logger.Infof("idle_alive_seconds changed to %v; the running server keeps its current idle timeout", v)
	})

	return &App{
		cfg:      cfg,
		registry: registry,
		loggers:  loggers,
		logger:   logger,
		srv:      srv,
	}, nil
}

func attachAppenders(logger *logging.Logger, cfg *config.Config) error {
	formatter := logging.NewFormatter(cfg.Logging.Pattern)
	appenders := cfg.Logging.Appender
	if len(appenders) == 0 {
		appenders = []config.LogAppenderConfig{{Type: "stdout"}}
	}

	for _, a := range appenders {
		switch a.Type {
		case "file":
			fa, err := logging.NewFileAppender(a.Path, formatter)
			if err != nil {
				return fmt.Errorf("app: opening log file %q: %w", a.Path, err)
			}
			logger.AddAppender(fa)
		default:
			logger.AddAppender(logging.NewStdoutAppender(formatter))
		}
	}
	return nil
}

// Run applies GC tuning, starts the reactor, and blocks until a shutdown
// signal arrives or the reactor exits with an error.
func (a *App) Run() error {
	pools.ApplyGCConfig(pools.DefaultGCConfig())

	done := make(chan error, 1)
	go func() { done <- a.srv.Run() }()

	stopStats := make(chan struct{})
	go a.logGCStats(stopStats)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		a.logger.Infof("received signal %v, shutting down", sig)
		a.srv.Close()
		err := <-done
		close(stopStats)
		a.loggers.CloseAll()
		return err
	case err := <-done:
		close(stopStats)
		a.loggers.CloseAll()
		return err
	}
}

// logGCStats periodically logs a heap/GC snapshot until stop is closed,
// giving an operator watching the logs a cheap signal of pool and
// allocator pressure without a separate metrics endpoint.
func (a *App) logGCStats(stop <-chan struct{}) {
	ticker := time.NewTicker(gcStatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s := pools.GetGCStats()
			a.logger.Infof("gc stats: numGC=%d alloc=%d sys=%d goroutines=%d avgPause=%v",
				s.NumGC, s.AllocBytes, s.Sys, s.NumGoroutine, s.AvgPause)
		}
	}
}

// Logger returns the application's named logger, for callers that want to
// log outside the request path (e.g. main's startup banner).
func (a *App) Logger() *logging.Logger { return a.logger }
