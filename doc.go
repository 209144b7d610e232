/*
Package echod is a single-host HTTP/1.1 server that renders a form back to
the client and otherwise serves static files from a configured document
root.

The interesting part isn't the response: it's the reactor underneath it.
One goroutine multiplexes many non-blocking sockets with epoll (Linux) or
kqueue (BSD/Darwin), a fixed worker pool runs request processing off the
reactor thread, and a min-heap timer evicts idle connections without ever
letting a worker touch the connection table directly.

Quick start

	package main

	import (
	    "github.com/hatchetline/echod/app"
	    "github.com/hatchetline/echod/config"
	)

	func main() {
	    cfg, _ := config.Load("config.yaml")
	    a, err := app.New(cfg)
	    if err != nil {
	        panic(err)
	    }
	    if err := a.Run(); err != nil {
	        panic(err)
	    }
	}

Modules

The module is organized the way the core it's built from lays things out:

  - app: process wiring, signal-driven shutdown
  - config: YAML configuration loading and an observer-style variable registry
  - logging: leveled, multi-appender logger with an async delivery queue
  - core/conn: per-client connection state (buffers, parser, mapped file)
  - core/server: the reactor's accept/dispatch loop
  - core/poller: epoll/kqueue demultiplexer behind one interface
  - core/timer: min-heap idle-connection eviction
  - core/workerpool: fixed worker pool over a single shared task queue
  - core/buffer: auto-growing FIFO byte buffer
  - core/ioadapter: scatter-read/write adapter over a raw socket
  - core/httpmsg: incremental HTTP/1.1 request parser
  - core/response: response builder (file, template, error page)
  - core/mmap: read-only memory-mapped files for zero-copy responses
  - core/router: two-route dispatch (echo endpoint vs. static file)
  - core/middleware: panic recovery and access-log/metrics instrumentation
  - core/observability: in-process request counters
  - core/pools: byte, connection, and object pooling; GC tuning
  - core/optimize: platform-specific path comparison
  - core/blockdeque: bounded producer/consumer deque shared by the worker
    pool and the async logger

Configuration

echod reads config.yaml at startup:

	port: 10000
	asset_folder: assets
	idle_alive_seconds: 60
	logging:
	  level: info
	  pattern: "%d [%p] %c - %m%n"
	  appenders:
	    - type: stdout

A missing file falls back to these defaults; a malformed one logs the
parse error and falls back as well, rather than refusing to start.
*/
package echod
