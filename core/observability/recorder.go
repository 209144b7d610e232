// Package observability keeps a small in-process counter set per request
// path: count, error count, and total duration. It is never exposed over
// the wire; the server logs from it and tests query it directly.
package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// PathMetrics accumulates counters for one request path.
type PathMetrics struct {
	Path          string
	Count         atomic.Uint64
	Errors        atomic.Uint64
	TotalDuration atomic.Uint64 // nanoseconds
}

// Snapshot is a point-in-time, non-atomic copy of a PathMetrics.
type Snapshot struct {
	Path          string
	Count         uint64
	Errors        uint64
	TotalDuration time.Duration
}

// Recorder is a process-wide requests_total / requests_by_path counter set.
type Recorder struct {
	paths sync.Map // string -> *PathMetrics
	total atomic.Uint64
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record adds one observation of a request to path.
func (r *Recorder) Record(path string, duration time.Duration, isError bool) {
	val, _ := r.paths.LoadOrStore(path, &PathMetrics{Path: path})
	m := val.(*PathMetrics)

	m.Count.Add(1)
	if isError {
		m.Errors.Add(1)
	}
	m.TotalDuration.Add(uint64(duration.Nanoseconds()))
	r.total.Add(1)
}

// Total returns the number of requests recorded across every path.
func (r *Recorder) Total() uint64 {
	return r.total.Load()
}

// Snapshot returns a consistent-enough copy of a single path's counters.
func (r *Recorder) Snapshot(path string) (Snapshot, bool) {
	val, ok := r.paths.Load(path)
	if !ok {
		return Snapshot{}, false
	}
	m := val.(*PathMetrics)
	return Snapshot{
		Path:          m.Path,
		Count:         m.Count.Load(),
		Errors:        m.Errors.Load(),
		TotalDuration: time.Duration(m.TotalDuration.Load()),
	}, true
}

// All returns a snapshot of every path currently tracked, unordered.
func (r *Recorder) All() []Snapshot {
	var out []Snapshot
	r.paths.Range(func(_, value interface{}) bool {
		m := value.(*PathMetrics)
		out = append(out, Snapshot{
			Path:          m.Path,
			Count:         m.Count.Load(),
			Errors:        m.Errors.Load(),
			TotalDuration: time.Duration(m.TotalDuration.Load()),
		})
		return true
	})
	return out
}
