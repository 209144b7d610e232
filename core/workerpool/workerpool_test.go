package workerpool

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/hatchetline/echod/core/middleware"
)

func TestPool_RunsSubmittedTasks(t *testing.T) {
	p := New(4, nil)
	p.Start()
	defer p.Close()

	var count atomic.Int64
	const n = 100
	for i := 0; i < n; i++ {
		p.Submit(func() middleware.Result {
			count.Add(1)
			return middleware.Result{}
		})
	}

	deadline := time.Now().Add(2 * time.Second)
	for count.Load() != n && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := count.Load(); got != n {
		t.Fatalf("completed %d tasks, want %d", got, n)
	}
}

func TestPool_TaskPanicDoesNotStopPool(t *testing.T) {
	p := New(2, nil)
	p.Start()
	defer p.Close()

	p.Submit(func() middleware.Result {
		panic("boom")
	})

	var ran atomic.Bool
	p.Submit(func() middleware.Result {
		ran.Store(true)
		return middleware.Result{}
	})

	deadline := time.Now().Add(2 * time.Second)
	for !ran.Load() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !ran.Load() {
		t.Fatal("pool stopped processing tasks after a panic")
	}
}

func TestPool_CloseWaitsForWorkers(t *testing.T) {
	p := New(1, nil)
	p.Start()

	var done atomic.Bool
	started := make(chan struct{})
	p.Submit(func() middleware.Result {
		close(started)
		time.Sleep(20 * time.Millisecond)
		done.Store(true)
		return middleware.Result{}
	})

	// Close drops tasks that are still queued, so wait until the worker has
	// picked this one up and it is in flight.
	<-started
	p.Close()
	if !done.Load() {
		t.Fatal("Close() returned before the in-flight task finished")
	}
}

func TestPool_StartIsIdempotent(t *testing.T) {
	p := New(2, nil)
	p.Start()
	p.Start()
	defer p.Close()

	var count atomic.Int64
	p.Submit(func() middleware.Result {
		count.Add(1)
		return middleware.Result{}
	})

	deadline := time.Now().Add(time.Second)
	for count.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if count.Load() != 1 {
		t.Fatalf("count = %d, want 1", count.Load())
	}
}
