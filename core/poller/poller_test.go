package poller

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestPoller_ReadReadyOneShot(t *testing.T) {
	fds := make([]int, 2)
	err := unix.Pipe(fds)
	if err != nil {
		t.Fatalf("Pipe() error: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	p, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer p.Close()

	if err := p.Add(fds[0], Readable); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	if _, err := unix.Write(fds[1], []byte("x")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	events, err := p.Wait(1000)
	if err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	if len(events) != 1 || events[0].Fd != fds[0] || !events[0].Readable {
		t.Fatalf("Wait() = %+v, want one readable event for fd %d", events, fds[0])
	}

	// One-shot: without Modify, a second write must not produce another event.
	if _, err := unix.Write(fds[1], []byte("y")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	events, err = p.Wait(100)
	if err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("Wait() after firing once = %+v, want no events until Modify", events)
	}

	if err := p.Modify(fds[0], Readable); err != nil {
		t.Fatalf("Modify() error: %v", err)
	}
	events, err = p.Wait(1000)
	if err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	if len(events) != 1 || !events[0].Readable {
		t.Fatalf("Wait() after Modify() = %+v, want one readable event", events)
	}
}

func TestPoller_WaitTimesOut(t *testing.T) {
	fds := make([]int, 2)
	err := unix.Pipe(fds)
	if err != nil {
		t.Fatalf("Pipe() error: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	p, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer p.Close()

	if err := p.Add(fds[0], Readable); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	start := time.Now()
	events, err := p.Wait(50)
	if err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("Wait() on idle fd = %+v, want no events", events)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("Wait() returned after %v, want ~50ms", elapsed)
	}
}

func TestPoller_RemoveUnknownFdIsNoop(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer p.Close()

	if err := p.Remove(999999); err != nil {
		t.Fatalf("Remove() on unregistered fd returned error: %v", err)
	}
}
