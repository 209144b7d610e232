//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package poller

import "golang.org/x/sys/unix"

// kqueuePoller is a kqueue-based I/O multiplexer. Read and write readiness
// are separate filters in kqueue, so Add/Modify register or clear whichever
// filters the caller's interest requires; EV_CLEAR|EV_ONESHOT gives the same
// edge-triggered, fire-once semantics epoll gets from EPOLLET|EPOLLONESHOT.
type kqueuePoller struct {
	kqfd   int
	events []unix.Kevent_t
}

func newPoller() (Poller, error) {
	kqfd, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &kqueuePoller{
		kqfd:   kqfd,
		events: make([]unix.Kevent_t, 1024),
	}, nil
}

func (p *kqueuePoller) changes(fd int, interest Interest, add bool) []unix.Kevent_t {
	var changes []unix.Kevent_t
	flags := uint16(unix.EV_DELETE)
	if add {
		flags = unix.EV_ADD | unix.EV_ENABLE | unix.EV_CLEAR | unix.EV_ONESHOT
	}

	readFlags, writeFlags := flags, flags
	if add && interest&Readable == 0 {
		readFlags = unix.EV_DELETE
	}
	if add && interest&Writable == 0 {
		writeFlags = unix.EV_DELETE
	}

	changes = append(changes, unix.Kevent_t{
		Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: readFlags,
	})
	changes = append(changes, unix.Kevent_t{
		Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: writeFlags,
	})
	return changes
}

// register applies a changelist, ignoring ENOENT from speculative deletes of
// filters that were never armed.
func (p *kqueuePoller) register(changes []unix.Kevent_t) error {
	for _, ch := range changes {
		if _, err := unix.Kevent(p.kqfd, []unix.Kevent_t{ch}, nil, nil); err != nil {
			if ch.Flags == unix.EV_DELETE && err == unix.ENOENT {
				continue
			}
			if ch.Flags != unix.EV_DELETE {
				return err
			}
		}
	}
	return nil
}

func (p *kqueuePoller) Add(fd int, interest Interest) error {
	return p.register(p.changes(fd, interest, true))
}

func (p *kqueuePoller) Modify(fd int, interest Interest) error {
	return p.register(p.changes(fd, interest, true))
}

func (p *kqueuePoller) Remove(fd int) error {
	changes := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}
	return p.register(changes)
}

func (p *kqueuePoller) Wait(timeoutMillis int) ([]Event, error) {
	var ts *unix.Timespec
	if timeoutMillis >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeoutMillis / 1000),
			Nsec: int64(timeoutMillis%1000) * 1_000_000,
		}
	}

	n, err := unix.Kevent(p.kqfd, nil, p.events, ts)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	byFd := make(map[int]*Event, n)
	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		raw := p.events[i]
		fd := int(raw.Ident)
		ev, ok := byFd[fd]
		if !ok {
			ev = &Event{Fd: fd}
			byFd[fd] = ev
			order = append(order, fd)
		}
		switch raw.Filter {
		case unix.EVFILT_READ:
			ev.Readable = true
		case unix.EVFILT_WRITE:
			ev.Writable = true
		}
		if raw.Flags&unix.EV_EOF != 0 || raw.Flags&unix.EV_ERROR != 0 {
			ev.Err = true
		}
	}

	out := make([]Event, 0, len(order))
	for _, fd := range order {
		out = append(out, *byFd[fd])
	}
	return out, nil
}

func (p *kqueuePoller) Close() error {
	return unix.Close(p.kqfd)
}
