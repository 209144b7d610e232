//go:build linux

package poller

import "golang.org/x/sys/unix"

// epollPoller is an epoll-based I/O multiplexer. Every registration uses
// EPOLLET|EPOLLONESHOT so a fd stays silent after firing until Modify
// re-arms it, which is what lets many worker goroutines share one poller
// without two of them ever handling the same connection concurrently.
type epollPoller struct {
	epfd   int
	events []unix.EpollEvent
}

func newPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{
		epfd:   epfd,
		events: make([]unix.EpollEvent, 1024),
	}, nil
}

func epollMask(interest Interest) uint32 {
	mask := uint32(unix.EPOLLET) | unix.EPOLLONESHOT | unix.EPOLLRDHUP
	if interest&Readable != 0 {
		mask |= unix.EPOLLIN
	}
	if interest&Writable != 0 {
		mask |= unix.EPOLLOUT
	}
	return mask
}

func (p *epollPoller) Add(fd int, interest Interest) error {
	ev := unix.EpollEvent{Events: epollMask(interest), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *epollPoller) Modify(fd int, interest Interest) error {
	ev := unix.EpollEvent{Events: epollMask(interest), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *epollPoller) Remove(fd int) error {
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT || err == unix.EBADF {
		return nil
	}
	return err
}

func (p *epollPoller) Wait(timeoutMillis int) ([]Event, error) {
	n, err := unix.EpollWait(p.epfd, p.events, timeoutMillis)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		raw := p.events[i]
		out = append(out, Event{
			Fd:       int(raw.Fd),
			Readable: raw.Events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0,
			Writable: raw.Events&unix.EPOLLOUT != 0,
			Err:      raw.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0,
		})
	}
	return out, nil
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
