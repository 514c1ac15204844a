//go:build linux

package reactor

import (
	"golang.org/x/sys/unix"
)

// epollBackend is the Linux pollerBackend, grounded on the teacher's
// internal/queue.Runner raw-syscall style (direct golang.org/x/sys/unix
// calls, no cgo) applied to epoll instead of io_uring.
type epollBackend struct {
	epfd   int
	events []unix.EpollEvent
}

func newPollerBackend() (pollerBackend, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollBackend{epfd: fd, events: make([]unix.EpollEvent, 256)}, nil
}

func maskFor(readable, writable, edgeTriggered bool) uint32 {
	var mask uint32
	if readable {
		mask |= unix.EPOLLIN
	}
	if writable {
		mask |= unix.EPOLLOUT
	}
	mask |= unix.EPOLLERR | unix.EPOLLHUP
	if edgeTriggered {
		mask |= unix.EPOLLET
	}
	return mask
}

func (b *epollBackend) add(fd int32, readable, writable, edgeTriggered bool) error {
	ev := unix.EpollEvent{Events: maskFor(readable, writable, edgeTriggered), Fd: fd}
	return unix.EpollCtl(b.epfd, unix.EPOLL_CTL_ADD, int(fd), &ev)
}

func (b *epollBackend) modify(fd int32, readable, writable, edgeTriggered bool) error {
	ev := unix.EpollEvent{Events: maskFor(readable, writable, edgeTriggered), Fd: fd}
	return unix.EpollCtl(b.epfd, unix.EPOLL_CTL_MOD, int(fd), &ev)
}

func (b *epollBackend) remove(fd int32) error {
	err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_DEL, int(fd), nil)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (b *epollBackend) wait(timeoutMs int) ([]readyEvent, error) {
	for {
		n, err := unix.EpollWait(b.epfd, b.events, timeoutMs)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, err
		}
		out := make([]readyEvent, 0, n)
		for i := 0; i < n; i++ {
			ev := b.events[i]
			out = append(out, readyEvent{
				fd:       ev.Fd,
				readable: ev.Events&(unix.EPOLLIN|unix.EPOLLHUP) != 0,
				writable: ev.Events&unix.EPOLLOUT != 0,
				errored:  ev.Events&unix.EPOLLERR != 0,
			})
		}
		return out, nil
	}
}

func (b *epollBackend) close() error {
	return unix.Close(b.epfd)
}
