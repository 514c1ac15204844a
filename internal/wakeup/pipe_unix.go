//go:build unix

package wakeup

import "golang.org/x/sys/unix"

// pipeBackend is the fallback when an event-counter primitive isn't
// available: one token is one byte written to the pipe, drained in bulk.
type pipeBackend struct {
	r, w int
}

func newPipeBackend() (backend, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return nil, err
	}
	return &pipeBackend{r: fds[0], w: fds[1]}, nil
}

func (b *pipeBackend) add(delta uint64) error {
	buf := make([]byte, delta)
	for len(buf) > 0 {
		n, err := unix.Write(b.w, buf)
		if err != nil {
			if err == unix.EAGAIN {
				continue
			}
			return err
		}
		buf = buf[n:]
	}
	return nil
}

func (b *pipeBackend) drain(max uint64) (uint64, error) {
	buf := make([]byte, max)
	n, err := unix.Read(b.r, buf)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, nil
		}
		return 0, err
	}
	return uint64(n), nil
}

func (b *pipeBackend) fd() int { return b.r }

func (b *pipeBackend) close() error {
	_ = unix.Close(b.w)
	return unix.Close(b.r)
}
