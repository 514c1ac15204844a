//go:build linux

package wakeup

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// eventfdBackend is the preferred backend: a single descriptor with
// kernel-maintained semaphore-like counter semantics, the same primitive
// the teacher's io_uring path assumes is available on any modern Linux.
type eventfdBackend struct {
	efd int
}

func newBackend() (backend, error) {
	efd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return newPipeBackend()
	}
	return &eventfdBackend{efd: efd}, nil
}

func (b *eventfdBackend) add(delta uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], delta)
	_, err := unix.Write(b.efd, buf[:])
	return err
}

func (b *eventfdBackend) drain(max uint64) (uint64, error) {
	var buf [8]byte
	n, err := unix.Read(b.efd, buf[:])
	if err != nil {
		if err == unix.EAGAIN {
			return 0, nil
		}
		return 0, err
	}
	if n < 8 {
		return 0, nil
	}
	val := binary.LittleEndian.Uint64(buf[:])
	if val > max {
		// Put back the excess by re-arming with the remainder: eventfd has
		// no partial-read semantics, so the simplest safe behavior is to
		// report only what was requested and re-add the remainder.
		_ = b.add(val - max)
		return max, nil
	}
	return val, nil
}

func (b *eventfdBackend) fd() int { return b.efd }

func (b *eventfdBackend) close() error {
	return unix.Close(b.efd)
}
