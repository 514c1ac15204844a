//go:build linux && giouring

// Build with -tags giouring to use the real io_uring binding instead of
// this package's own minimal raw-syscall ring. This corrects a defect
// inherited from the teacher: its own giouring-tagged file
// (internal/uring/iouring.go) claims the giouring build tag but actually
// imports github.com/iceber/iouring-go, a dependency never declared in
// go.mod. This file genuinely wires the declared dependency,
// github.com/pawelgaczynski/giouring.
package proactor

import (
	"sync"

	"github.com/pawelgaczynski/giouring"
)

type giouringRing struct {
	mu  sync.Mutex
	r   *giouring.Ring
}

func newRing(queueDepth int) (ring, error) {
	if queueDepth <= 0 {
		queueDepth = 128
	}
	r, err := giouring.CreateRing(uint32(queueDepth))
	if err != nil {
		return nil, err
	}
	return &giouringRing{r: r}, nil
}

func (g *giouringRing) submit(userData uint64, sub Submission) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	sqe := g.r.GetSQE()
	if sqe == nil {
		if _, err := g.r.Submit(); err != nil {
			return err
		}
		sqe = g.r.GetSQE()
		if sqe == nil {
			return errRingFull
		}
	}

	switch sub.Kind {
	case OpSend:
		sqe.PrepSend(sub.Handle, sub.Buffer, 0)
	case OpReceive:
		sqe.PrepRecv(sub.Handle, sub.Buffer, 0)
	case OpConnect:
		sqe.PrepConnect(sub.Handle, sub.Address)
	case OpAccept:
		sqe.PrepAccept(sub.Handle, 0, 0, 0)
	case OpTimer:
		ts := giouring.NewTimespec(sub.Deadline)
		sqe.PrepTimeout(ts, 0, 0)
	}
	sqe.SetUserData(userData)

	_, err := g.r.Submit()
	return err
}

func (g *giouringRing) reap(timeoutMs int) ([]ringCompletion, error) {
	var cqe *giouring.CompletionQueueEvent
	var err error
	if timeoutMs < 0 {
		cqe, err = g.r.WaitCQE()
	} else {
		ts := giouring.NewTimespecFromDuration(durationFromMs(timeoutMs))
		cqe, err = g.r.WaitCQETimeout(ts)
	}
	if err != nil {
		return nil, err
	}

	out := []ringCompletion{{userData: cqe.UserData, res: cqe.Res}}
	g.r.CQESeen(cqe)

	for {
		next, err := g.r.PeekCQE()
		if err != nil || next == nil {
			break
		}
		out = append(out, ringCompletion{userData: next.UserData, res: next.Res})
		g.r.CQESeen(next)
	}
	return out, nil
}

func (g *giouringRing) cancel(userData uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	sqe := g.r.GetSQE()
	if sqe == nil {
		return errRingFull
	}
	sqe.PrepAsyncCancel64(userData, 0)
	_, err := g.r.Submit()
	return err
}

func (g *giouringRing) close() error {
	g.r.QueueExit()
	return nil
}
