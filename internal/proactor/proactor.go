// Package proactor implements the completion-based I/O engine: submit an
// operation (send/receive/connect/accept/timer), receive its result as a
// single completion event once the kernel finishes it. Unlike the reactor,
// a lease is taken at submission time and held for the operation's entire
// lifetime, not just for the duration of a callback.
//
// Grounded directly on the teacher's internal/queue.Runner (TagState enum,
// per-tag mutex serialization, handleCompletion dispatch, FlushSubmissions
// batching) with the FETCH_REQ/COMMIT_AND_FETCH_REQ pair generalized to
// this package's Submission/Completion model.
package proactor

import (
	"sync"
	"time"

	"github.com/go-netcore/netcore/internal/detach"
	"github.com/go-netcore/netcore/internal/evpool"
)

// OpKind is the operation submitted to the ring.
type OpKind int

const (
	OpSend OpKind = iota
	OpReceive
	OpConnect
	OpAccept
	OpTimer
)

// Submission describes one operation to hand to the ring.
type Submission struct {
	Kind     OpKind
	Handle   int32
	Buffer   []byte        // Send/Receive payload
	Address  []byte        // Connect: raw sockaddr; Accept: unused
	Deadline time.Duration // Timer: relative timeout
}

// Callback receives the completion event. The event's BytesTransferred and
// Status carry the ring result; the lease taken at submission time is
// released automatically right before Callback returns control to the
// engine (the callback itself still runs under the lease).
type Callback func(ev *evpool.Event)

// ring is the backend that actually talks to the kernel (giouring-backed
// or the minimal raw-syscall ring); both satisfy this contract.
type ring interface {
	submit(userData uint64, sub Submission) error
	reap(timeoutMs int) ([]ringCompletion, error)
	cancel(userData uint64) error
	close() error
}

type ringCompletion struct {
	userData uint64
	res      int32 // >=0 bytes transferred, <0 negative errno, -ECANCELED on cancel
}

type pendingOp struct {
	handle int32
	cb     Callback
	kind   OpKind
	ctx    *detach.Context
}

// Engine is a proactor instance: one ring, one set of in-flight operations.
// A single goroutine must call Reap in a loop (the teacher's ioLoop shape);
// Submit* may be called from any goroutine.
type Engine struct {
	mu      sync.Mutex
	ring    ring
	pool    *evpool.Pool
	pending map[uint64]*pendingOp
	next    uint64
}

// New creates a proactor Engine with the given submission queue depth.
func New(queueDepth int) (*Engine, error) {
	r, err := newRing(queueDepth)
	if err != nil {
		return nil, err
	}
	return &Engine{
		ring:    r,
		pool:    evpool.New(),
		pending: make(map[uint64]*pendingOp),
	}, nil
}

// Close tears down the ring. Outstanding operations are abandoned; callers
// must Detach every handle before calling Close.
func (e *Engine) Close() error {
	return e.ring.close()
}

// AttachSocket registers fd with the engine's lease accounting, returning
// its DetachContext. Every Submit* call below acquires a lease from this
// context before handing work to the ring (spec §4.J: lease-at-submission,
// held for the operation's lifetime, not just the completion callback).
func AttachSocket(onDetached func()) *detach.Context {
	return detach.New(onDetached)
}

// submit is the shared submission path: acquire a lease, hand the op to the
// ring, and track it as pending so Reap can find its callback. If the lease
// cannot be acquired (socket Detaching/Detached), the operation is never
// submitted and ok is false.
func (e *Engine) submit(ctx *detach.Context, handle int32, kind OpKind, sub Submission, cb Callback) (uint64, bool) {
	if !ctx.Acquire() {
		return 0, false
	}
	e.mu.Lock()
	userData := e.next
	e.next++
	e.pending[userData] = &pendingOp{handle: handle, cb: cb, kind: kind, ctx: ctx}
	e.mu.Unlock()

	if err := e.ring.submit(userData, sub); err != nil {
		e.mu.Lock()
		delete(e.pending, userData)
		e.mu.Unlock()
		ctx.Release()
		return 0, false
	}
	return userData, true
}

// Send submits an asynchronous send operation.
func (e *Engine) Send(ctx *detach.Context, handle int32, data []byte, cb Callback) (uint64, bool) {
	return e.submit(ctx, handle, OpSend, Submission{Kind: OpSend, Handle: handle, Buffer: data}, cb)
}

// Receive submits an asynchronous receive operation into buf.
func (e *Engine) Receive(ctx *detach.Context, handle int32, buf []byte, cb Callback) (uint64, bool) {
	return e.submit(ctx, handle, OpReceive, Submission{Kind: OpReceive, Handle: handle, Buffer: buf}, cb)
}

// Connect submits an asynchronous connect operation.
func (e *Engine) Connect(ctx *detach.Context, handle int32, rawAddr []byte, cb Callback) (uint64, bool) {
	return e.submit(ctx, handle, OpConnect, Submission{Kind: OpConnect, Handle: handle, Address: rawAddr}, cb)
}

// Accept submits an asynchronous accept operation on a listening handle.
func (e *Engine) Accept(ctx *detach.Context, handle int32, cb Callback) (uint64, bool) {
	return e.submit(ctx, handle, OpAccept, Submission{Kind: OpAccept, Handle: handle}, cb)
}

// Timer submits a relative timeout, firing cb once it elapses (or is
// cancelled).
func (e *Engine) Timer(ctx *detach.Context, after time.Duration, cb Callback) (uint64, bool) {
	return e.submit(ctx, -1, OpTimer, Submission{Kind: OpTimer, Deadline: after}, cb)
}

// Cancel requests cancellation of a pending operation by its userData
// handle (the uint64 Submit* returned). The operation still completes
// through the normal Reap path, reported with Status=StatusCancelled —
// Cancel does not itself release the lease or invoke the callback.
func (e *Engine) Cancel(userData uint64) error {
	return e.ring.cancel(userData)
}

// Reap blocks for at least one completion (or until timeoutMs elapses),
// dispatching each to its callback under the lease taken at submission,
// then releasing that lease exactly once.
func (e *Engine) Reap(timeoutMs int) error {
	completions, err := e.ring.reap(timeoutMs)
	if err != nil {
		return err
	}
	for _, c := range completions {
		e.dispatch(c)
	}
	return nil
}

func (e *Engine) dispatch(c ringCompletion) {
	e.mu.Lock()
	op, ok := e.pending[c.userData]
	if ok {
		delete(e.pending, c.userData)
	}
	e.mu.Unlock()
	if !ok {
		return
	}
	defer op.ctx.Release()

	ev := &evpool.Event{Kind: evpool.KindCompletion, Handle: op.handle}
	if c.res < 0 {
		ev.Status = statusFromErrno(c.res)
	} else {
		ev.Status = evpool.StatusOK
		ev.BytesTransferred = int(c.res)
	}
	if op.cb != nil {
		op.cb(ev)
	}
}

func statusFromErrno(res int32) evpool.Status {
	switch -res {
	case 11: // EAGAIN
		return evpool.StatusWouldBlock
	case 4: // EINTR
		return evpool.StatusInterrupted
	case 125: // ECANCELED
		return evpool.StatusCancelled
	case 104: // ECONNRESET
		return evpool.StatusConnectionReset
	case 111: // ECONNREFUSED
		return evpool.StatusConnectionRefused
	case 107, 32: // ENOTCONN, EPIPE
		return evpool.StatusConnectionDead
	default:
		return evpool.StatusConnectionDead
	}
}
