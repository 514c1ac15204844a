// Package reactor implements the readiness-based I/O multiplexing engine:
// register a handle, wait for readiness, dispatch readable/writable/error
// callbacks synchronously on the polling thread, with the attach/detach
// lease discipline from internal/detach enforced around every dispatch.
//
// The dispatch loop shape (blocking wait, per-event dispatch, drain-until-
// WOULD_BLOCK retry) is grounded on the teacher's
// internal/queue.Runner.ioLoop, fused with gaio's watcher readiness-loop
// idiom (per-fd descriptor table, EAGAIN-driven retry, edge ordering).
package reactor

import (
	"sync"

	"github.com/go-netcore/netcore/internal/detach"
	"github.com/go-netcore/netcore/internal/evpool"
	"github.com/go-netcore/netcore/internal/wakeup"
)

// Interest is the per-handle registration of readable/writable concern,
// plus trigger mode.
type Interest struct {
	Readable      bool
	Writable      bool
	EdgeTriggered bool
	Oneshot       bool
}

// Callback is invoked synchronously on the polling thread for each
// dispatched event. The event's lease is released automatically when
// Callback returns.
type Callback func(ev *evpool.Event)

// handleState is the engine's per-handle bookkeeping: interest mask,
// callbacks, and the detach-context guarding callback dispatch.
type handleState struct {
	fd       int32
	interest Interest
	onRead   Callback
	onWrite  Callback
	onError  Callback
	detach   *detach.Context
}

// Engine is a readiness-based multiplexer. One Engine corresponds to one
// poller thread calling Poll in a loop; interest-altering calls from other
// threads are safe and wake the poller via its Controller.
type Engine struct {
	mu      sync.Mutex
	states  map[int32]*handleState
	pool    *evpool.Pool
	ctrl    *wakeup.Controller
	backend pollerBackend
}

// pollerBackend is the OS-specific readiness multiplexer (epoll on Linux).
type pollerBackend interface {
	add(fd int32, readable, writable, edgeTriggered bool) error
	modify(fd int32, readable, writable, edgeTriggered bool) error
	remove(fd int32) error
	wait(timeoutMs int) ([]readyEvent, error)
	close() error
}

type readyEvent struct {
	fd       int32
	readable bool
	writable bool
	errored  bool
}

// New creates an Engine backed by the platform's readiness multiplexer.
func New() (*Engine, error) {
	backend, err := newPollerBackend()
	if err != nil {
		return nil, err
	}
	ctrl, err := wakeup.New()
	if err != nil {
		_ = backend.close()
		return nil, err
	}
	e := &Engine{
		states:  make(map[int32]*handleState),
		pool:    evpool.New(),
		ctrl:    ctrl,
		backend: backend,
	}
	_ = backend.add(int32(ctrl.Handle()), true, false, false)
	return e, nil
}

// Close releases the engine's own descriptors (controller, poller). It
// does not detach or close any attached socket handles.
func (e *Engine) Close() error {
	_ = e.ctrl.Close()
	return e.backend.close()
}

// AttachSocket allocates per-handle bookkeeping for fd, returning its
// DetachContext. onDetached is invoked only when the final dispatched
// callback's lease release completes a pending detach; when DetachSocket
// finds no leases outstanding it returns ResultOK without invoking
// onDetached, and the caller handles that case itself. On the
// asynchronous path (Release driving the last lease to zero), the engine
// must remove its own fd bookkeeping before the caller's onDetached runs —
// otherwise a Detach that raced with in-flight callbacks never clears
// e.states or the poller registration for fd, since DetachSocket itself
// only does that on the synchronous ResultOK path.
func (e *Engine) AttachSocket(fd int32, onDetached func()) *detach.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	wrapped := func() {
		e.removeHandle(fd)
		if onDetached != nil {
			onDetached()
		}
	}
	ctx := detach.New(wrapped)
	e.states[fd] = &handleState{fd: fd, detach: ctx}
	return ctx
}

// DetachSocket requests detachment of fd's engine bookkeeping. Per spec
// §4.I: returns detach.ResultOK/ResultPending/ResultInvalid from the
// underlying DetachContext. On ResultOK or once the final lease drains
// (ResultPending path), the handle is removed from the poller.
func (e *Engine) DetachSocket(fd int32) detach.Result {
	e.mu.Lock()
	st, ok := e.states[fd]
	e.mu.Unlock()
	if !ok {
		return detach.ResultInvalid
	}
	res := st.detach.Detach()
	if res == detach.ResultOK {
		e.removeHandle(fd)
	}
	return res
}

func (e *Engine) removeHandle(fd int32) {
	e.mu.Lock()
	delete(e.states, fd)
	e.mu.Unlock()
	_ = e.backend.remove(fd)
}

// ShowReadable arms readable interest for fd and registers its callback.
func (e *Engine) ShowReadable(fd int32, opts Interest, cb Callback) error {
	return e.show(fd, opts, true, false, cb, nil)
}

// HideReadable removes readable interest for fd.
func (e *Engine) HideReadable(fd int32) error {
	return e.hide(fd, true, false)
}

// ShowWritable arms writable interest for fd and registers its callback.
func (e *Engine) ShowWritable(fd int32, opts Interest, cb Callback) error {
	return e.show(fd, opts, false, true, cb, nil)
}

// HideWritable removes writable interest for fd.
func (e *Engine) HideWritable(fd int32) error {
	return e.hide(fd, false, true)
}

// SetErrorCallback registers the callback invoked for error-class events.
func (e *Engine) SetErrorCallback(fd int32, cb Callback) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.states[fd]; ok {
		st.onError = cb
	}
}

func (e *Engine) show(fd int32, opts Interest, readable, writable bool, cb Callback, _ any) error {
	e.mu.Lock()
	st, ok := e.states[fd]
	if !ok {
		e.mu.Unlock()
		return errNotAttached
	}
	wasRegistered := st.interest.Readable || st.interest.Writable
	if readable {
		st.interest.Readable = true
		st.onRead = cb
	}
	if writable {
		st.interest.Writable = true
		st.onWrite = cb
	}
	st.interest.EdgeTriggered = opts.EdgeTriggered
	st.interest.Oneshot = opts.Oneshot
	interest := st.interest
	e.mu.Unlock()

	var err error
	if wasRegistered {
		err = e.backend.modify(fd, interest.Readable, interest.Writable, interest.EdgeTriggered)
	} else {
		err = e.backend.add(fd, interest.Readable, interest.Writable, interest.EdgeTriggered)
	}
	// Cross-thread wake-up: force the poller out of its kernel wait so the
	// new interest takes effect immediately even if Poll is blocked.
	_ = e.ctrl.Interrupt(1)
	return err
}

func (e *Engine) hide(fd int32, readable, writable bool) error {
	e.mu.Lock()
	st, ok := e.states[fd]
	if !ok {
		e.mu.Unlock()
		return errNotAttached
	}
	if readable {
		st.interest.Readable = false
		st.onRead = nil
	}
	if writable {
		st.interest.Writable = false
		st.onWrite = nil
	}
	interest := st.interest
	e.mu.Unlock()

	var err error
	if interest.Readable || interest.Writable {
		err = e.backend.modify(fd, interest.Readable, interest.Writable, interest.EdgeTriggered)
	} else {
		err = e.backend.remove(fd)
	}
	_ = e.ctrl.Interrupt(1)
	return err
}

var errNotAttached = notAttachedError{}

type notAttachedError struct{}

func (notAttachedError) Error() string { return "reactor: handle not attached" }

// Poll blocks until at least one event is ready (or timeoutMs elapses),
// then dispatches each event synchronously on the calling thread.
// Readable events are dispatched before writable before error events for
// the same handle (spec §4.I ordering). Poll never fails on timeout; it
// returns an error only on driver corruption (fatal).
func (e *Engine) Poll(timeoutMs int) error {
	events, err := e.backend.wait(timeoutMs)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if ev.fd == int32(e.ctrl.Handle()) {
			_ = e.ctrl.Acknowledge()
			continue
		}
		e.dispatch(ev)
	}
	return nil
}

func (e *Engine) dispatch(ev readyEvent) {
	e.mu.Lock()
	st, ok := e.states[ev.fd]
	e.mu.Unlock()
	if !ok {
		return
	}

	// Readable before writable before error, per handle.
	if ev.readable && st.onRead != nil {
		e.dispatchOne(st, st.onRead, evpool.KindReadable)
	}
	if ev.writable && st.onWrite != nil {
		e.dispatchOne(st, st.onWrite, evpool.KindWritable)
	}
	if ev.errored && st.onError != nil {
		e.dispatchOne(st, st.onError, evpool.KindError)
	}

	if st.interest.Oneshot {
		e.removeHandle(ev.fd)
	}
}

func (e *Engine) dispatchOne(st *handleState, cb Callback, kind evpool.Kind) {
	// Lease at dispatch time, released on callback return: a callback may
	// only run on a socket whose detach-context is Attached or Detaching
	// with a lease held (spec §4.I rule 1).
	ev, ok := e.pool.Acquire(st.detach.Acquire, st.detach.Release)
	if !ok {
		// Detached: dispatch for this handle is dropped; no new leases.
		return
	}
	ev.Kind = kind
	ev.Handle = st.fd
	defer ev.Release()
	cb(ev)
}
