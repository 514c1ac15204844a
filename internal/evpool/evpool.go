// Package evpool implements the event pool: a sync.Pool of reusable event
// records, each lease of which bumps the owning socket's detach-context
// in-flight count for the duration the event is live. Grounded on gaio's
// aiocbPool (a pool of reusable op-control-blocks handed out per I/O call)
// and on the teacher's uring.Result interface shape for the event payload.
package evpool

import "sync"

// Kind discriminates an event's nature (readable|writable|error, the
// classic reactor trio, extended with completion for proactor ops).
type Kind int

const (
	KindReadable Kind = iota
	KindWritable
	KindError
	KindCompletion
)

// Status mirrors the socket-handle error enum that an event may carry.
type Status int

const (
	StatusOK Status = iota
	StatusWouldBlock
	StatusInterrupted
	StatusPending
	StatusConnectionDead
	StatusConnectionRefused
	StatusConnectionReset
	StatusEOF
	StatusInvalid
	StatusLimit
	StatusNotImplemented
	StatusCancelled
)

// Event is one completed or ready I/O operation handed to a callback. Its
// Endpoint field, set on accept/receive-from events, holds the root
// package's endpoint type as an interface{} to avoid an import cycle
// between evpool and the endpoint model.
type Event struct {
	Kind             Kind
	Handle           int32
	Status           Status
	BytesTransferred int
	Endpoint         any
	TimestampID      uint32
	ForeignHandles   []int32

	release func(*Event)
	lease   func() bool
}

// Release returns the event to its pool and releases the detach-context
// lease it was holding, if any. Safe to call multiple times; only the
// first call has effect.
func (e *Event) Release() {
	if e.release == nil {
		return
	}
	r := e.release
	e.release = nil
	r(e)
}

// Pool hands out Events, each backed by a lease acquirer supplied by the
// caller (typically a detach.Context.Acquire/Release pair scoped to a
// specific socket).
type Pool struct {
	sync.Pool
}

// New creates an empty event pool.
func New() *Pool {
	p := &Pool{}
	p.Pool.New = func() any { return &Event{} }
	return p
}

// Acquire attempts to take a lease via acquire() and, if granted, returns a
// pooled Event whose Release both returns it to the pool and calls
// release(). If acquire returns false (socket is Detaching/Detached), Acquire
// returns (nil, false) and no event is handed out — invariant 7.
func (p *Pool) Acquire(acquire func() bool, release func()) (*Event, bool) {
	if !acquire() {
		return nil, false
	}
	ev := p.Pool.Get().(*Event)
	*ev = Event{}
	ev.release = func(e *Event) {
		release()
		p.Pool.Put(e)
	}
	return ev, true
}
