// Package detach implements the atomic attach/detach lifecycle shared by the
// reactor and proactor engines: a per-socket state machine with in-flight
// event leases, so a socket can never be torn down while a callback or
// completion could still touch it.
package detach

import (
	"sync/atomic"
)

// State is the lifecycle state of a socket's engine attachment.
type State int32

const (
	Attached State = iota
	Detaching
	Detached
)

func (s State) String() string {
	switch s {
	case Attached:
		return "attached"
	case Detaching:
		return "detaching"
	case Detached:
		return "detached"
	default:
		return "unknown"
	}
}

// Result describes the outcome of a lifecycle operation.
type Result int

const (
	ResultOK Result = iota
	ResultPending
	ResultInvalid
)

// packed layout: bits [0:2) = state, bits [2:34) = inflight count.
const (
	stateMask    = 0x3
	inflightBase = 2
)

// Context is an atomic, lock-free attach/detach state with an in-flight
// lease counter. Every field access goes through a single atomic word so
// state and lease count never observe each other torn.
type Context struct {
	word atomic.Uint64
	// onDetached is invoked exactly once, outside the CAS loop, the moment
	// inflight drops to zero while detaching. Set once at construction.
	onDetached func()
}

// New creates a Context in the Attached state. onDetached is called at most
// once, from the Release that drops the last lease while Detaching. When
// Detach itself completes the transition (it returns ResultOK because no
// leases were outstanding), onDetached is not called; the caller of Detach
// handles that case.
func New(onDetached func()) *Context {
	c := &Context{onDetached: onDetached}
	c.word.Store(pack(Attached, 0))
	return c
}

func pack(s State, inflight uint32) uint64 {
	return uint64(s)&stateMask | uint64(inflight)<<inflightBase
}

func unpack(word uint64) (State, uint32) {
	return State(word & stateMask), uint32(word >> inflightBase)
}

// State returns the current lifecycle state.
func (c *Context) State() State {
	s, _ := unpack(c.word.Load())
	return s
}

// Inflight returns the current lease count.
func (c *Context) Inflight() uint32 {
	_, n := unpack(c.word.Load())
	return n
}

// Acquire grants a new event lease. Only succeeds in Attached; returns false
// once Detaching or Detached (invariant 7 of the spec: no new lease once
// detaching has begun).
func (c *Context) Acquire() bool {
	for {
		old := c.word.Load()
		state, inflight := unpack(old)
		if state != Attached {
			return false
		}
		next := pack(state, inflight+1)
		if c.word.CompareAndSwap(old, next) {
			return true
		}
	}
}

// Release drops one lease. If this release brings inflight to zero while in
// Detaching, the context transitions to Detached and onDetached fires
// exactly once, outside the CAS loop.
func (c *Context) Release() {
	for {
		old := c.word.Load()
		state, inflight := unpack(old)
		if inflight == 0 {
			// Defensive: a release without a matching acquire is a caller bug,
			// not a state we can recover from silently.
			panic("detach: Release called with zero inflight leases")
		}
		inflight--
		newState := state
		becomesDetached := false
		if state == Detaching && inflight == 0 {
			newState = Detached
			becomesDetached = true
		}
		next := pack(newState, inflight)
		if c.word.CompareAndSwap(old, next) {
			if becomesDetached && c.onDetached != nil {
				c.onDetached()
			}
			return
		}
	}
}

// Detach requests detachment. Returns ResultOK if the socket is immediately
// Detached (no leases outstanding), ResultPending if leases remain
// outstanding (the caller will be notified via onDetached when the last
// lease releases), or ResultInvalid if detach was already requested or has
// already completed.
func (c *Context) Detach() Result {
	for {
		old := c.word.Load()
		state, inflight := unpack(old)
		switch state {
		case Detaching, Detached:
			return ResultInvalid
		case Attached:
			if inflight == 0 {
				next := pack(Detached, 0)
				if c.word.CompareAndSwap(old, next) {
					return ResultOK
				}
				continue
			}
			next := pack(Detaching, inflight)
			if c.word.CompareAndSwap(old, next) {
				return ResultPending
			}
		}
	}
}
