// Package wakeup implements the controller: a lightweight cross-thread
// wake-up primitive that unblocks a polling thread parked in a kernel wait.
// It is backed by an eventfd on Linux (preferred: single descriptor,
// semaphore-like counter) and falls back to an anonymous pipe elsewhere.
package wakeup

import "sync"

// Controller is the in-process primitive owning one wake-up descriptor. It
// guarantees "one token per wake-up" regardless of backend: interrupt(n)
// ensures at least n wake-ups are pending, and acknowledge() consumes
// exactly one.
type Controller struct {
	mu      sync.Mutex
	pending uint64
	backend backend
}

// backend is the OS-specific wake-up descriptor: an eventfd counter or a
// pipe byte-stream, both reduced to "add tokens" / "drain up to n tokens".
type backend interface {
	// add writes delta wake-up tokens to the kernel object.
	add(delta uint64) error
	// drain consumes up to max pending tokens already signalled at the
	// kernel object (used to keep the backend's own counter from growing
	// unbounded); it does not block.
	drain(max uint64) (uint64, error)
	// fd returns the descriptor to register with the engine as readable.
	fd() int
	close() error
}

// New creates a Controller using the best available backend for the
// current platform.
func New() (*Controller, error) {
	b, err := newBackend()
	if err != nil {
		return nil, err
	}
	return &Controller{backend: b}, nil
}

// Interrupt ensures at least n wake-ups are pending. It computes
// delta = max(0, n - pending), writes delta tokens to the kernel object,
// and updates pending += delta. Collapsing duplicate wake-up requests this
// way mirrors gaio's watcher, which only ever keeps a single pending
// notification token outstanding rather than one per caller.
func (c *Controller) Interrupt(n uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= c.pending {
		return nil
	}
	delta := n - c.pending
	if err := c.backend.add(delta); err != nil {
		return err
	}
	c.pending += delta
	return nil
}

// ErrWouldBlock is returned by Acknowledge when no wake-up is pending.
var ErrWouldBlock = errWouldBlock{}

type errWouldBlock struct{}

func (errWouldBlock) Error() string { return "wakeup: would block" }

// Acknowledge consumes exactly one token, decrementing pending. Returns
// ErrWouldBlock if none is pending.
func (c *Controller) Acknowledge() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == 0 {
		return ErrWouldBlock
	}
	n, err := c.backend.drain(1)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrWouldBlock
	}
	c.pending -= n
	return nil
}

// Pending returns the number of outstanding (un-acknowledged) wake-up
// tokens, for tests and introspection.
func (c *Controller) Pending() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Handle returns the descriptor to register with the engine as readable.
func (c *Controller) Handle() int {
	return c.backend.fd()
}

// Close releases the descriptor.
func (c *Controller) Close() error {
	return c.backend.close()
}
