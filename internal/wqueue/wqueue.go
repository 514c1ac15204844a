// Package wqueue implements the watermark byte queue: a segmented
// ByteQueue with low/high watermark events used for read/write
// back-pressure coordination.
package wqueue

import "github.com/go-netcore/netcore/internal/buffer"

// Event is a watermark/error notification raised by a reconciliation edge.
type Event int

const (
	// NoEvent means the operation changed the queue but crossed no
	// watermark edge.
	NoEvent Event = iota
	HighWatermark
	LowWatermark
	Discarded
)

// Queue wraps a segmented ByteQueue with watermark latch semantics. High
// and low events strictly alternate per latch cycle; the first event in
// each cycle is always High (spec §4.F invariant).
type Queue struct {
	bytes     *buffer.ByteQueue
	low, high int
	triggered bool
}

// New creates a watermark queue. A high watermark of 0 disables the high
// watermark (never fires); low must be <= high when high > 0.
func New(low, high int) *Queue {
	return &Queue{
		bytes: buffer.NewByteQueue(),
		low:   low,
		high:  high,
	}
}

// Len returns the number of unread bytes currently queued.
func (q *Queue) Len() int { return q.bytes.Len() }

// Bytes exposes the underlying segmented queue for gather/scatter/copy.
func (q *Queue) Bytes() *buffer.ByteQueue { return q.bytes }

// Append enqueues p (e.g. a user send()) and returns the watermark edge
// this append caused, if any.
func (q *Queue) Append(p []byte) Event {
	q.bytes.Append(p)
	return q.reconcileUpward()
}

// Commit is the scatter-side equivalent of Append: it advances the
// queue's length by n bytes already written into buffers obtained via
// buffer.Scatter, then reconciles the high-watermark edge.
func (q *Queue) Commit(n int) Event {
	q.bytes.Commit(n)
	return q.reconcileUpward()
}

// Pop drains up to max bytes (e.g. draining to the kernel, or a user
// receive()) and returns the watermark edge this drain caused, if any.
func (q *Queue) Pop(max int) ([]byte, Event) {
	out := q.bytes.Pop(max)
	return out, q.reconcileDownward()
}

// Prepend returns p to the front of the queue, ahead of everything already
// queued: the unsent remainder of a chunk obtained via Pop belongs back at
// the head, not the tail, or bytes queued by a later Append would be sent
// first. These bytes were already accounted for in the current latch cycle
// before Pop removed them, so Prepend does not re-run watermark
// reconciliation.
func (q *Queue) Prepend(p []byte) {
	q.bytes.Prepend(p)
}

// Discard clears the queue after an unrecoverable error and returns
// Discarded.
func (q *Queue) Discard() Event {
	q.bytes.Reset()
	q.triggered = false
	return Discarded
}

// reconcileUpward fires HighWatermark once per latch cycle when length
// crosses the high watermark upward.
func (q *Queue) reconcileUpward() Event {
	if q.high > 0 && !q.triggered && q.bytes.Len() >= q.high {
		q.triggered = true
		return HighWatermark
	}
	return NoEvent
}

// reconcileDownward fires LowWatermark once per latch cycle when length
// crosses the low watermark downward while triggered.
func (q *Queue) reconcileDownward() Event {
	if q.triggered && q.bytes.Len() < q.low {
		q.triggered = false
		return LowWatermark
	}
	return NoEvent
}

// Triggered reports whether the high-watermark latch is currently set (for
// flow-control reconciliation: a triggered write queue should hide further
// user sends; a triggered read queue should apply flow-control on the
// engine side).
func (q *Queue) Triggered() bool { return q.triggered }
