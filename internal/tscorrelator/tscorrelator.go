// Package tscorrelator implements the timestamp correlator: a bounded
// power-of-two ring mapping an outgoing-packet id to its send-time, so a
// later kernel-reported timestamp can be turned into a latency delta.
//
// The ring index/mask idiom is grounded on the shared-memory ring buffer in
// sakateka/yanet2's pdump control plane (mask = capacity-1, idx & mask
// instead of a modulo), adapted here to a private fixed array instead of
// shared memory.
package tscorrelator

import "time"

// InvalidationPolicy controls whether a hit clears the matched entry.
type InvalidationPolicy int

const (
	// InvalidateOnHit clears the entry's id on a match, so no later
	// delivery for that id matches it. Used for stream transports.
	InvalidateOnHit InvalidationPolicy = iota
	// Retain leaves the entry in place after a hit, so every later delivery
	// for the same id matches it too. Timestamp kinds are not tracked, so a
	// repeated delivery of the same kind also matches. Used for datagram
	// transports.
	Retain
)

// Kind identifies which timestamp event this is (scheduled, sent or
// acknowledged). The Correlator neither takes nor tracks a Kind.
type Kind int

const (
	Scheduled Kind = iota
	Sent
	Acknowledged
)

const sentinelID = ^uint32(0)

type entry struct {
	id  uint32
	ref time.Time
	set bool
}

// Correlator is the bounded ring. Capacity must be a power of two.
type Correlator struct {
	entries []entry
	mask    uint32
	w       uint32
	armed   bool
	policy  InvalidationPolicy
}

// New creates a Correlator with the given capacity and invalidation policy.
// capacity must be a power of two (default 256); any other value makes New
// panic, it is not rounded.
func New(capacity int, policy InvalidationPolicy) *Correlator {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("tscorrelator: capacity must be a power of two")
	}
	return &Correlator{
		entries: make([]entry, capacity),
		mask:    uint32(capacity - 1),
		policy:  policy,
	}
}

// SaveBeforeSend records (id, refTime) at the current write index and
// advances it. No-op until the correlator has been armed by the first
// OnTimestampReceived call.
func (c *Correlator) SaveBeforeSend(refTime time.Time, id uint32) {
	if !c.armed {
		return
	}
	idx := c.w & c.mask
	c.entries[idx] = entry{id: id, ref: refTime, set: true}
	c.w++
}

// OnTimestampReceived looks up the most recent saved entry for ts's id. On
// the very first call ever, the correlator arms and returns (zero, false):
// the first timestamp seen may refer to a packet sent before correlation
// began and is therefore unmatchable. Otherwise it scans backward from the
// most recently written slot for at most capacity entries.
func (c *Correlator) OnTimestampReceived(id uint32, recvTime time.Time) (time.Duration, bool) {
	if !c.armed {
		c.armed = true
		return 0, false
	}

	n := uint32(len(c.entries))
	for i := uint32(0); i < n; i++ {
		// w-1, w-2, ... most-recent-first, so a newer same-id save always
		// wins over an older one still resident in the ring.
		idx := (c.w - 1 - i) & c.mask
		e := &c.entries[idx]
		if !e.set || e.id != id {
			continue
		}
		delta := recvTime.Sub(e.ref)
		if c.policy == InvalidateOnHit {
			e.id = sentinelID
			e.set = false
		}
		return delta, true
	}
	return 0, false
}

// Reset clears all entries and disarms the correlator.
func (c *Correlator) Reset() {
	for i := range c.entries {
		c.entries[i] = entry{}
	}
	c.w = 0
	c.armed = false
}
