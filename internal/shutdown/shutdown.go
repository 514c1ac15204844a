// Package shutdown implements the per-socket half-close state machine: it
// tracks send/receive direction progress and computes, per transition,
// exactly which edges fired so the session can raise the corresponding
// events without duplicating or missing any of them.
package shutdown

// Origin identifies who initiated a receive-direction shutdown.
type Origin int

const (
	Source Origin = iota
	Remote
)

// State tracks half-close progress for one socket.
type State struct {
	initiated   bool
	sendOpen    bool
	receiveOpen bool
	halfOpen    bool
}

// New returns a fully-open State. halfOpen selects whether a single-direction
// shutdown leaves the other direction open (true) or forces full close
// (false), per spec §4.D rule 1.
func New(halfOpen bool) *State {
	return &State{
		sendOpen:    true,
		receiveOpen: true,
		halfOpen:    halfOpen,
	}
}

// Context is the per-transition delta: which edges fired on this call.
type Context struct {
	Initiated bool
	Send      bool
	Receive   bool
	Completed bool
}

// any reports whether at least one edge fired.
func (c Context) any() bool {
	return c.Initiated || c.Send || c.Receive || c.Completed
}

// Completed reports whether both directions are now closed.
func (s *State) Completed() bool {
	return !s.sendOpen && !s.receiveOpen
}

// SendOpen reports whether the send direction is still open.
func (s *State) SendOpen() bool { return s.sendOpen }

// ReceiveOpen reports whether the receive direction is still open.
func (s *State) ReceiveOpen() bool { return s.receiveOpen }

// TryShutdownSend attempts to close the send direction. Returns (ctx, true)
// iff at least one edge transitioned.
func (s *State) TryShutdownSend() (Context, bool) {
	return s.transition(true, false, Source)
}

// TryShutdownReceive attempts to close the receive direction. origin names
// which side initiated it; it is accepted but neither stored nor used by
// the transition table.
func (s *State) TryShutdownReceive(origin Origin) (Context, bool) {
	return s.transition(false, true, origin)
}

func (s *State) transition(closeSend, closeReceive bool, _ Origin) (Context, bool) {
	var ctx Context

	if s.Completed() {
		// Rule 5: post-completion calls always return false.
		return ctx, false
	}

	wasSendOpen := s.sendOpen
	wasReceiveOpen := s.receiveOpen

	if !s.halfOpen {
		// Rule 1: full-close mode forces both directions closed regardless
		// of which direction was requested.
		closeSend = true
		closeReceive = true
	}

	if closeSend && s.sendOpen {
		s.sendOpen = false
	}
	if closeReceive && s.receiveOpen {
		s.receiveOpen = false
	}

	sendEdge := wasSendOpen && !s.sendOpen
	receiveEdge := wasReceiveOpen && !s.receiveOpen

	if !sendEdge && !receiveEdge {
		// Rule 4: nothing changed.
		return ctx, false
	}

	if !s.initiated {
		s.initiated = true
		ctx.Initiated = true
	}
	ctx.Send = sendEdge
	ctx.Receive = receiveEdge
	ctx.Completed = s.Completed()

	return ctx, ctx.any()
}
