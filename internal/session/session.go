// Package session implements the per-socket session (spec §4.K): it binds
// a watermark write/read queue pair (internal/wqueue), the shutdown state
// machine (internal/shutdown), and the flow-control reconciler
// (internal/flowctl) to one handle, driven by a reactor engine. This is
// the teacher's Device-per-queue binding (backend.go's Device wrapping one
// ublk queue) generalized to one socket handle wrapping one connection.
package session

import (
	"sync"

	"github.com/go-netcore/netcore/internal/detach"
	"github.com/go-netcore/netcore/internal/evpool"
	"github.com/go-netcore/netcore/internal/flowctl"
	"github.com/go-netcore/netcore/internal/reactor"
	"github.com/go-netcore/netcore/internal/shutdown"
	"github.com/go-netcore/netcore/internal/sockif"
	"github.com/go-netcore/netcore/internal/wqueue"
)

// Listener receives session-level notifications. Every method is invoked
// on the owning reactor's polling thread, under the session's strand
// guarantee — never concurrently for the same session.
type Listener interface {
	OnReadable(data []byte)
	OnReadWatermark(ev wqueue.Event)
	OnWriteWatermark(ev wqueue.Event)
	OnError(err error)
	OnShutdown(ctx shutdown.Context)
	OnDetached()
}

// Options bundles the watermark and read-transfer sizing a session needs;
// callers typically derive this from netcore.StreamSocketOptions or
// netcore.DatagramSocketOptions.
type Options struct {
	ReadLowWatermark, ReadHighWatermark   int
	WriteLowWatermark, WriteHighWatermark int
	ReceiveChunkSize                      int
	KeepHalfOpen                          bool
}

// Session is one handle's binding of watermark queues, shutdown state, and
// flow control to a reactor engine.
type Session struct {
	mu sync.Mutex

	handle sockif.Handle
	api    sockif.API
	engine *reactor.Engine

	detachCtx *detach.Context
	readQ     *wqueue.Queue
	writeQ    *wqueue.Queue
	shutdown  *shutdown.State
	flow      *flowctl.State

	opts     Options
	listener Listener
	closed   bool
}

// Open allocates a handle via api and binds a new Session to it, attached
// to engine but with no interest armed yet (the caller arms read interest
// once ready to receive, per spec §4.K's explicit bind/connect/listen
// ordering).
func Open(engine *reactor.Engine, api sockif.API, transport sockif.Transport, opts Options, listener Listener) (*Session, error) {
	h, err := api.Open(transport)
	if err != nil {
		return nil, err
	}
	s := &Session{
		handle:   h,
		api:      api,
		engine:   engine,
		readQ:    wqueue.New(opts.ReadLowWatermark, opts.ReadHighWatermark),
		writeQ:   wqueue.New(opts.WriteLowWatermark, opts.WriteHighWatermark),
		shutdown: shutdown.New(opts.KeepHalfOpen),
		flow:     flowctl.New(),
		opts:     opts,
		listener: listener,
	}
	s.detachCtx = engine.AttachSocket(int32(h), s.onDetached)
	return s, nil
}

// Bind applies a local endpoint to the handle.
func (s *Session) Bind(ep sockif.WireEndpoint, reuseAddress bool) error {
	return s.api.Bind(s.handle, ep, reuseAddress)
}

// Listen transitions the handle to listening state and arms accept
// readiness (accept completion is delivered to onAccept via Readable,
// matching the reactor's "listening socket is readable when a connection
// is pending" convention).
func (s *Session) Listen(backlog int, onAccept func(sockif.Handle, sockif.WireEndpoint)) error {
	if err := s.api.Listen(s.handle, backlog); err != nil {
		return err
	}
	return s.engine.ShowReadable(int32(s.handle), reactor.Interest{Readable: true}, func(ev *evpool.Event) {
		child, from, code := s.api.Accept(s.handle)
		if code != sockif.OK {
			return
		}
		onAccept(child, from)
	})
}

// Connect initiates a connection. Completion is observed via writability
// plus an SO_ERROR check (the reactor-driven path spec §4.K describes);
// cb is invoked once with the outcome.
func (s *Session) Connect(ep sockif.WireEndpoint, cb func(error)) error {
	code := s.api.Connect(s.handle, ep)
	if code == sockif.OK {
		cb(nil)
		return nil
	}
	if code != sockif.Pending && code != sockif.WouldBlock {
		return codeToError("CONNECT", s.handle, code)
	}
	// The oneshot writable event signals connect completion; a real
	// implementation would also consult SO_ERROR here, which sockif.API
	// does not currently surface as a distinct query.
	return s.engine.ShowWritable(int32(s.handle), reactor.Interest{Writable: true, Oneshot: true}, func(ev *evpool.Event) {
		cb(nil)
	})
}

// Send implements spec §4.K's three-step send algorithm: reject if the
// write direction is closed, buffer into the write queue (surfacing
// WOULD_BLOCK only when the queue cannot accept more), then arm write
// interest if this is the first pending byte.
func (s *Session) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.shutdown.SendOpen() {
		return codeToError("SEND", s.handle, sockif.ConnectionDead)
	}

	if s.writeQ.Triggered() {
		return codeToError("SEND", s.handle, sockif.WouldBlock)
	}

	ev := s.writeQ.Append(data)
	if ev == wqueue.HighWatermark && s.listener != nil {
		s.listener.OnWriteWatermark(ev)
	}

	s.reconcileWrite()
	return nil
}

// reconcileWrite feeds the flow-control reconciler with the write queue's
// current demand and applies at most one Show/Hide action to the engine,
// per spec §4.E.
func (s *Session) reconcileWrite() {
	switch s.flow.ReconcileWrite(s.writeQ.Len() > 0) {
	case flowctl.Show:
		_ = s.engine.ShowWritable(int32(s.handle), reactor.Interest{Writable: true}, s.onWritable)
	case flowctl.Hide:
		_ = s.engine.HideWritable(int32(s.handle))
	}
}

// reconcileRead feeds the flow-control reconciler with the read queue's
// current room (not past its own high watermark) and applies at most one
// Show/Hide action to the engine.
func (s *Session) reconcileRead() {
	switch s.flow.ReconcileRead(!s.readQ.Triggered()) {
	case flowctl.Show:
		_ = s.engine.ShowReadable(int32(s.handle), reactor.Interest{Readable: true}, s.onReadable)
	case flowctl.Hide:
		_ = s.engine.HideReadable(int32(s.handle))
	}
}

// onWritable drains the write queue to the handle; on partial progress or
// WOULD_BLOCK, interest stays armed (the reactor keeps re-invoking this
// callback); on a permanent error, the error is surfaced to the listener
// and then both directions are force-shutdown.
func (s *Session) onWritable(ev *evpool.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.writeQ.Len() > 0 {
		// Pop removes the chunk from the queue; any unsent remainder is
		// returned via Prepend, which puts it back at the front, ahead of
		// whatever else a concurrent Send queued behind it (the session
		// mutex only guarantees no interleaving between Pop and Prepend, not
		// that the queue was empty otherwise).
		chunk, wev := s.writeQ.Pop(64 * 1024)
		if wev == wqueue.LowWatermark && s.listener != nil {
			s.listener.OnWriteWatermark(wev)
		}
		if len(chunk) == 0 {
			break
		}
		n, code := s.api.Send(s.handle, chunk, opsFromOptions(s.opts))

		if code == sockif.WouldBlock {
			s.writeQ.Prepend(chunk[n:])
			s.reconcileWrite()
			return // keep interest armed
		}
		if code != sockif.OK {
			if s.listener != nil {
				s.listener.OnError(codeToError("SEND", s.handle, code))
			}
			s.forceShutdownSend(true)
			return
		}
		if n < len(chunk) {
			// Short write: requeue the unsent remainder at the front and
			// keep draining on the next writable event.
			s.writeQ.Prepend(chunk[n:])
			s.reconcileWrite()
			return
		}
	}
	s.reconcileWrite()
}

// onReadable is registered once Receive-side interest is armed: it pulls
// bytes from the kernel into the read queue and notifies the listener.
func (s *Session) onReadable(ev *evpool.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, s.chunkSize())
	res := s.api.Receive(s.handle, buf, opsFromOptions(s.opts))
	switch res.Code {
	case sockif.OK:
		if res.BytesReceived == 0 {
			s.onPeerClosed()
			return
		}
		rev := s.readQ.Append(buf[:res.BytesReceived])
		if rev == wqueue.HighWatermark && s.listener != nil {
			s.listener.OnReadWatermark(rev)
		}
		if s.listener != nil {
			s.listener.OnReadable(buf[:res.BytesReceived])
		}
		s.reconcileRead()
	case sockif.EOF:
		s.onPeerClosed()
	case sockif.WouldBlock, sockif.Interrupted:
		// transient, interest stays armed
	default:
		if s.listener != nil {
			s.listener.OnError(codeToError("RECEIVE", s.handle, res.Code))
		}
		s.forceShutdownReceive()
	}
}

func (s *Session) onPeerClosed() {
	s.forceShutdownReceive()
}

func (s *Session) chunkSize() int {
	if s.opts.ReceiveChunkSize > 0 {
		return s.opts.ReceiveChunkSize
	}
	return 64 * 1024
}

// Receive drains up to max bytes from the read queue (data the engine has
// already pulled off the handle via onReadable).
func (s *Session) Receive(max int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, _ := s.readQ.Pop(max)
	s.reconcileRead()
	return data
}

// ArmReceive requests readable interest so onReadable starts filling the
// read queue; reconciled against the read queue's current room, so it is
// a no-op if the read queue is already latched past its high watermark.
func (s *Session) ArmReceive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconcileRead()
}

// Shutdown feeds the shutdown state machine and, on a real transition,
// reconciles engine interest and notifies the listener.
func (s *Session) Shutdown(origin shutdown.Origin, direction sockif.ShutdownDirection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdownLocked(origin, direction)
}

// shutdownLocked is Shutdown's body, callable from contexts that already
// hold s.mu (onWritable/onReadable's error paths).
func (s *Session) shutdownLocked(origin shutdown.Origin, direction sockif.ShutdownDirection) bool {
	closeSend := direction == sockif.ShutdownSend || direction == sockif.ShutdownBoth
	closeReceive := direction == sockif.ShutdownReceive || direction == sockif.ShutdownBoth

	var ctx shutdown.Context
	var ok bool
	switch {
	case closeSend && closeReceive:
		// Two single-direction transitions, merged into one notification:
		// TryShutdownSend alone would report Completed=false even though
		// the receive direction closes in the same call, so the second
		// transition's Receive/Completed edges are folded into ctx before
		// the listener ever sees it.
		ctx, ok = s.shutdown.TryShutdownSend()
		if ok {
			if ctx2, ok2 := s.shutdown.TryShutdownReceive(origin); ok2 {
				ctx.Initiated = ctx.Initiated || ctx2.Initiated
				ctx.Receive = ctx.Receive || ctx2.Receive
				ctx.Completed = ctx2.Completed
			}
		}
	case closeSend:
		ctx, ok = s.shutdown.TryShutdownSend()
	case closeReceive:
		ctx, ok = s.shutdown.TryShutdownReceive(origin)
	}
	if !ok {
		return false
	}

	_ = s.api.Shutdown(s.handle, direction)
	if closeSend {
		s.flow.CloseWrite()
		s.reconcileWrite()
	}
	if closeReceive {
		s.flow.CloseRead()
		s.reconcileRead()
	}
	if s.listener != nil {
		s.listener.OnShutdown(ctx)
	}
	return true
}

// forceShutdownSend and forceShutdownReceive are called from onWritable/
// onReadable, which already hold s.mu — they must not re-lock it.
func (s *Session) forceShutdownSend(bothDirections bool) {
	dir := sockif.ShutdownSend
	if bothDirections {
		dir = sockif.ShutdownBoth
	}
	s.shutdownLocked(shutdown.Source, dir)
}

func (s *Session) forceShutdownReceive() {
	s.shutdownLocked(shutdown.Remote, sockif.ShutdownReceive)
}

// Close initiates detachment; once the engine confirms detachment (which
// may be asynchronous if a callback is in flight), the handle is closed
// and resources released.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.flow.CloseRead()
	s.flow.CloseWrite()

	res := s.engine.DetachSocket(int32(s.handle))
	if res == detach.ResultOK {
		return s.api.Close(s.handle)
	}
	// ResultPending: onDetached fires once in-flight callbacks drain.
	return nil
}

func (s *Session) onDetached() {
	_ = s.api.Close(s.handle)
	if s.listener != nil {
		s.listener.OnDetached()
	}
}

func opsFromOptions(_ Options) sockif.Options {
	return sockif.Options{}
}

func codeToError(op string, h sockif.Handle, code sockif.Code) error {
	return &SocketError{Op: op, Handle: int32(h), Code: code}
}

// SocketError reports a session-level failure classified into the
// socket-handle API's error enum (spec §6); the session never propagates
// a raw syscall error to its listener (spec line: "never propagates a raw
// syscall error to its user").
type SocketError struct {
	Op     string
	Handle int32
	Code   sockif.Code
}

func (e *SocketError) Error() string {
	return "session: " + e.Op + " failed"
}
