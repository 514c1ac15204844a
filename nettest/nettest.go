//go:build linux

// Package nettest provides an in-memory sockif.API double for exercising
// the reactor, proactor, and session layers without a real network stack.
// Grounded on the teacher's testing.go MockBackend (fake implementation +
// call counters + compile-time interface assertions), re-themed from a
// block backend to a socket-handle API.
//
// Connected endpoints are backed by real unix.Socketpair descriptors, so
// a Handle doubles as the exact file descriptor a real
// internal/reactor.Engine can epoll — the same identity a production
// socket layer has. Listen/Accept are synthesized entirely in this
// package (socketpair has no native listen/accept) via a per-listener
// backlog and a notify descriptor that becomes readable when a
// connection is queued.
package nettest

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/go-netcore/netcore/internal/sockif"
)

// CallCounts tracks how many times each API method has been invoked, for
// test assertions.
type CallCounts struct {
	Open, Bind, Listen, Accept, Connect int
	Send, Receive, Shutdown, Close      int
}

type socket struct {
	fd        int
	transport sockif.Transport
	endpoint  sockif.WireEndpoint
	opts      sockif.Options
	closed    bool

	listening bool
	backlog   []int // fds of accepted peers awaiting Accept
	notifyFD  int   // readable when backlog is non-empty
}

// API is a fake sockif.API over real connected descriptors.
type API struct {
	mu        sync.Mutex
	sockets   map[sockif.Handle]*socket
	listeners map[string]*socket // endpoint key -> listening socket

	calls CallCounts
}

// New creates an empty API.
func New() *API {
	return &API{
		sockets:   make(map[sockif.Handle]*socket),
		listeners: make(map[string]*socket),
	}
}

// Calls returns a snapshot of the method call counters.
func (a *API) Calls() CallCounts {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func endpointKey(ep sockif.WireEndpoint) string {
	if ep.Path != "" {
		return fmt.Sprintf("%d:%s", ep.Transport, ep.Path)
	}
	return fmt.Sprintf("%d:%s:%d%%%s", ep.Transport, string(ep.IP), ep.Port, ep.Zone)
}

// Open allocates a handle backed by one end of a throwaway socketpair
// (the unused peer end is closed immediately). This gives out a real,
// distinct, epoll-capable descriptor the same way socket(2) does, without
// yet connecting it to anything.
func (a *API) Open(transport sockif.Transport) (sockif.Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls.Open++

	pair, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return sockif.Invalid, err
	}
	_ = unix.Close(pair[1])

	h := sockif.Handle(pair[0])
	a.sockets[h] = &socket{fd: pair[0], transport: transport, notifyFD: -1}
	return h, nil
}

func (a *API) get(h sockif.Handle) (*socket, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sockets[h]
	return s, ok
}

// Bind records the endpoint a handle will listen on or send from.
func (a *API) Bind(h sockif.Handle, ep sockif.WireEndpoint, reuseAddress bool) error {
	a.mu.Lock()
	a.calls.Bind++
	a.mu.Unlock()

	s, ok := a.get(h)
	if !ok {
		return fmt.Errorf("nettest: bind: unknown handle %d", h)
	}
	s.endpoint = ep
	s.opts.ReuseAddress = reuseAddress
	return nil
}

// Listen marks h as accepting connections at its bound endpoint. Since a
// socketpair half has no kernel listen/accept queue, Listen replaces h's
// descriptor with one end of a fresh socketpair that becomes readable whenever
// Connect queues a new peer (see Connect/Accept).
func (a *API) Listen(h sockif.Handle, backlog int) error {
	a.mu.Lock()
	a.calls.Listen++
	s, ok := a.sockets[h]
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("nettest: listen: unknown handle %d", h)
	}

	notifyPair, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return err
	}
	if err := unix.Dup2(notifyPair[0], s.fd); err != nil {
		_ = unix.Close(notifyPair[0])
		_ = unix.Close(notifyPair[1])
		return err
	}
	_ = unix.Close(notifyPair[0])

	a.mu.Lock()
	s.listening = true
	s.notifyFD = notifyPair[1]
	a.listeners[endpointKey(s.endpoint)] = s
	a.mu.Unlock()
	return nil
}

// Connect synthesizes a connection to a previously Listen'd endpoint in
// this same API instance: h's descriptor is replaced (via dup2, the same
// fd-reuse connect(2) itself performs) with one end of a fresh
// socketpair, and the other end is queued on the listener's backlog,
// waking it via its notify descriptor.
func (a *API) Connect(h sockif.Handle, ep sockif.WireEndpoint) sockif.Code {
	a.mu.Lock()
	a.calls.Connect++
	s, ok := a.sockets[h]
	listener, found := a.listeners[endpointKey(ep)]
	a.mu.Unlock()
	if !ok {
		return sockif.ConnectionDead
	}
	if !found {
		return sockif.ConnectionRefused
	}

	pair, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return sockif.ConnectionDead
	}
	if err := unix.Dup2(pair[0], s.fd); err != nil {
		_ = unix.Close(pair[0])
		_ = unix.Close(pair[1])
		return sockif.ConnectionDead
	}
	_ = unix.Close(pair[0])

	a.mu.Lock()
	listener.backlog = append(listener.backlog, pair[1])
	a.mu.Unlock()
	_, _ = unix.Write(listener.notifyFD, []byte{1})
	return sockif.OK
}

// Accept pops one queued peer connection, draining the corresponding
// notify byte. Returns WouldBlock if the backlog is empty.
func (a *API) Accept(h sockif.Handle) (sockif.Handle, sockif.WireEndpoint, sockif.Code) {
	a.mu.Lock()
	a.calls.Accept++
	s, ok := a.sockets[h]
	a.mu.Unlock()
	if !ok || !s.listening {
		return sockif.Invalid, sockif.WireEndpoint{}, sockif.ConnectionDead
	}

	a.mu.Lock()
	if len(s.backlog) == 0 {
		a.mu.Unlock()
		return sockif.Invalid, sockif.WireEndpoint{}, sockif.WouldBlock
	}
	peerFD := s.backlog[0]
	s.backlog = s.backlog[1:]
	a.mu.Unlock()

	var buf [1]byte
	_, _ = unix.Read(s.fd, buf[:])

	peer := sockif.Handle(peerFD)
	a.mu.Lock()
	a.sockets[peer] = &socket{fd: peerFD, transport: s.transport, notifyFD: -1}
	a.mu.Unlock()
	return peer, s.endpoint, sockif.OK
}

// Send writes data to h's descriptor.
func (a *API) Send(h sockif.Handle, data []byte, _ sockif.Options) (int, sockif.Code) {
	a.mu.Lock()
	a.calls.Send++
	s, ok := a.sockets[h]
	a.mu.Unlock()
	if !ok || s.closed {
		return 0, sockif.ConnectionDead
	}
	n, err := unix.Write(s.fd, data)
	if err == nil {
		return n, sockif.OK
	}
	return n, codeFromErrno(err)
}

// Receive reads into buf from h's descriptor.
func (a *API) Receive(h sockif.Handle, buf []byte, _ sockif.Options) sockif.ReceiveResult {
	a.mu.Lock()
	a.calls.Receive++
	s, ok := a.sockets[h]
	a.mu.Unlock()
	if !ok || s.closed {
		return sockif.ReceiveResult{Code: sockif.ConnectionDead}
	}
	n, err := unix.Read(s.fd, buf)
	if err != nil {
		return sockif.ReceiveResult{Code: codeFromErrno(err)}
	}
	if n == 0 {
		return sockif.ReceiveResult{Code: sockif.EOF}
	}
	return sockif.ReceiveResult{BytesReceived: n, Code: sockif.OK}
}

func codeFromErrno(err error) sockif.Code {
	errno, ok := err.(unix.Errno)
	if !ok {
		return sockif.ConnectionDead
	}
	switch errno {
	case unix.EAGAIN:
		return sockif.WouldBlock
	case unix.EINTR:
		return sockif.Interrupted
	case unix.ECONNRESET:
		return sockif.ConnectionReset
	case unix.EPIPE, unix.ENOTCONN:
		return sockif.ConnectionDead
	default:
		return sockif.ConnectionDead
	}
}

// Shutdown performs a real shutdown(2) on h's descriptor — socketpairs
// are genuine sockets and support half-close.
func (a *API) Shutdown(h sockif.Handle, dir sockif.ShutdownDirection) sockif.Code {
	a.mu.Lock()
	a.calls.Shutdown++
	s, ok := a.sockets[h]
	a.mu.Unlock()
	if !ok {
		return sockif.ConnectionDead
	}
	how := unix.SHUT_RDWR
	switch dir {
	case sockif.ShutdownSend:
		how = unix.SHUT_WR
	case sockif.ShutdownReceive:
		how = unix.SHUT_RD
	}
	if err := unix.Shutdown(s.fd, how); err != nil {
		return codeFromErrno(err)
	}
	return sockif.OK
}

// Close closes h's descriptor and removes it from the API.
func (a *API) Close(h sockif.Handle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls.Close++
	s, ok := a.sockets[h]
	if !ok {
		return nil
	}
	s.closed = true
	delete(a.sockets, h)
	if s.listening {
		delete(a.listeners, endpointKey(s.endpoint))
		if s.notifyFD >= 0 {
			_ = unix.Close(s.notifyFD)
		}
	}
	return unix.Close(s.fd)
}

// SetBlocking toggles O_NONBLOCK on h's descriptor.
func (a *API) SetBlocking(h sockif.Handle, blocking bool) error {
	s, ok := a.get(h)
	if !ok {
		return fmt.Errorf("nettest: set blocking: unknown handle %d", h)
	}
	return unix.SetNonblock(s.fd, !blocking)
}

// SetOption stores opts for h (no real setsockopt is performed; this is a
// fake).
func (a *API) SetOption(h sockif.Handle, opts sockif.Options) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sockets[h]
	if !ok {
		return fmt.Errorf("nettest: set option: unknown handle %d", h)
	}
	s.opts = opts
	return nil
}

// GetOption returns the options previously set via SetOption/Bind.
func (a *API) GetOption(h sockif.Handle) (sockif.Options, error) {
	s, ok := a.get(h)
	if !ok {
		return sockif.Options{}, fmt.Errorf("nettest: get option: unknown handle %d", h)
	}
	return s.opts, nil
}

// Pair creates two connected handles directly, without Bind/Listen/
// Connect — the common case for stream-echo style tests that just need
// two ends talking to each other.
func (a *API) Pair(transport sockif.Transport) (sockif.Handle, sockif.Handle, error) {
	pair, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return sockif.Invalid, sockif.Invalid, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	ha, hb := sockif.Handle(pair[0]), sockif.Handle(pair[1])
	a.sockets[ha] = &socket{fd: pair[0], transport: transport, notifyFD: -1}
	a.sockets[hb] = &socket{fd: pair[1], transport: transport, notifyFD: -1}
	return ha, hb, nil
}

// Compile-time interface check.
var _ sockif.API = (*API)(nil)
