// Package sockif defines the socket-handle API contract consumed by the
// engines and sessions: an opaque descriptor plus the capability set a raw
// OS socket layer must expose (open/bind/listen/accept/connect/send/
// receive/shutdown/close/options). The concrete implementation (raw
// syscalls) is out of scope per the runtime core's boundary; this package
// is the interface the core programs against, the same role the teacher's
// internal/interfaces package plays for block-device backends.
package sockif

// Handle is an opaque OS descriptor. Bitwise-copyable; zero is a valid
// descriptor, so Invalid (-1) is the sentinel.
type Handle int32

// Invalid is the sentinel handle value.
const Invalid Handle = -1

// Valid reports whether h is usable.
func (h Handle) Valid() bool { return h != Invalid }

// Transport identifies the socket's wire transport.
type Transport int

const (
	TCP Transport = iota
	UDP
	LocalStream
	LocalDatagram
)

func (t Transport) String() string {
	switch t {
	case TCP:
		return "tcp"
	case UDP:
		return "udp"
	case LocalStream:
		return "local-stream"
	case LocalDatagram:
		return "local-datagram"
	default:
		return "unknown"
	}
}

// ShutdownDirection selects which half of a connection to close.
type ShutdownDirection int

const (
	ShutdownSend ShutdownDirection = iota
	ShutdownReceive
	ShutdownBoth
)

// Code is the socket-handle API's error enum (spec §6): every consumed
// syscall result is classified into one of these before it crosses into
// session/engine logic.
type Code int

const (
	OK Code = iota
	WouldBlock
	Interrupted
	Pending
	ConnectionDead
	ConnectionRefused
	ConnectionReset
	EOF
	Invalid_
	Limit
	NotImplemented
	Cancelled
)

// Timestamps carries kernel-reported TX/RX timestamps returned by Receive
// when timestamping is enabled (spec §4.C, §6).
type Timestamps struct {
	Scheduled    *int64 // nanoseconds since epoch, nil if absent
	Sent         *int64
	Acknowledged *int64
}

// ReceiveResult is the out-of-band data Receive may return alongside the
// byte count: the sender endpoint (for datagrams), timestamps, and any
// ancillary file descriptors (for LOCAL_STREAM fd-passing).
type ReceiveResult struct {
	BytesReceived  int
	Code           Code
	From           *WireEndpoint
	Timestamps     *Timestamps
	ForeignHandles []Handle
}

// WireEndpoint is the minimal endpoint shape the socket-handle layer needs
// (full parsing/formatting lives in the root package's Endpoint type; this
// is the data sockif exchanges with it without importing it, to avoid a
// cycle).
type WireEndpoint struct {
	Transport Transport
	IP        []byte // 4 or 16 bytes, nil for LOCAL_*
	Port      uint16
	Zone      string // IPv6 scope id
	Path      string // LOCAL_* path or abstract name
}

// Options bundles the setOption/getOption surface the socket-handle API
// exposes (spec §6 configuration surface, the subset that applies
// per-handle rather than per-engine).
type Options struct {
	ReuseAddress    bool
	KeepAlive       bool
	NoDelay         bool
	KeepHalfOpen    bool
	LingerEnabled   bool
	LingerTimeoutNs int64
	SendBufferSize  int
	RecvBufferSize  int
}

// API is the capability set a raw OS socket layer must expose. It is
// consumed, not implemented, by this module's core; a real implementation
// lives outside the runtime core's scope (see nettest for a fake used by
// this module's own tests).
type API interface {
	Open(transport Transport) (Handle, error)
	Bind(h Handle, ep WireEndpoint, reuseAddress bool) error
	Listen(h Handle, backlog int) error
	Accept(h Handle) (Handle, WireEndpoint, Code)
	Connect(h Handle, ep WireEndpoint) Code
	Send(h Handle, data []byte, opts Options) (int, Code)
	Receive(h Handle, buf []byte, opts Options) ReceiveResult
	Shutdown(h Handle, dir ShutdownDirection) Code
	Close(h Handle) error
	SetBlocking(h Handle, blocking bool) error
	SetOption(h Handle, opts Options) error
	GetOption(h Handle) (Options, error)
	Pair(transport Transport) (Handle, Handle, error)
}
