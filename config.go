package netcore

import "time"

// LoadBalancing selects the load-balancing policy, Static or Dynamic, per
// spec §5.
type LoadBalancing int

const (
	// Static pins each socket to exactly one engine/thread for its
	// lifetime, strengthening the strand guarantee to "same thread always".
	Static LoadBalancing = iota
	// Dynamic is accepted, but the Runtime treats it like Static: a session
	// is assigned to an engine round-robin when it opens and stays there;
	// its work does not migrate between engines.
	Dynamic
)

// ReactorConfig configures a reactor engine instance.
type ReactorConfig struct {
	MetricName string // identifier for metrics publishing (external)
	MinThreads int    // poller thread count range
	MaxThreads int
	DriverName string // selects a registered reactor factory
}

// DefaultReactorConfig returns sensible defaults: one poller thread, the
// built-in epoll driver.
func DefaultReactorConfig() ReactorConfig {
	return ReactorConfig{
		MinThreads: 1,
		MaxThreads: 1,
		DriverName: "epoll",
	}
}

// ProactorConfig configures a proactor engine instance.
type ProactorConfig struct {
	MetricName string
	MinThreads int
	MaxThreads int
	DriverName string // selects a registered proactor factory
	// QueueDepth is the completion-ring depth (SQE/CQE ring entries).
	QueueDepth int
}

// DefaultProactorConfig returns sensible defaults: one poller thread, the
// built-in io_uring-backed driver, a 128-entry ring, matching the
// teacher's own DefaultQueueDepth.
func DefaultProactorConfig() ProactorConfig {
	return ProactorConfig{
		MinThreads: 1,
		MaxThreads: 1,
		DriverName: "iouring",
		QueueDepth: 128,
	}
}

// StreamSocketOptions configures a stream (TCP/LOCAL_STREAM) session.
type StreamSocketOptions struct {
	ReuseAddress bool

	ReadQueueLowWatermark   int
	ReadQueueHighWatermark  int
	WriteQueueLowWatermark  int
	WriteQueueHighWatermark int

	MinIncomingStreamTransferSize int
	MaxIncomingStreamTransferSize int

	SendGreedily    bool
	ReceiveGreedily bool

	SendBufferSize    int
	ReceiveBufferSize int

	KeepAlive    bool
	NoDelay      bool
	KeepHalfOpen bool

	LingerFlag    bool
	LingerTimeout time.Duration

	TimestampOutgoingData bool
	TimestampIncomingData bool

	LoadBalancingOptions LoadBalancing
}

// DefaultStreamSocketOptions mirrors the teacher's flat-struct
// DefaultParams idiom: every option has a documented, sensible default.
func DefaultStreamSocketOptions() StreamSocketOptions {
	return StreamSocketOptions{
		ReadQueueLowWatermark:         16 * 1024,
		ReadQueueHighWatermark:        256 * 1024,
		WriteQueueLowWatermark:        16 * 1024,
		WriteQueueHighWatermark:       256 * 1024,
		MinIncomingStreamTransferSize: 1,
		MaxIncomingStreamTransferSize: 64 * 1024,
		SendGreedily:                  true,
		ReceiveGreedily:               true,
		NoDelay:                       true,
		LoadBalancingOptions:          Static,
	}
}

// DatagramSocketOptions configures a datagram (UDP/LOCAL_DATAGRAM) session.
type DatagramSocketOptions struct {
	ReuseAddress bool

	ReadQueueLowWatermark   int
	ReadQueueHighWatermark  int
	WriteQueueLowWatermark  int
	WriteQueueHighWatermark int

	SendBufferSize    int
	ReceiveBufferSize int

	TimestampOutgoingData bool
	TimestampIncomingData bool

	LoadBalancingOptions LoadBalancing
}

// DefaultDatagramSocketOptions returns sensible defaults for datagram
// sockets.
func DefaultDatagramSocketOptions() DatagramSocketOptions {
	return DatagramSocketOptions{
		ReadQueueLowWatermark:   4 * 1024,
		ReadQueueHighWatermark:  64 * 1024,
		WriteQueueLowWatermark:  4 * 1024,
		WriteQueueHighWatermark: 64 * 1024,
		LoadBalancingOptions:    Static,
	}
}

// ListenerSocketOptions configures a listening (accepting) socket.
type ListenerSocketOptions struct {
	ReuseAddress         bool
	Backlog              int
	LoadBalancingOptions LoadBalancing
}

// DefaultListenerSocketOptions returns sensible defaults.
func DefaultListenerSocketOptions() ListenerSocketOptions {
	return ListenerSocketOptions{
		ReuseAddress:         true,
		Backlog:              128,
		LoadBalancingOptions: Dynamic,
	}
}
