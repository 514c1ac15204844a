package netcore

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds.
// Buckets cover from 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks performance and operational statistics for a runtime's
// sockets. Re-themed from the teacher's block-I/O metrics (ReadOps/
// WriteOps) to socket I/O (SendOps/ReceiveOps/AcceptOps) plus the
// watermark-event counters this domain adds.
type Metrics struct {
	// Socket operation counters
	SendOps    atomic.Uint64
	ReceiveOps atomic.Uint64
	AcceptOps  atomic.Uint64
	ConnectOps atomic.Uint64

	// Byte counters
	SendBytes    atomic.Uint64
	ReceiveBytes atomic.Uint64

	// Error counters
	SendErrors    atomic.Uint64
	ReceiveErrors atomic.Uint64
	AcceptErrors  atomic.Uint64
	ConnectErrors atomic.Uint64

	// Watermark events (internal/wqueue transitions)
	ReadHighWatermarkHits  atomic.Uint64
	ReadLowWatermarkHits   atomic.Uint64
	WriteHighWatermarkHits atomic.Uint64
	WriteLowWatermarkHits  atomic.Uint64

	// In-flight operation statistics (proactor pending-op count samples)
	InFlightTotal atomic.Uint64
	InFlightCount atomic.Uint64
	MaxInFlight   atomic.Uint32

	// Performance tracking
	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64

	// Latency histogram buckets (cumulative counts)
	// Each bucket[i] contains the count of operations with latency <= LatencyBuckets[i]
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	// Runtime lifecycle
	StartTime atomic.Int64 // Runtime start timestamp (UnixNano)
	StopTime  atomic.Int64 // Runtime stop timestamp (UnixNano)
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordSend records a send operation.
func (m *Metrics) RecordSend(bytes uint64, latencyNs uint64, success bool) {
	m.SendOps.Add(1)
	if success {
		m.SendBytes.Add(bytes)
	} else {
		m.SendErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordReceive records a receive operation.
func (m *Metrics) RecordReceive(bytes uint64, latencyNs uint64, success bool) {
	m.ReceiveOps.Add(1)
	if success {
		m.ReceiveBytes.Add(bytes)
	} else {
		m.ReceiveErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordAccept records an accept operation.
func (m *Metrics) RecordAccept(latencyNs uint64, success bool) {
	m.AcceptOps.Add(1)
	if !success {
		m.AcceptErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordConnect records a connect operation.
func (m *Metrics) RecordConnect(latencyNs uint64, success bool) {
	m.ConnectOps.Add(1)
	if !success {
		m.ConnectErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordWatermark records a watermark-queue transition (spec §4.F).
func (m *Metrics) RecordWatermark(readDirection bool, high bool) {
	switch {
	case readDirection && high:
		m.ReadHighWatermarkHits.Add(1)
	case readDirection && !high:
		m.ReadLowWatermarkHits.Add(1)
	case !readDirection && high:
		m.WriteHighWatermarkHits.Add(1)
	default:
		m.WriteLowWatermarkHits.Add(1)
	}
}

// RecordInFlight records a sample of the current in-flight operation
// count (e.g. a proactor engine's pending map size).
func (m *Metrics) RecordInFlight(count uint32) {
	m.InFlightTotal.Add(uint64(count))
	m.InFlightCount.Add(1)

	for {
		current := m.MaxInFlight.Load()
		if count <= current {
			break
		}
		if m.MaxInFlight.CompareAndSwap(current, count) {
			break
		}
	}
}

// recordLatency records operation latency and updates the histogram.
func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)

	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the runtime as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time snapshot of Metrics.
type MetricsSnapshot struct {
	SendOps    uint64
	ReceiveOps uint64
	AcceptOps  uint64
	ConnectOps uint64

	SendBytes    uint64
	ReceiveBytes uint64

	SendErrors    uint64
	ReceiveErrors uint64
	AcceptErrors  uint64
	ConnectErrors uint64

	ReadHighWatermarkHits  uint64
	ReadLowWatermarkHits   uint64
	WriteHighWatermarkHits uint64
	WriteLowWatermarkHits  uint64

	AvgInFlight float64
	MaxInFlight uint32

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	SendIOPS      float64
	ReceiveIOPS   float64
	SendBandwidth float64
	RecvBandwidth float64
	TotalOps      uint64
	TotalBytes    uint64
	ErrorRate     float64
}

// Snapshot creates a point-in-time snapshot of metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		SendOps:                m.SendOps.Load(),
		ReceiveOps:              m.ReceiveOps.Load(),
		AcceptOps:               m.AcceptOps.Load(),
		ConnectOps:              m.ConnectOps.Load(),
		SendBytes:               m.SendBytes.Load(),
		ReceiveBytes:            m.ReceiveBytes.Load(),
		SendErrors:              m.SendErrors.Load(),
		ReceiveErrors:           m.ReceiveErrors.Load(),
		AcceptErrors:            m.AcceptErrors.Load(),
		ConnectErrors:           m.ConnectErrors.Load(),
		ReadHighWatermarkHits:   m.ReadHighWatermarkHits.Load(),
		ReadLowWatermarkHits:    m.ReadLowWatermarkHits.Load(),
		WriteHighWatermarkHits:  m.WriteHighWatermarkHits.Load(),
		WriteLowWatermarkHits:   m.WriteLowWatermarkHits.Load(),
		MaxInFlight:             m.MaxInFlight.Load(),
	}

	snap.TotalOps = snap.SendOps + snap.ReceiveOps + snap.AcceptOps + snap.ConnectOps
	snap.TotalBytes = snap.SendBytes + snap.ReceiveBytes

	inFlightTotal := m.InFlightTotal.Load()
	inFlightCount := m.InFlightCount.Load()
	if inFlightCount > 0 {
		snap.AvgInFlight = float64(inFlightTotal) / float64(inFlightCount)
	}

	totalLatencyNs := m.TotalLatencyNs.Load()
	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		uptimeSeconds := float64(snap.UptimeNs) / 1e9
		snap.SendIOPS = float64(snap.SendOps) / uptimeSeconds
		snap.ReceiveIOPS = float64(snap.ReceiveOps) / uptimeSeconds
		snap.SendBandwidth = float64(snap.SendBytes) / uptimeSeconds
		snap.RecvBandwidth = float64(snap.ReceiveBytes) / uptimeSeconds
	}

	totalErrors := snap.SendErrors + snap.ReceiveErrors + snap.AcceptErrors + snap.ConnectErrors
	if snap.TotalOps > 0 {
		snap.ErrorRate = float64(totalErrors) / float64(snap.TotalOps) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile (0.0-1.0)
// using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}

	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset resets all metrics counters (useful for testing).
func (m *Metrics) Reset() {
	m.SendOps.Store(0)
	m.ReceiveOps.Store(0)
	m.AcceptOps.Store(0)
	m.ConnectOps.Store(0)
	m.SendBytes.Store(0)
	m.ReceiveBytes.Store(0)
	m.SendErrors.Store(0)
	m.ReceiveErrors.Store(0)
	m.AcceptErrors.Store(0)
	m.ConnectErrors.Store(0)
	m.ReadHighWatermarkHits.Store(0)
	m.ReadLowWatermarkHits.Store(0)
	m.WriteHighWatermarkHits.Store(0)
	m.WriteLowWatermarkHits.Store(0)
	m.InFlightTotal.Store(0)
	m.InFlightCount.Store(0)
	m.MaxInFlight.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable metrics collection.
type Observer interface {
	ObserveSend(bytes uint64, latencyNs uint64, success bool)
	ObserveReceive(bytes uint64, latencyNs uint64, success bool)
	ObserveAccept(latencyNs uint64, success bool)
	ObserveConnect(latencyNs uint64, success bool)
	ObserveWatermark(readDirection bool, high bool)
	ObserveInFlight(count uint32)
}

// NoOpObserver is a no-op implementation of Observer.
type NoOpObserver struct{}

func (NoOpObserver) ObserveSend(uint64, uint64, bool)    {}
func (NoOpObserver) ObserveReceive(uint64, uint64, bool) {}
func (NoOpObserver) ObserveAccept(uint64, bool)          {}
func (NoOpObserver) ObserveConnect(uint64, bool)         {}
func (NoOpObserver) ObserveWatermark(bool, bool)         {}
func (NoOpObserver) ObserveInFlight(uint32)              {}

// MetricsObserver implements Observer using the built-in Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveSend(bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordSend(bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveReceive(bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordReceive(bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveAccept(latencyNs uint64, success bool) {
	o.metrics.RecordAccept(latencyNs, success)
}

func (o *MetricsObserver) ObserveConnect(latencyNs uint64, success bool) {
	o.metrics.RecordConnect(latencyNs, success)
}

func (o *MetricsObserver) ObserveWatermark(readDirection bool, high bool) {
	o.metrics.RecordWatermark(readDirection, high)
}

func (o *MetricsObserver) ObserveInFlight(count uint32) {
	o.metrics.RecordInFlight(count)
}

// Compile-time interface checks
var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
