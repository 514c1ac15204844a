package netcore

import (
	"testing"
	"time"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	snap := m.Snapshot()
	if snap.TotalOps != 0 {
		t.Errorf("Expected 0 initial ops, got %d", snap.TotalOps)
	}

	m.RecordSend(1024, 1000000, true)    // 1KB send, 1ms latency, success
	m.RecordReceive(2048, 2000000, true) // 2KB receive, 2ms latency, success
	m.RecordSend(512, 500000, false)     // 512B send, 0.5ms latency, error

	snap = m.Snapshot()

	if snap.SendOps != 2 {
		t.Errorf("Expected 2 send ops, got %d", snap.SendOps)
	}
	if snap.ReceiveOps != 1 {
		t.Errorf("Expected 1 receive op, got %d", snap.ReceiveOps)
	}

	if snap.SendBytes != 1024 {
		t.Errorf("Expected 1024 send bytes, got %d", snap.SendBytes)
	}
	if snap.ReceiveBytes != 2048 {
		t.Errorf("Expected 2048 receive bytes, got %d", snap.ReceiveBytes)
	}

	if snap.SendErrors != 1 {
		t.Errorf("Expected 1 send error, got %d", snap.SendErrors)
	}
	if snap.ReceiveErrors != 0 {
		t.Errorf("Expected 0 receive errors, got %d", snap.ReceiveErrors)
	}

	expectedErrorRate := float64(1) / float64(3) * 100.0 // 1 error out of 3 ops
	if snap.ErrorRate < expectedErrorRate-0.1 || snap.ErrorRate > expectedErrorRate+0.1 {
		t.Errorf("Expected error rate ~%.1f%%, got %.1f%%", expectedErrorRate, snap.ErrorRate)
	}
}

func TestMetricsInFlight(t *testing.T) {
	m := NewMetrics()

	m.RecordInFlight(10)
	m.RecordInFlight(20)
	m.RecordInFlight(15)

	snap := m.Snapshot()

	if snap.MaxInFlight != 20 {
		t.Errorf("Expected max in-flight 20, got %d", snap.MaxInFlight)
	}

	expectedAvg := float64(10+20+15) / 3.0
	if snap.AvgInFlight < expectedAvg-0.1 || snap.AvgInFlight > expectedAvg+0.1 {
		t.Errorf("Expected avg in-flight %.1f, got %.1f", expectedAvg, snap.AvgInFlight)
	}
}

func TestMetricsWatermarks(t *testing.T) {
	m := NewMetrics()

	m.RecordWatermark(true, true)   // read high
	m.RecordWatermark(true, false)  // read low
	m.RecordWatermark(false, true)  // write high
	m.RecordWatermark(false, true)  // write high again

	snap := m.Snapshot()
	if snap.ReadHighWatermarkHits != 1 {
		t.Errorf("Expected 1 read high watermark hit, got %d", snap.ReadHighWatermarkHits)
	}
	if snap.ReadLowWatermarkHits != 1 {
		t.Errorf("Expected 1 read low watermark hit, got %d", snap.ReadLowWatermarkHits)
	}
	if snap.WriteHighWatermarkHits != 2 {
		t.Errorf("Expected 2 write high watermark hits, got %d", snap.WriteHighWatermarkHits)
	}
	if snap.WriteLowWatermarkHits != 0 {
		t.Errorf("Expected 0 write low watermark hits, got %d", snap.WriteLowWatermarkHits)
	}
}

func TestMetricsLatency(t *testing.T) {
	m := NewMetrics()

	m.RecordSend(1024, 1000000, true)    // 1ms
	m.RecordReceive(1024, 2000000, true) // 2ms

	snap := m.Snapshot()

	expectedAvgNs := uint64(1500000) // 1.5ms in nanoseconds
	if snap.AvgLatencyNs != expectedAvgNs {
		t.Errorf("Expected avg latency %d ns, got %d ns", expectedAvgNs, snap.AvgLatencyNs)
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()

	time.Sleep(10 * time.Millisecond)

	snap := m.Snapshot()
	if snap.UptimeNs < 10*1000000 {
		t.Errorf("Expected uptime >= 10ms, got %d ns", snap.UptimeNs)
	}

	m.Stop()
	time.Sleep(5 * time.Millisecond)

	snap2 := m.Snapshot()
	if snap2.UptimeNs > snap.UptimeNs+2*1000000 { // Allow 2ms tolerance
		t.Errorf("Uptime increased too much after stop: %d -> %d", snap.UptimeNs, snap2.UptimeNs)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()

	m.RecordSend(1024, 1000000, true)
	m.RecordReceive(2048, 2000000, true)
	m.RecordInFlight(10)

	snap := m.Snapshot()
	if snap.TotalOps == 0 {
		t.Error("Expected some operations before reset")
	}

	m.Reset()

	snap = m.Snapshot()
	if snap.TotalOps != 0 {
		t.Errorf("Expected 0 ops after reset, got %d", snap.TotalOps)
	}
	if snap.TotalBytes != 0 {
		t.Errorf("Expected 0 bytes after reset, got %d", snap.TotalBytes)
	}
	if snap.MaxInFlight != 0 {
		t.Errorf("Expected 0 max in-flight after reset, got %d", snap.MaxInFlight)
	}
}

func TestObserver(t *testing.T) {
	// NoOpObserver must not panic.
	observer := &NoOpObserver{}
	observer.ObserveSend(1024, 1000000, true)
	observer.ObserveReceive(1024, 1000000, true)
	observer.ObserveAccept(1000000, true)
	observer.ObserveConnect(1000000, true)
	observer.ObserveWatermark(true, true)
	observer.ObserveInFlight(10)

	m := NewMetrics()
	metricsObserver := NewMetricsObserver(m)

	metricsObserver.ObserveSend(1024, 1000000, true)
	metricsObserver.ObserveReceive(2048, 2000000, true)

	snap := m.Snapshot()
	if snap.SendOps != 1 {
		t.Errorf("Expected 1 send op from observer, got %d", snap.SendOps)
	}
	if snap.ReceiveOps != 1 {
		t.Errorf("Expected 1 receive op from observer, got %d", snap.ReceiveOps)
	}
	if snap.SendBytes != 1024 {
		t.Errorf("Expected 1024 send bytes from observer, got %d", snap.SendBytes)
	}
	if snap.ReceiveBytes != 2048 {
		t.Errorf("Expected 2048 receive bytes from observer, got %d", snap.ReceiveBytes)
	}
}

func TestMetricsRates(t *testing.T) {
	m := NewMetrics()

	startTime := time.Now()
	m.StartTime.Store(startTime.UnixNano())

	m.RecordSend(1024, 1000000, true)
	m.RecordReceive(2048, 2000000, true)

	stopTime := startTime.Add(1 * time.Second)
	m.StopTime.Store(stopTime.UnixNano())

	snap := m.Snapshot()

	if snap.SendIOPS < 0.9 || snap.SendIOPS > 1.1 {
		t.Errorf("Expected SendIOPS ~1.0, got %.2f", snap.SendIOPS)
	}
	if snap.ReceiveIOPS < 0.9 || snap.ReceiveIOPS > 1.1 {
		t.Errorf("Expected ReceiveIOPS ~1.0, got %.2f", snap.ReceiveIOPS)
	}

	if snap.SendBandwidth < 1000 || snap.SendBandwidth > 1050 {
		t.Errorf("Expected SendBandwidth ~1024, got %.2f", snap.SendBandwidth)
	}
	if snap.RecvBandwidth < 2000 || snap.RecvBandwidth > 2100 {
		t.Errorf("Expected RecvBandwidth ~2048, got %.2f", snap.RecvBandwidth)
	}
}

func TestMetricsHistogram(t *testing.T) {
	m := NewMetrics()

	// 50 ops at 500us, 49 ops at 5ms, 1 op at 50ms. The 99th op falls in the
	// 5ms group, so P99 interpolates to the top of the 10ms bucket.
	for i := 0; i < 50; i++ {
		m.RecordSend(1024, 500_000, true) // 500us
	}
	for i := 0; i < 49; i++ {
		m.RecordReceive(1024, 5_000_000, true) // 5ms
	}
	m.RecordReceive(1024, 50_000_000, true) // 50ms

	snap := m.Snapshot()

	if snap.TotalOps != 100 {
		t.Errorf("Expected 100 total ops, got %d", snap.TotalOps)
	}

	if snap.LatencyP50Ns < 100_000 || snap.LatencyP50Ns > 1_000_000 {
		t.Errorf("Expected P50 in 100us-1ms range, got %d ns", snap.LatencyP50Ns)
	}

	if snap.LatencyP99Ns < 5_000_000 || snap.LatencyP99Ns > 100_000_000 {
		t.Errorf("Expected P99 in 5ms-100ms range, got %d ns", snap.LatencyP99Ns)
	}

	totalInBuckets := uint64(0)
	for i := 0; i < len(snap.LatencyHistogram); i++ {
		totalInBuckets += snap.LatencyHistogram[i]
	}
	if totalInBuckets == 0 {
		t.Error("Expected histogram buckets to be populated")
	}
}
