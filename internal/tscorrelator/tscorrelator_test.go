package tscorrelator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstCallArmsAndReturnsNone(t *testing.T) {
	c := New(256, InvalidateOnHit)
	_, ok := c.OnTimestampReceived(0, time.Now())
	assert.False(t, ok, "the very first call must arm and return None")
}

func TestWrapAroundScenario(t *testing.T) {
	// Scenario S3: K=256. Save ids 0..511 with refTimes 1s..512s. Arming
	// must precede the saves here (saveBeforeSend is a no-op while
	// unarmed), so prime the correlator with a throwaway delivery first,
	// matching real use where sends begin before the first kernel
	// timestamp (the arming call) arrives.
	c := New(256, InvalidateOnHit)
	base := time.Unix(0, 0)
	_, ok := c.OnTimestampReceived(0, base)
	require.False(t, ok)

	for id := uint32(0); id <= 511; id++ {
		refTime := base.Add(time.Duration(id+1) * time.Second)
		c.SaveBeforeSend(refTime, id)
	}

	for id := uint32(256); id <= 511; id++ {
		refTime := base.Add(time.Duration(id+1) * time.Second)
		recvTime := refTime.Add(2 * time.Second)
		delta, ok := c.OnTimestampReceived(id, recvTime)
		require.True(t, ok, "id %d should still be resident", id)
		assert.Equal(t, 2*time.Second, delta)
	}

	// id 0 was overwritten by id 256 at the same ring slot.
	_, ok = c.OnTimestampReceived(0, base)
	assert.False(t, ok, "id 0 should have been overwritten")
}

func TestInvalidateOnHitClearsEntry(t *testing.T) {
	c := New(4, InvalidateOnHit)
	base := time.Unix(0, 0)
	_, _ = c.OnTimestampReceived(0, base) // arm
	c.SaveBeforeSend(base, 42)

	delta, ok := c.OnTimestampReceived(42, base.Add(time.Second))
	require.True(t, ok)
	assert.Equal(t, time.Second, delta)

	_, ok = c.OnTimestampReceived(42, base.Add(2*time.Second))
	assert.False(t, ok, "invalidate-on-hit should prevent a second match")
}

func TestRetainAllowsMultipleHits(t *testing.T) {
	c := New(4, Retain)
	base := time.Unix(0, 0)
	_, _ = c.OnTimestampReceived(0, base) // arm
	c.SaveBeforeSend(base, 42)

	for kind := 0; kind < 3; kind++ {
		delta, ok := c.OnTimestampReceived(42, base.Add(time.Second))
		require.True(t, ok, "retain policy should allow kind %d to match", kind)
		assert.Equal(t, time.Second, delta)
	}
}

func TestResetClearsArmedAndEntries(t *testing.T) {
	c := New(4, InvalidateOnHit)
	_, _ = c.OnTimestampReceived(0, time.Now())
	c.SaveBeforeSend(time.Now(), 1)

	c.Reset()
	_, ok := c.OnTimestampReceived(1, time.Now())
	assert.False(t, ok, "reset should disarm, so the next call re-arms instead of matching")
}

func TestNewPanicsOnNonPowerOfTwo(t *testing.T) {
	assert.Panics(t, func() { New(100, InvalidateOnHit) })
}
