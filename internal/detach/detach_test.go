package detach

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetachNoLeases(t *testing.T) {
	ctx := New(nil)
	require.Equal(t, Attached, ctx.State())

	res := ctx.Detach()
	assert.Equal(t, ResultOK, res)
	assert.Equal(t, Detached, ctx.State())
}

func TestDetachWithInflightPendsThenNotifies(t *testing.T) {
	notified := 0
	ctx := New(func() { notified++ })

	require.True(t, ctx.Acquire())
	require.Equal(t, uint32(1), ctx.Inflight())

	res := ctx.Detach()
	assert.Equal(t, ResultPending, res)
	assert.Equal(t, Detaching, ctx.State())
	assert.Equal(t, 0, notified, "must not notify before last lease releases")

	ctx.Release()
	assert.Equal(t, Detached, ctx.State())
	assert.Equal(t, 1, notified)
}

func TestDetachTwiceIsInvalid(t *testing.T) {
	ctx := New(nil)
	require.Equal(t, ResultOK, ctx.Detach())
	assert.Equal(t, ResultInvalid, ctx.Detach())
}

func TestDetachWhileDetachingIsInvalid(t *testing.T) {
	ctx := New(nil)
	require.True(t, ctx.Acquire())
	require.Equal(t, ResultPending, ctx.Detach())
	assert.Equal(t, ResultInvalid, ctx.Detach())
}

func TestNoLeaseGrantedOnceDetaching(t *testing.T) {
	ctx := New(nil)
	require.True(t, ctx.Acquire())
	require.Equal(t, ResultPending, ctx.Detach())

	assert.False(t, ctx.Acquire(), "invariant 7: no new lease once detaching")

	ctx.Release()
	assert.False(t, ctx.Acquire(), "invariant 7: no new lease once detached")
}

func TestConcurrentAcquireRelease(t *testing.T) {
	ctx := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ctx.Acquire() {
				ctx.Release()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint32(0), ctx.Inflight())
	assert.Equal(t, Attached, ctx.State())
}
