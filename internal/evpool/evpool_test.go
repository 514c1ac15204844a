package evpool

import (
	"testing"

	"github.com/go-netcore/netcore/internal/detach"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireGrantsLeaseAndReleaseReturnsIt(t *testing.T) {
	notified := 0
	ctx := detach.New(func() { notified++ })
	pool := New()

	ev, ok := pool.Acquire(ctx.Acquire, ctx.Release)
	require.True(t, ok)
	require.NotNil(t, ev)
	assert.Equal(t, uint32(1), ctx.Inflight())

	ev.Kind = KindReadable
	ev.Release()
	assert.Equal(t, uint32(0), ctx.Inflight())
}

func TestAcquireDeniedWhileDetaching(t *testing.T) {
	ctx := detach.New(nil)
	pool := New()

	held, ok := pool.Acquire(ctx.Acquire, ctx.Release)
	require.True(t, ok)

	require.Equal(t, detach.ResultPending, ctx.Detach())

	ev, ok := pool.Acquire(ctx.Acquire, ctx.Release)
	assert.False(t, ok)
	assert.Nil(t, ev)

	held.Release()
}

func TestReleaseIsIdempotent(t *testing.T) {
	ctx := detach.New(nil)
	pool := New()
	ev, ok := pool.Acquire(ctx.Acquire, ctx.Release)
	require.True(t, ok)

	ev.Release()
	assert.Equal(t, uint32(0), ctx.Inflight())
	assert.NotPanics(t, func() { ev.Release() })
}

func TestPooledEventIsResetOnReuse(t *testing.T) {
	ctx := detach.New(nil)
	pool := New()

	ev1, ok := pool.Acquire(ctx.Acquire, ctx.Release)
	require.True(t, ok)
	ev1.BytesTransferred = 42
	ev1.Release()

	ev2, ok := pool.Acquire(ctx.Acquire, ctx.Release)
	require.True(t, ok)
	assert.Equal(t, 0, ev2.BytesTransferred)
}
