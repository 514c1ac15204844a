package shutdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHalfOpenSendThenReceive(t *testing.T) {
	s := New(true)

	ctx, changed := s.TryShutdownSend()
	assert.True(t, changed)
	assert.Equal(t, Context{Initiated: true, Send: true}, ctx)
	assert.False(t, s.Completed())

	ctx, changed = s.TryShutdownReceive(Remote)
	assert.True(t, changed)
	assert.Equal(t, Context{Receive: true, Completed: true}, ctx)
	assert.True(t, s.Completed())
}

func TestHalfOpenReceiveThenSend(t *testing.T) {
	s := New(true)

	ctx, changed := s.TryShutdownReceive(Remote)
	assert.True(t, changed)
	assert.Equal(t, Context{Initiated: true, Receive: true}, ctx)

	ctx, changed = s.TryShutdownSend()
	assert.True(t, changed)
	assert.Equal(t, Context{Send: true, Completed: true}, ctx)
}

func TestPostCompletionCallsAlwaysFalse(t *testing.T) {
	s := New(true)
	s.TryShutdownSend()
	s.TryShutdownReceive(Remote)
	require := assert.New(t)
	require.True(s.Completed())

	ctx, changed := s.TryShutdownSend()
	require.False(changed)
	require.Equal(Context{}, ctx)

	ctx, changed = s.TryShutdownReceive(Source)
	require.False(changed)
	require.Equal(Context{}, ctx)
}

func TestRepeatedShutdownSendReturnsFalse(t *testing.T) {
	s := New(true)
	_, changed := s.TryShutdownSend()
	assert.True(t, changed)

	_, changed = s.TryShutdownSend()
	assert.False(t, changed, "rule 4: a transition that changes nothing returns false")
}

func TestFullCloseModeClosesBothDirections(t *testing.T) {
	s := New(false)

	ctx, changed := s.TryShutdownSend()
	assert.True(t, changed)
	assert.True(t, ctx.Initiated)
	assert.True(t, ctx.Send)
	assert.True(t, ctx.Receive)
	assert.True(t, ctx.Completed)
	assert.True(t, s.Completed())
}

func TestCompletedSetExactlyOnce(t *testing.T) {
	s := New(true)
	completions := 0

	for _, call := range []func() (Context, bool){
		s.TryShutdownSend,
		func() (Context, bool) { return s.TryShutdownReceive(Remote) },
		s.TryShutdownSend,
		func() (Context, bool) { return s.TryShutdownReceive(Remote) },
	} {
		ctx, _ := call()
		if ctx.Completed {
			completions++
		}
	}

	assert.Equal(t, 1, completions, "invariant 3: completed fires exactly once")
}
