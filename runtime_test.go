package netcore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-netcore/netcore/internal/session"
	"github.com/go-netcore/netcore/internal/shutdown"
	"github.com/go-netcore/netcore/internal/sockif"
	"github.com/go-netcore/netcore/internal/wqueue"
)

// noopAPI is a minimal sockif.API double satisfying the interface without
// touching any real descriptor; Runtime wiring tests only need a handle
// that attaches and detaches cleanly, not real I/O.
type noopAPI struct{ next int32 }

func (a *noopAPI) Open(sockif.Transport) (sockif.Handle, error) {
	a.next++
	return sockif.Handle(a.next), nil
}
func (a *noopAPI) Bind(sockif.Handle, sockif.WireEndpoint, bool) error { return nil }
func (a *noopAPI) Listen(sockif.Handle, int) error                    { return nil }
func (a *noopAPI) Accept(sockif.Handle) (sockif.Handle, sockif.WireEndpoint, sockif.Code) {
	return sockif.Invalid, sockif.WireEndpoint{}, sockif.NotImplemented
}
func (a *noopAPI) Connect(sockif.Handle, sockif.WireEndpoint) sockif.Code { return sockif.OK }
func (a *noopAPI) Send(sockif.Handle, []byte, sockif.Options) (int, sockif.Code) {
	return 0, sockif.OK
}
func (a *noopAPI) Receive(sockif.Handle, []byte, sockif.Options) sockif.ReceiveResult {
	return sockif.ReceiveResult{Code: sockif.WouldBlock}
}
func (a *noopAPI) Shutdown(sockif.Handle, sockif.ShutdownDirection) sockif.Code { return sockif.OK }
func (a *noopAPI) Close(sockif.Handle) error                                    { return nil }
func (a *noopAPI) SetBlocking(sockif.Handle, bool) error                       { return nil }
func (a *noopAPI) SetOption(sockif.Handle, sockif.Options) error               { return nil }
func (a *noopAPI) GetOption(sockif.Handle) (sockif.Options, error) {
	return sockif.Options{}, nil
}
func (a *noopAPI) Pair(sockif.Transport) (sockif.Handle, sockif.Handle, error) {
	return sockif.Invalid, sockif.Invalid, sockif.NotImplemented
}

type noopListener struct{}

func (noopListener) OnReadable([]byte)            {}
func (noopListener) OnReadWatermark(wqueue.Event)  {}
func (noopListener) OnWriteWatermark(wqueue.Event) {}
func (noopListener) OnError(error)                 {}
func (noopListener) OnShutdown(shutdown.Context)   {}
func (noopListener) OnDetached()                   {}

func TestRuntimeStartsConfiguredEngineCountsAndStops(t *testing.T) {
	rt, err := NewRuntime(RuntimeConfig{NumReactors: 2})
	require.NoError(t, err)
	require.Len(t, rt.reactors, 2)
	require.Empty(t, rt.proactors)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, rt.Stop(ctx))
}

func TestRuntimePickReactorRoundRobins(t *testing.T) {
	rt, err := NewRuntime(RuntimeConfig{NumReactors: 3})
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = rt.Stop(ctx)
	}()

	seen := make(map[*session.Session]bool)
	api := &noopAPI{}
	for i := 0; i < 6; i++ {
		s, err := rt.NewStreamSession(api, sockif.TCP, DefaultStreamSocketOptions(), noopListener{})
		require.NoError(t, err)
		require.NotNil(t, s)
		seen[s] = true
	}
	require.Len(t, seen, 6)

	// Six opens over three engines wrap the round-robin cursor twice, so the
	// next three picks visit the engines in order again.
	for i := 0; i < 3; i++ {
		eng, err := rt.pickReactor()
		require.NoError(t, err)
		require.Same(t, rt.reactors[i].engine, eng)
	}
}

func TestRuntimeNewStreamSessionFailsWithNoReactors(t *testing.T) {
	// A Runtime with no reactor slots (never started, no goroutines) is
	// enough to exercise the pickReactor error path without standing up a
	// real completion-ring backend.
	rt := &Runtime{}

	_, err := rt.NewStreamSession(&noopAPI{}, sockif.TCP, DefaultStreamSocketOptions(), noopListener{})
	require.ErrorIs(t, err, errNoReactors)
}
