//go:build linux

package nettest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-netcore/netcore/internal/sockif"
)

func TestPairSendReceive(t *testing.T) {
	api := New()
	a, b, err := api.Pair(sockif.TCP)
	require.NoError(t, err)
	require.True(t, a.Valid())
	require.True(t, b.Valid())

	n, code := api.Send(a, []byte("hello"), sockif.Options{})
	require.Equal(t, sockif.OK, code)
	require.Equal(t, 5, n)

	buf := make([]byte, 16)
	res := api.Receive(b, buf, sockif.Options{})
	require.Equal(t, sockif.OK, res.Code)
	require.Equal(t, 5, res.BytesReceived)
}

func TestListenConnectAccept(t *testing.T) {
	api := New()

	listener, err := api.Open(sockif.LocalStream)
	require.NoError(t, err)
	ep := sockif.WireEndpoint{Transport: sockif.LocalStream, Path: "test.sock"}
	require.NoError(t, api.Bind(listener, ep, true))
	require.NoError(t, api.Listen(listener, 4))

	client, err := api.Open(sockif.LocalStream)
	require.NoError(t, err)
	code := api.Connect(client, ep)
	require.Equal(t, sockif.OK, code)

	serverSide, remoteEp, code := api.Accept(listener)
	require.Equal(t, sockif.OK, code)
	require.True(t, serverSide.Valid())
	require.Equal(t, ep.Path, remoteEp.Path)

	n, code := api.Send(client, []byte("ping"), sockif.Options{})
	require.Equal(t, sockif.OK, code)
	require.Equal(t, 4, n)

	buf := make([]byte, 16)
	res := api.Receive(serverSide, buf, sockif.Options{})
	require.Equal(t, sockif.OK, res.Code)
	require.Equal(t, "ping", string(buf[:res.BytesReceived]))
}

func TestAcceptWouldBlockWithEmptyBacklog(t *testing.T) {
	api := New()
	listener, err := api.Open(sockif.LocalStream)
	require.NoError(t, err)
	ep := sockif.WireEndpoint{Transport: sockif.LocalStream, Path: "empty.sock"}
	require.NoError(t, api.Bind(listener, ep, true))
	require.NoError(t, api.Listen(listener, 4))

	_, _, code := api.Accept(listener)
	require.Equal(t, sockif.WouldBlock, code)
}

func TestConnectRefusedWithoutListener(t *testing.T) {
	api := New()
	client, err := api.Open(sockif.LocalStream)
	require.NoError(t, err)

	code := api.Connect(client, sockif.WireEndpoint{Transport: sockif.LocalStream, Path: "nobody.sock"})
	require.Equal(t, sockif.ConnectionRefused, code)
}

func TestShutdownSendThenReceiveObservesEOF(t *testing.T) {
	api := New()
	a, b, err := api.Pair(sockif.TCP)
	require.NoError(t, err)

	require.Equal(t, sockif.OK, api.Shutdown(a, sockif.ShutdownSend))

	buf := make([]byte, 16)
	res := api.Receive(b, buf, sockif.Options{})
	require.Equal(t, sockif.EOF, res.Code)
}

func TestCallCountsTrackInvocations(t *testing.T) {
	api := New()
	a, b, err := api.Pair(sockif.TCP)
	require.NoError(t, err)
	_, _ = api.Send(a, []byte("x"), sockif.Options{})
	_ = api.Receive(b, make([]byte, 4), sockif.Options{})
	require.NoError(t, api.Close(a))
	require.NoError(t, api.Close(b))

	counts := api.Calls()
	require.Equal(t, 1, counts.Send)
	require.Equal(t, 1, counts.Receive)
	require.Equal(t, 2, counts.Close)
}
