//go:build !linux

package nettest

import (
	"errors"

	"github.com/go-netcore/netcore/internal/sockif"
)

var errUnsupported = errors.New("nettest: socketpair-backed fake requires linux")

// CallCounts tracks how many times each API method has been invoked.
type CallCounts struct {
	Open, Bind, Listen, Accept, Connect int
	Send, Receive, Shutdown, Close      int
}

// API is the non-Linux stub: every method fails, keeping the package
// importable on platforms without unix.Socketpair/unix.Dup2.
type API struct{}

// New creates a stub API.
func New() *API { return &API{} }

func (a *API) Calls() CallCounts { return CallCounts{} }

func (a *API) Open(sockif.Transport) (sockif.Handle, error) { return sockif.Invalid, errUnsupported }
func (a *API) Bind(sockif.Handle, sockif.WireEndpoint, bool) error { return errUnsupported }
func (a *API) Listen(sockif.Handle, int) error                     { return errUnsupported }
func (a *API) Accept(sockif.Handle) (sockif.Handle, sockif.WireEndpoint, sockif.Code) {
	return sockif.Invalid, sockif.WireEndpoint{}, sockif.NotImplemented
}
func (a *API) Connect(sockif.Handle, sockif.WireEndpoint) sockif.Code { return sockif.NotImplemented }
func (a *API) Send(sockif.Handle, []byte, sockif.Options) (int, sockif.Code) {
	return 0, sockif.NotImplemented
}
func (a *API) Receive(sockif.Handle, []byte, sockif.Options) sockif.ReceiveResult {
	return sockif.ReceiveResult{Code: sockif.NotImplemented}
}
func (a *API) Shutdown(sockif.Handle, sockif.ShutdownDirection) sockif.Code {
	return sockif.NotImplemented
}
func (a *API) Close(sockif.Handle) error                      { return errUnsupported }
func (a *API) SetBlocking(sockif.Handle, bool) error           { return errUnsupported }
func (a *API) SetOption(sockif.Handle, sockif.Options) error   { return errUnsupported }
func (a *API) GetOption(sockif.Handle) (sockif.Options, error) { return sockif.Options{}, errUnsupported }
func (a *API) Pair(sockif.Transport) (sockif.Handle, sockif.Handle, error) {
	return sockif.Invalid, sockif.Invalid, errUnsupported
}

var _ sockif.API = (*API)(nil)
