//go:build !linux

package reactor

import "errors"

// stubBackend is the portable fallback for platforms without epoll. It
// keeps the package importable (e.g. for unit tests that only exercise
// the detach/watermark/callback bookkeeping) but cannot actually multiplex
// readiness; wait returns errNoReadinessBackend at once, without waiting.
type stubBackend struct{}

func newPollerBackend() (pollerBackend, error) {
	return &stubBackend{}, nil
}

var errNoReadinessBackend = errors.New("reactor: no readiness multiplexer on this platform")

func (*stubBackend) add(int32, bool, bool, bool) error    { return nil }
func (*stubBackend) modify(int32, bool, bool, bool) error { return nil }
func (*stubBackend) remove(int32) error                   { return nil }

func (*stubBackend) wait(timeoutMs int) ([]readyEvent, error) {
	return nil, errNoReadinessBackend
}

func (*stubBackend) close() error { return nil }
