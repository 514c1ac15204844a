//go:build !linux

package proactor

import "errors"

var errNoProactorBackend = errors.New("proactor: no completion-based ring on this platform")

type stubRing struct{}

func newRing(int) (ring, error) {
	return &stubRing{}, nil
}

func (*stubRing) submit(uint64, Submission) error { return errNoProactorBackend }
func (*stubRing) reap(int) ([]ringCompletion, error) { return nil, errNoProactorBackend }
func (*stubRing) cancel(uint64) error { return errNoProactorBackend }
func (*stubRing) close() error { return nil }
