//go:build !unix

package wakeup

import "errors"

// chanBackend is a portable stub backend for platforms without eventfd or
// unix pipes (e.g. Windows). It has no pollable descriptor, matching the
// teacher's own build-tag-gated stub pattern for non-Linux platforms: real
// I/O multiplexing on those platforms is not a goal of this module.
type chanBackend struct {
	tokens chan struct{}
}

func newPipeBackend() (backend, error) {
	return &chanBackend{tokens: make(chan struct{}, 1<<20)}, nil
}

func (b *chanBackend) add(delta uint64) error {
	for i := uint64(0); i < delta; i++ {
		select {
		case b.tokens <- struct{}{}:
		default:
			return errors.New("wakeup: token channel full")
		}
	}
	return nil
}

func (b *chanBackend) drain(max uint64) (uint64, error) {
	var n uint64
	for n < max {
		select {
		case <-b.tokens:
			n++
		default:
			return n, nil
		}
	}
	return n, nil
}

func (b *chanBackend) fd() int { return -1 }

func (b *chanBackend) close() error { return nil }
