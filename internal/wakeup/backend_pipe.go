//go:build !linux

package wakeup

func newBackend() (backend, error) {
	return newPipeBackend()
}
