package proactor

import (
	"errors"
	"time"
)

var errRingFull = errors.New("proactor: submission queue full")

func durationFromMs(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
