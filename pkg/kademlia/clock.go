package kademlia

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Clock supplies monotonic time to the core so tests can control timers
// and deadlines deterministically instead of sleeping in wall-clock time.
// It is the minimal subset of github.com/benbjohnson/clock.Clock the core
// needs.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	Timer(d time.Duration) *clock.Timer
	Ticker(d time.Duration) *clock.Ticker
}

// RealClock wraps github.com/benbjohnson/clock.New(), the wall-clock
// implementation used in production; tests use clock.NewMock() instead,
// which satisfies the same interface.
func RealClock() Clock { return clock.New() }
