// Package clock provides a swappable monotonic time source for scheduling
// and TTL arithmetic, so collector and scheduler tests can run without
// real sleeps.
package clock

import "github.com/jonboulle/clockwork"

// Clock is the time source used throughout the collection engine.
type Clock = clockwork.Clock

// New returns the real wall clock.
func New() Clock {
	return clockwork.NewRealClock()
}

// NewFake returns a fake clock for tests; advance it with clock.Advance.
func NewFake() clockwork.FakeClock {
	return clockwork.NewFakeClock()
}
