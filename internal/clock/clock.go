// Package clock supplies the current time, real or simulated. Every
// scheduling decision in the system reads time through this package so that
// admin time-travel and tests can shift the clock without touching logic.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the time source used across the system. clockwork.Clock in
// production, clockwork.FakeClock in tests.
type Clock = clockwork.Clock

// NewReal returns the wall clock.
func NewReal() Clock {
	return clockwork.NewRealClock()
}

// Offset wraps a Clock and shifts Now() by a fixed duration. Used for the
// admin time-travel mode: timers and tickers stay on the inner clock, only
// the observed instant moves.
type Offset struct {
	clockwork.Clock
	delta time.Duration
}

// WithOffset returns a Clock whose Now() is shifted by delta.
func WithOffset(inner Clock, delta time.Duration) *Offset {
	return &Offset{Clock: inner, delta: delta}
}

func (o *Offset) Now() time.Time {
	return o.Clock.Now().Add(o.delta)
}

func (o *Offset) Since(t time.Time) time.Duration {
	return o.Now().Sub(t)
}

func (o *Offset) Until(t time.Time) time.Duration {
	return t.Sub(o.Now())
}
