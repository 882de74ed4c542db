// Package schedule triggers periodic pipeline runs and supplies the time source they read.
package schedule

import "time"

// Clock is the time source used for operating-window decisions.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }
