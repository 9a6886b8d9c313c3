package service

import "time"

// Clock stamps status reports.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports At. Used to make CheckedAt deterministic.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }
