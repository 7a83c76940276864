package engine

import "time"

// Clock abstracts time so cooldowns and time-based exits are testable.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
