package session

import "time"

// Clock abstracts time for the manager so expiry math is testable
type Clock interface {
	Now() time.Time
}

// Scheduler runs a callback once after a delay. Schedule returns a cancel
// function; cancelling after the callback started is a no-op.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) (cancel func())
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type timerScheduler struct{}

func (timerScheduler) Schedule(delay time.Duration, fn func()) func() {
	t := time.AfterFunc(delay, fn)
	return func() { t.Stop() }
}
