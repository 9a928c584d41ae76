package sync

import "time"

// Timer is a cancellable pending callback.
type Timer interface {
	// Stop cancels the timer; it reports false when the callback already
	// fired or was stopped before.
	Stop() bool
}

// Scheduler owns timer creation so tests can substitute virtual time.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) Timer
}

type wallClock struct{}

// NewScheduler returns the wall-clock scheduler used in production.
func NewScheduler() Scheduler { return wallClock{} }

func (wallClock) Schedule(d time.Duration, fn func()) Timer {
	return wallTimer{t: time.AfterFunc(d, fn)}
}

type wallTimer struct {
	t *time.Timer
}

func (w wallTimer) Stop() bool { return w.t.Stop() }
