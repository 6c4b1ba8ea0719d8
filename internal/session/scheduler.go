package session

import "time"

// Timer is a scheduled task that can be stopped before it fires.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type clockScheduler struct{}

func (clockScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Board is the renderer side of a session. Calls are made while the session
// lock is held, so implementations must not block or call back into it.
type Board interface {
	Render(position string)
	ResetToStart()
}

type nopBoard struct{}

func (nopBoard) Render(string) {}
func (nopBoard) ResetToStart() {}
