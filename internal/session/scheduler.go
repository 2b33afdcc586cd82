package session

import "time"

// Scheduler abstracts one-shot timer scheduling so tests can drive the
// machine deterministically.
type Scheduler interface {
	// After runs fn once after d and returns a cancel function.
	After(d time.Duration, fn func()) (cancel func())
}

type timerScheduler struct{}

// NewTimerScheduler returns the production scheduler backed by time.AfterFunc.
func NewTimerScheduler() Scheduler { return timerScheduler{} }

func (timerScheduler) After(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}
