package ledgersim

import (
	"sync"
	"time"
)

// ClockTimer reads the wall clock as unix seconds
type ClockTimer struct{}

// Time returns the current unix time
func (ClockTimer) Time() int64 {
	return time.Now().Unix()
}

// CtlTimer is a manually driven clock for tests and the dev network. The
// protocol assumes a monotonic clock, so callers should only move it
// forward.
type CtlTimer struct {
	rw  sync.RWMutex
	now int64
}

// NewCtlTimer creates a CtlTimer starting at the given unix time
func NewCtlTimer(start int64) *CtlTimer {
	return &CtlTimer{now: start}
}

// Time returns the current time of the timer
func (t *CtlTimer) Time() int64 {
	t.rw.RLock()
	defer t.rw.RUnlock()
	return t.now
}

// CtlSetTime sets the current time of the timer
func (t *CtlTimer) CtlSetTime(now int64) {
	t.rw.Lock()
	defer t.rw.Unlock()
	t.now = now
}

// CtlAdvance moves the timer forward by d seconds
func (t *CtlTimer) CtlAdvance(d int64) {
	t.rw.Lock()
	defer t.rw.Unlock()
	t.now += d
}
