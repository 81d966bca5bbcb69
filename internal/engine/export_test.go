package engine

import "time"

// SetClock replaces the clock used for circuit timing.
func (f *Fallback) SetClock(now func() time.Time) {
	f.now = now
}
