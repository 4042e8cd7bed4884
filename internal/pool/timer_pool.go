// Package pool holds the sync.Pool backed helpers used on the transfer paths.
package pool

import (
	"sync"
	"time"
)

var timerPool sync.Pool

// GetTimer returns a timer for the given duration d from the pool.
//
// Return the timer to the pool with PutTimer.
func GetTimer(d time.Duration) *time.Timer {
	if v := timerPool.Get(); v != nil {
		t, _ := v.(*time.Timer)
		if t.Reset(d) {
			select {
			case <-t.C:
			default:
			}
		}

		return t
	}

	return time.NewTimer(d)
}

// PutTimer returns t to the pool. t cannot be used afterwards.
func PutTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	timerPool.Put(t)
}

// Pause waits for d or until done is closed, whichever comes first. It reports
// whether the full duration elapsed.
func Pause(d time.Duration, done <-chan struct{}) bool {
	if d <= 0 {
		return true
	}

	t := GetTimer(d)
	defer PutTimer(t)

	select {
	case <-t.C:
		return true
	case <-done:
		return false
	}
}
