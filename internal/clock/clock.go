// Package clock provides helpers for time-related operations.
package clock

import (
	"context"
	"time"
)

// SleepWithContext waits for the duration or returns early if the context is canceled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Interval tracks when a recurring task last ran. It lets one scheduler loop
// drive several tasks with independent periods.
type Interval struct {
	every time.Duration
	last  time.Time
}

// NewInterval returns an Interval that is immediately due.
func NewInterval(every time.Duration) *Interval {
	return &Interval{every: every}
}

// Due reports whether the period has elapsed since the last Mark.
func (i *Interval) Due(now time.Time) bool {
	if i.last.IsZero() {
		return true
	}
	return now.Sub(i.last) >= i.every
}

// Mark records a run at now.
func (i *Interval) Mark(now time.Time) {
	i.last = now
}
