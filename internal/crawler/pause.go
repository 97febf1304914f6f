package crawler

import (
	"context"
	"time"
)

// TimerPause implements PauseController with a real timer, honoring context
// cancellation.
type TimerPause struct{}

// Pause blocks for d or until the context ends, whichever comes first.
func (TimerPause) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
