// Package schedule runs the monitoring job once per day at a fixed UTC hour.
package schedule

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Clock supplies the current time so tests control the schedule.
type Clock interface {
	Now() time.Time
}

// Scheduler blocks and fires a job daily.
type Scheduler struct {
	clock  Clock
	logger *zap.Logger
}

// New creates a Scheduler.
func New(clock Clock, logger *zap.Logger) *Scheduler {
	return &Scheduler{clock: clock, logger: logger}
}

// Run blocks, firing job once per day at hourUTC. The first fire is at the
// next occurrence of that hour. Cancellation between fires returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context, hourUTC int, job func(context.Context)) error {
	if hourUTC < 0 || hourUTC > 23 {
		return fmt.Errorf("schedule hour %d out of range", hourUTC)
	}

	for {
		now := s.clock.Now()
		next := nextRun(now, hourUTC)
		s.logger.Info("next scheduled run",
			zap.Time("at", next),
			zap.Duration("in", next.Sub(now)))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		s.logger.Info("scheduled run starting", zap.Int("hour_utc", hourUTC))
		job(ctx)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// nextRun returns the next occurrence of hourUTC strictly after now.
func nextRun(now time.Time, hourUTC int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hourUTC, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
