package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestNextRun(t *testing.T) {
	cases := []struct {
		name string
		now  time.Time
		hour int
		want time.Time
	}{
		{
			name: "later today",
			now:  time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC),
			hour: 8,
			want: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		},
		{
			name: "already passed rolls to tomorrow",
			now:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			hour: 8,
			want: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly at the hour rolls to tomorrow",
			now:  time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
			hour: 8,
			want: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		},
		{
			name: "midnight hour",
			now:  time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC),
			hour: 0,
			want: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "month boundary",
			now:  time.Date(2026, 2, 28, 10, 0, 0, 0, time.UTC),
			hour: 8,
			want: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, nextRun(tc.now, tc.hour))
		})
	}
}

func TestRunRejectsBadHour(t *testing.T) {
	s := New(fixedClock{now: time.Now()}, zap.NewNop())
	err := s.Run(context.Background(), 24, func(context.Context) {})
	require.Error(t, err)
	err = s.Run(context.Background(), -1, func(context.Context) {})
	require.Error(t, err)
}

func TestRunCanceledBeforeFirstFire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(fixedClock{now: time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)}, zap.NewNop())
	fired := false
	err := s.Run(ctx, 8, func(context.Context) { fired = true })
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, fired)
}

func TestRunFiresWhenDue(t *testing.T) {
	// Clock pinned a hair before the hour so the timer fires immediately;
	// the job cancels the context to stop after one fire.
	now := time.Date(2026, 3, 1, 7, 59, 59, 999000000, time.UTC)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(fixedClock{now: now}, zap.NewNop())
	fires := 0
	err := s.Run(ctx, 8, func(context.Context) {
		fires++
		cancel()
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, fires)
}
