package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerPauseWaits(t *testing.T) {
	start := time.Now()
	err := TimerPause{}.Pause(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestTimerPauseHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := TimerPause{}.Pause(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTimerPauseZeroDuration(t *testing.T) {
	assert.NoError(t, TimerPause{}.Pause(context.Background(), 0))
}
