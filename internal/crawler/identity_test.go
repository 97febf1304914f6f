package crawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplerDeterministicWithSeed(t *testing.T) {
	a := NewSampler(7)
	b := NewSampler(7)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Pick(), b.Pick())
	}
}

func TestSamplerDrawsFromPools(t *testing.T) {
	s := NewSampler(1)
	for i := 0; i < 50; i++ {
		id := s.Pick()
		assert.Contains(t, userAgents, id.UserAgent)
		found := false
		for _, vp := range viewports {
			if vp[0] == id.ViewportWidth && vp[1] == id.ViewportHeight {
				found = true
				break
			}
		}
		require.True(t, found, "viewport %dx%d not in pool", id.ViewportWidth, id.ViewportHeight)
	}
}

func TestSamplerDelayBounds(t *testing.T) {
	s := NewSampler(3)
	min, max := 2*time.Second, 5*time.Second
	for i := 0; i < 100; i++ {
		d := s.Delay(min, max)
		assert.GreaterOrEqual(t, d, min)
		assert.LessOrEqual(t, d, max)
	}
}

func TestSamplerDelayDegenerateRange(t *testing.T) {
	s := NewSampler(3)
	assert.Equal(t, 4*time.Second, s.Delay(4*time.Second, 4*time.Second))
	assert.Equal(t, 4*time.Second, s.Delay(4*time.Second, time.Second))
}
