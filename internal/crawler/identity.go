package crawler

import (
	"math/rand"
	"sync"
	"time"
)

// userAgents is the client identity pool rotated across fetch attempts.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:124.0) Gecko/20100101 Firefox/124.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_3_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36 Edg/121.0.0.0",
}

var viewports = [][2]int{
	{1920, 1080},
	{1440, 900},
	{1366, 768},
	{1280, 800},
}

// Identity is one randomized client fingerprint: a user-agent string and a
// viewport size drawn from the pools.
type Identity struct {
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
}

// Sampler draws identities and delays from a seedable random source. A fixed
// seed makes every draw reproducible, which tests rely on.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler creates a Sampler. Seed zero means seed from the current time.
func NewSampler(seed int64) *Sampler {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Sampler{rng: rand.New(rand.NewSource(seed))}
}

// Pick draws one identity from the pools.
func (s *Sampler) Pick() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	ua := userAgents[s.rng.Intn(len(userAgents))]
	vp := viewports[s.rng.Intn(len(viewports))]
	return Identity{UserAgent: ua, ViewportWidth: vp[0], ViewportHeight: vp[1]}
}

// Delay draws a duration uniformly from [min, max].
func (s *Sampler) Delay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return min + time.Duration(s.rng.Int63n(int64(max-min)+1))
}
