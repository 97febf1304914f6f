package crawler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Config carries the crawl knobs threaded in from configuration.
type Config struct {
	DelayMin    time.Duration
	DelayMax    time.Duration
	MaxRetries  int
	RetryWait   time.Duration
	BrowserOnly bool
}

// Crawler runs the fetch state machine for one page at a time: politeness
// delay, static probe, block classification, optional browser promotion, and
// fixed-wait retry within the attempt budget.
type Crawler struct {
	cfg     Config
	static  Fetcher
	browser Fetcher
	blocks  BlockDetector
	shell   *ShellDetector
	policy  RetryPolicy
	pause   PauseController
	sampler *Sampler
	clock   Clock
	logger  *zap.Logger
}

// New constructs a Crawler. The browser tier may be nil, in which case no
// promotion happens and BrowserOnly is ignored.
func New(
	cfg Config,
	static Fetcher,
	browser Fetcher,
	shell *ShellDetector,
	policy RetryPolicy,
	pause PauseController,
	sampler *Sampler,
	clock Clock,
	logger *zap.Logger,
) *Crawler {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	return &Crawler{
		cfg:     cfg,
		static:  static,
		browser: browser,
		shell:   shell,
		policy:  policy,
		pause:   pause,
		sampler: sampler,
		clock:   clock,
		logger:  logger,
	}
}

// Fetch retrieves one page. On success it returns the raw markup with fetch
// metadata; once the retry budget is spent it returns a *FetchError carrying
// the failure kind and attempt count. Fetch never touches storage.
func (c *Crawler) Fetch(ctx context.Context, target Target) (*Result, error) {
	var (
		lastKind   = KindNetwork
		lastStatus int
		lastErr    error
	)
	start := time.Now()

	state := StatePending
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		// The politeness delay precedes every attempt, retries included.
		if err := c.pause.Pause(ctx, c.sampler.Delay(c.cfg.DelayMin, c.cfg.DelayMax)); err != nil {
			return nil, err
		}

		identity := c.sampler.Pick()
		state = StateFetching
		c.logger.Debug("fetching page",
			zap.String("url", target.URL),
			zap.String("slug", target.Slug),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", c.cfg.MaxRetries),
			zap.String("user_agent", identity.UserAgent),
		)
		TotalAttempts.Inc()

		page, promoted, err := c.attempt(ctx, target.URL, identity)
		switch {
		case err != nil:
			state = StateTransient
			lastKind, lastStatus, lastErr = KindNetwork, 0, err
			TotalNetworkErrors.Inc()
			c.logger.Warn("fetch attempt failed",
				zap.String("url", target.URL), zap.Int("attempt", attempt), zap.Error(err))
		case c.blocks.Blocked(page.StatusCode, page.HTML):
			state = StateBlocked
			lastKind, lastStatus, lastErr = KindBlocked, page.StatusCode, nil
			TotalBlocked.Inc()
			c.logger.Warn("fetch attempt blocked",
				zap.String("url", target.URL), zap.Int("attempt", attempt), zap.Int("status", page.StatusCode))
		default:
			state = StateSuccess
			TotalSuccesses.Inc()
			FetchDuration.Observe(time.Since(start).Seconds())
			c.logger.Info("page fetched",
				zap.String("url", target.URL),
				zap.Int("attempt", attempt),
				zap.Int("status", page.StatusCode),
				zap.Bool("promoted", promoted),
				zap.Int("bytes", len(page.HTML)),
			)
			return &Result{
				URL:        target.URL,
				FinalURL:   page.FinalURL,
				HTML:       page.HTML,
				StatusCode: page.StatusCode,
				FetchedAt:  c.clock.Now(),
				Attempts:   attempt,
				Identity:   identity,
				Promoted:   promoted,
			}, nil
		}

		probe := &FetchError{Kind: lastKind, Attempts: attempt, LastStatus: lastStatus, Err: lastErr}
		if !c.policy.ShouldRetry(probe, attempt) {
			break
		}
		if err := c.pause.Pause(ctx, c.policy.Wait(attempt)); err != nil {
			return nil, err
		}
	}

	c.logger.Error("fetch budget exhausted",
		zap.String("url", target.URL),
		zap.String("state", string(state)),
		zap.Int("attempts", c.cfg.MaxRetries),
	)
	return nil, &FetchError{
		Kind:       lastKind,
		Attempts:   c.cfg.MaxRetries,
		LastStatus: lastStatus,
		Err:        lastErr,
	}
}

// attempt runs one fetch through the static tier, promoting to the browser
// when the document looks like a JavaScript shell. BrowserOnly skips the
// probe entirely.
func (c *Crawler) attempt(ctx context.Context, rawURL string, id Identity) (Page, bool, error) {
	if c.cfg.BrowserOnly && c.browser != nil {
		page, err := c.browser.Fetch(ctx, rawURL, id)
		return page, true, err
	}

	page, err := c.static.Fetch(ctx, rawURL, id)
	if err != nil {
		return Page{}, false, err
	}
	if c.browser == nil || c.shell == nil {
		return page, false, nil
	}
	if c.blocks.Blocked(page.StatusCode, page.HTML) || !c.shell.NeedsBrowser(page.HTML) {
		return page, false, nil
	}

	TotalPromotions.Inc()
	c.logger.Debug("promoting to browser tier", zap.String("url", rawURL))
	rendered, err := c.browser.Fetch(ctx, rawURL, id)
	if err != nil {
		// The static body was a shell, but a failed render should not turn a
		// reachable page into a network failure.
		c.logger.Warn("browser promotion failed, keeping static body",
			zap.String("url", rawURL), zap.Error(err))
		return page, false, nil
	}
	return rendered, true, nil
}
