package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// stealthScript masks the usual automation fingerprints before any page
// script runs.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
Object.defineProperty(navigator, 'languages', { get: () => ['en-GB', 'en'] });
window.chrome = { runtime: {}, loadTimes: function() {}, csi: function() {}, app: {} };
const originalQuery = window.navigator.permissions.query;
window.navigator.permissions.query = (parameters) =>
    parameters.name === 'notifications'
        ? Promise.resolve({ state: Notification.permission })
        : originalQuery(parameters);
`

// Post-navigation settle window, letting client-side rendering finish.
const (
	settleMin = 1 * time.Second
	settleMax = 2500 * time.Millisecond
)

// BrowserConfig controls the headless browser tier.
type BrowserConfig struct {
	NavTimeout time.Duration
}

// BrowserFetcher renders pages with headless Chrome via chromedp, overriding
// the user agent, viewport, and timezone per sampled identity and injecting
// the stealth init script.
type BrowserFetcher struct {
	cfg         BrowserConfig
	allocator   context.Context
	allocCancel context.CancelFunc
	sampler     *Sampler
	pause       PauseController
}

// NewBrowserFetcher creates the browser tier with its exec allocator.
func NewBrowserFetcher(cfg BrowserConfig, sampler *Sampler, pause PauseController) *BrowserFetcher {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 45 * time.Second
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.NoSandbox,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("ignore-certificate-errors", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &BrowserFetcher{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		sampler:     sampler,
		pause:       pause,
	}
}

// Close cancels the allocator context, tearing down the browser.
func (f *BrowserFetcher) Close() {
	f.allocCancel()
}

// Fetch navigates with a fresh browser context and returns the rendered DOM.
func (f *BrowserFetcher) Fetch(ctx context.Context, rawURL string, id Identity) (Page, error) {
	taskCtx, taskCancel := chromedp.NewContext(f.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, f.cfg.NavTimeout)
	defer cancel()

	stop := forwardCancel(ctx, taskCancel)
	defer stop()

	meta := newResponseMeta()
	chromedp.ListenTarget(taskCtx, meta.captureEvent)

	var (
		html     string
		finalURL string
	)
	actions := []chromedp.Action{
		f.setupAction(id),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		f.settleAction(),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return Page{}, fmt.Errorf("browser fetch: %w", err)
	}

	status, responseURL := meta.snapshot(rawURL, finalURL)
	return Page{
		FinalURL:   responseURL,
		StatusCode: status,
		HTML:       html,
	}, nil
}

func (f *BrowserFetcher) setupAction(id Identity) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if err := emulation.SetUserAgentOverride(id.UserAgent).
			WithAcceptLanguage("en-GB,en;q=0.9").Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		if err := network.SetExtraHTTPHeaders(toNetworkHeaders(stealthHeaders)).Do(ctx); err != nil {
			return fmt.Errorf("set extra headers: %w", err)
		}
		if err := emulation.SetDeviceMetricsOverride(
			int64(id.ViewportWidth), int64(id.ViewportHeight), 1, false,
		).Do(ctx); err != nil {
			return fmt.Errorf("set device metrics: %w", err)
		}
		if err := emulation.SetTimezoneOverride("Europe/London").Do(ctx); err != nil {
			return fmt.Errorf("set timezone: %w", err)
		}
		if _, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx); err != nil {
			return fmt.Errorf("inject stealth script: %w", err)
		}
		return nil
	})
}

func (f *BrowserFetcher) settleAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		return f.pause.Pause(ctx, f.sampler.Delay(settleMin, settleMax))
	})
}

// forwardCancel propagates cancellation from the caller's context into the
// chromedp task context.
func forwardCancel(ctx context.Context, cancel context.CancelFunc) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// responseMeta captures the document response status from the CDP network
// event stream.
type responseMeta struct {
	mu     sync.RWMutex
	status int
	url    string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.mu.Lock()
	m.status = int(resp.Response.Status)
	m.url = resp.Response.URL
	m.mu.Unlock()
}

func (m *responseMeta) snapshot(requestURL, finalURL string) (int, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	url := m.url
	switch {
	case url != "":
	case finalURL != "":
		url = finalURL
	default:
		url = requestURL
	}
	status := m.status
	if status == 0 {
		status = 200
	}
	return status, url
}

func toNetworkHeaders(h map[string]string) network.Headers {
	headers := network.Headers{}
	for key, value := range h {
		headers[key] = value
	}
	return headers
}
