package crawler

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// Browser-like headers sent with every static request. The user-agent comes
// from the sampled identity, not from here.
var stealthHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-GB,en;q=0.9",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
}

// StaticConfig controls the static fetch tier.
type StaticConfig struct {
	RespectRobots bool
	Timeout       time.Duration
}

// StaticFetcher is the first-tier probe: a plain HTTP GET through colly with
// browser-like headers. Cheap, but blind to JavaScript.
type StaticFetcher struct {
	cfg           StaticConfig
	baseCollector *colly.Collector
}

// NewStaticFetcher builds the static tier.
func NewStaticFetcher(cfg StaticConfig) *StaticFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	return &StaticFetcher{cfg: cfg, baseCollector: c}
}

// Fetch executes a single GET. A response with any HTTP status is a fetch
// success at this layer; classification is the crawler's job. Only transport
// failures return an error.
func (f *StaticFetcher) Fetch(ctx context.Context, rawURL string, id Identity) (Page, error) {
	collector := f.baseCollector.Clone()
	collector.UserAgent = id.UserAgent
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		page     Page
		got      bool
		fetchErr error
	)
	collector.OnRequest(func(r *colly.Request) {
		for key, value := range stealthHeaders {
			r.Headers.Set(key, value)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		page = Page{
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			HTML:       string(r.Body),
		}
		got = true
	})
	collector.OnError(func(r *colly.Response, err error) {
		// Non-2xx responses land here with the body intact; keep them so
		// the block detector can inspect status and content.
		if r != nil && r.StatusCode > 0 {
			page = Page{
				FinalURL:   r.Request.URL.String(),
				StatusCode: r.StatusCode,
				HTML:       string(r.Body),
			}
			got = true
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return Page{}, fmt.Errorf("static fetch canceled: %w", ctx.Err())
	case err := <-done:
		if got {
			return page, nil
		}
		if fetchErr != nil {
			return Page{}, fmt.Errorf("static fetch: %w", fetchErr)
		}
		if err != nil {
			return Page{}, fmt.Errorf("static fetch: %w", err)
		}
		return Page{}, fmt.Errorf("static fetch %s: no response", rawURL)
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
