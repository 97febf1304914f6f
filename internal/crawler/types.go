package crawler

import (
	"context"
	"fmt"
	"time"
)

// State names the fetch state machine positions, used in logs and metrics.
type State string

// Fetch lifecycle states.
const (
	StatePending   State = "pending"
	StateFetching  State = "fetching"
	StateSuccess   State = "success"
	StateBlocked   State = "blocked"
	StateTransient State = "transient_error"
)

// Kind classifies a terminal fetch failure.
type Kind string

// Failure kinds reported after the retry budget is spent.
const (
	KindBlocked Kind = "blocked"
	KindNetwork Kind = "network"
)

// Target identifies one page to fetch.
type Target struct {
	URL  string
	Slug string
	Site string
}

// Result is a successful fetch: the raw markup plus redirect and timing
// metadata. The crawler never writes it anywhere; persistence belongs to the
// caller.
type Result struct {
	URL        string
	FinalURL   string
	HTML       string
	StatusCode int
	FetchedAt  time.Time
	Attempts   int
	Identity   Identity
	Promoted   bool
}

// FetchError reports a fetch that exhausted its retry budget.
type FetchError struct {
	Kind       Kind
	Attempts   int
	LastStatus int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch failed (%s) after %d attempts: %v", e.Kind, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch failed (%s) after %d attempts, last status %d", e.Kind, e.Attempts, e.LastStatus)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Page is what a fetch tier returns: the document plus the final URL after
// redirects and the HTTP status of the document response.
type Page struct {
	FinalURL   string
	StatusCode int
	HTML       string
}

// Fetcher is one fetch tier (static HTTP or headless browser).
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, id Identity) (Page, error)
}

// PauseController abstracts every artificial wait the crawler performs, so
// tests never sleep on the wall clock.
type PauseController interface {
	Pause(ctx context.Context, d time.Duration) error
}

// RetryPolicy decides whether a failed attempt earns another one and how long
// to wait before it.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Wait(attempt int) time.Duration
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
