package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/plexfield/pagewatch/internal/content"
	"github.com/plexfield/pagewatch/internal/crawler"
	"github.com/plexfield/pagewatch/internal/snapshot"
	"github.com/plexfield/pagewatch/internal/textdiff"
)

type fakeCrawler struct {
	html    map[string]string
	errs    map[string]error
	onFetch func()
	fetched []string
}

func (f *fakeCrawler) Fetch(_ context.Context, target crawler.Target) (*crawler.Result, error) {
	f.fetched = append(f.fetched, target.URL)
	if f.onFetch != nil {
		f.onFetch()
	}
	if err, ok := f.errs[target.URL]; ok {
		return nil, err
	}
	return &crawler.Result{
		URL:        target.URL,
		FinalURL:   target.URL,
		HTML:       f.html[target.URL],
		StatusCode: 200,
		FetchedAt:  time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC),
		Attempts:   1,
	}, nil
}

type recordingArchive struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (a *recordingArchive) Save(_ context.Context, key string, _ []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	a.keys = append(a.keys, key)
	return "file:///" + key, nil
}

type stubHasher struct{}

func (stubHasher) Hash(data []byte) (string, error) {
	return fmt.Sprintf("hash-%d", len(data)), nil
}

type stubIDs struct{ id string }

func (s stubIDs) NewID() (string, error) { return s.id, nil }

type tickingClock struct {
	now  time.Time
	step time.Duration
}

func (c *tickingClock) Now() time.Time {
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

func newTestClock() *tickingClock {
	return &tickingClock{
		now:  time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC),
		step: time.Second,
	}
}

func pageHTML(body string) string {
	return "<html><head><title>Arsenal Tickets</title></head><body><h1>Arsenal</h1><p>" + body + "</p></body></html>"
}

func seedPair(t *testing.T, store snapshot.Store) {
	t.Helper()
	require.NoError(t, store.SeedPages(context.Background(), []snapshot.PageSeed{
		{URL: "https://oursite.com/arsenal", Site: snapshot.SiteSelf, Slug: "arsenal"},
		{URL: "https://rival.com/arsenal", Site: snapshot.SiteCompetitor, Slug: "arsenal"},
	}))
}

func newTestRunner(store snapshot.Store, crawl Crawler, arc *recordingArchive, threshold float64) *Runner {
	return NewRunner(store, crawl, arc, stubHasher{}, stubIDs{id: "run-1"}, newTestClock(), threshold, zap.NewNop())
}

func TestRunnerFirstRunSnapshotsWithoutDiffs(t *testing.T) {
	store := snapshot.NewMemoryStore()
	seedPair(t, store)

	crawl := &fakeCrawler{html: map[string]string{
		"https://oursite.com/arsenal": pageHTML("Buy tickets for every home match."),
		"https://rival.com/arsenal":   pageHTML("Tickets and hospitality packages."),
	}}
	arc := &recordingArchive{}
	r := newTestRunner(store, crawl, arc, 5.0)

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.True(t, res.FinishedAt.After(res.StartedAt))
	require.Len(t, res.Processed, 2)
	assert.Empty(t, res.Failed)
	assert.Empty(t, res.Significant)

	for _, out := range res.Processed {
		assert.NotZero(t, out.SnapshotID)
		assert.Zero(t, out.DiffID, "first capture has no adjacent pair")
		assert.Equal(t, 1, out.Attempts)
	}

	require.Len(t, arc.keys, 2)
	assert.Contains(t, arc.keys[0], "arsenal/")
	assert.Contains(t, arc.keys[0], "20260301-060000.html")

	page, err := store.PageByURL(context.Background(), "https://oursite.com/arsenal")
	require.NoError(t, err)
	snaps, err := store.LatestSnapshots(context.Background(), page.ID, 5)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "Arsenal Tickets", snaps[0].Title)
	assert.NotEmpty(t, snaps[0].ContentHash)
}

func TestRunnerSecondRunDiffsAdjacentPair(t *testing.T) {
	store := snapshot.NewMemoryStore()
	seedPair(t, store)

	oldBody := "Buy tickets for every home match. Prices start at forty pounds."
	newBody := "Buy tickets for every home match. Hospitality packages now include lounge access and a stadium tour."
	crawl := &fakeCrawler{html: map[string]string{
		"https://oursite.com/arsenal": pageHTML(oldBody),
		"https://rival.com/arsenal":   pageHTML("Static competitor copy."),
	}}
	r := newTestRunner(store, crawl, &recordingArchive{}, 5.0)

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	crawl.html["https://oursite.com/arsenal"] = pageHTML(newBody)
	res, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Significant, 1)
	ev := res.Significant[0]
	assert.Equal(t, "arsenal", ev.Page.Slug)
	assert.Equal(t, snapshot.SiteSelf, ev.Page.Site)
	assert.NotZero(t, ev.DiffID)
	assert.Greater(t, ev.ChangePct, 5.0)
	assert.Greater(t, ev.NewWordCount, ev.OldWordCount)
	assert.NotEmpty(t, ev.Added)
	assert.NotEmpty(t, ev.Removed)
	assert.NotEmpty(t, ev.oldText)
	assert.NotEmpty(t, ev.newText)
	assert.False(t, ev.DetectedAt.IsZero())

	page, err := store.PageByURL(context.Background(), "https://oursite.com/arsenal")
	require.NoError(t, err)
	diff, err := store.LatestDiff(context.Background(), page.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.DiffID, diff.ID)
	assert.Equal(t, ev.ChangePct, diff.ChangePct)

	compPage, err := store.PageByURL(context.Background(), "https://rival.com/arsenal")
	require.NoError(t, err)
	compDiff, err := store.LatestDiff(context.Background(), compPage.ID)
	require.NoError(t, err, "unchanged page still persists its diff")
	assert.Zero(t, compDiff.ChangePct)
}

func TestRunnerThresholdIsStrict(t *testing.T) {
	store := snapshot.NewMemoryStore()
	require.NoError(t, store.SeedPages(context.Background(), []snapshot.PageSeed{
		{URL: "https://oursite.com/arsenal", Site: snapshot.SiteSelf, Slug: "arsenal"},
	}))

	oldBody := "Buy tickets for every home match. Prices start at forty pounds."
	newBody := "Buy tickets for every home match. Prices start at fifty pounds."
	oldText := extractText(t, pageHTML(oldBody), "https://oursite.com/arsenal")
	newText := extractText(t, pageHTML(newBody), "https://oursite.com/arsenal")
	pct := textdiff.Compare(oldText, newText).ChangePct
	require.Greater(t, pct, 0.0)

	crawl := &fakeCrawler{html: map[string]string{
		"https://oursite.com/arsenal": pageHTML(oldBody),
	}}
	// Threshold set to the exact change percentage: equal is not enough.
	r := newTestRunner(store, crawl, &recordingArchive{}, pct)

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	crawl.html["https://oursite.com/arsenal"] = pageHTML(newBody)
	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, res.Significant)
	require.Len(t, res.Processed, 1)
	assert.Equal(t, pct, res.Processed[0].ChangePct)
	assert.NotZero(t, res.Processed[0].DiffID, "diff persisted even below threshold")
}

func TestRunnerFetchFailuresRecordedAndRunContinues(t *testing.T) {
	store := snapshot.NewMemoryStore()
	seedPair(t, store)

	crawl := &fakeCrawler{
		html: map[string]string{
			"https://rival.com/arsenal": pageHTML("Competitor copy."),
		},
		errs: map[string]error{
			"https://oursite.com/arsenal": &crawler.FetchError{
				Kind:       crawler.KindBlocked,
				Attempts:   3,
				LastStatus: 403,
			},
		},
	}
	r := newTestRunner(store, crawl, &recordingArchive{}, 5.0)

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Failed, 1)
	f := res.Failed[0]
	assert.Equal(t, StageFetch, f.Stage)
	assert.Equal(t, ReasonBlocked, f.Reason)
	assert.Equal(t, 3, f.Attempts)
	assert.Equal(t, "https://oursite.com/arsenal", f.Page.URL)

	require.Len(t, res.Processed, 1)
	assert.Equal(t, "https://rival.com/arsenal", res.Processed[0].Page.URL)
}

func TestRunnerMalformedDocumentIsExtractFailure(t *testing.T) {
	store := snapshot.NewMemoryStore()
	require.NoError(t, store.SeedPages(context.Background(), []snapshot.PageSeed{
		{URL: "https://oursite.com/arsenal", Site: snapshot.SiteSelf, Slug: "arsenal"},
	}))

	crawl := &fakeCrawler{html: map[string]string{
		"https://oursite.com/arsenal": "   ",
	}}
	r := newTestRunner(store, crawl, &recordingArchive{}, 5.0)

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, StageExtract, res.Failed[0].Stage)
	assert.Equal(t, ReasonMalformed, res.Failed[0].Reason)
	assert.Empty(t, res.Processed)
}

func TestRunnerArchiveFailureIsNotFatal(t *testing.T) {
	store := snapshot.NewMemoryStore()
	require.NoError(t, store.SeedPages(context.Background(), []snapshot.PageSeed{
		{URL: "https://oursite.com/arsenal", Site: snapshot.SiteSelf, Slug: "arsenal"},
	}))

	crawl := &fakeCrawler{html: map[string]string{
		"https://oursite.com/arsenal": pageHTML("Body copy."),
	}}
	arc := &recordingArchive{err: fmt.Errorf("bucket unavailable")}
	r := newTestRunner(store, crawl, arc, 5.0)

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Processed, 1)
	assert.Empty(t, res.Failed)
}

func TestRunnerCancellationBetweenPages(t *testing.T) {
	store := snapshot.NewMemoryStore()
	seedPair(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	crawl := &fakeCrawler{
		html: map[string]string{
			"https://oursite.com/arsenal": pageHTML("Self copy."),
			"https://rival.com/arsenal":   pageHTML("Competitor copy."),
		},
		onFetch: cancel,
	}
	r := newTestRunner(store, crawl, &recordingArchive{}, 5.0)

	res, err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Len(t, res.Processed, 1, "the in-flight page completes, the next never starts")
	assert.Len(t, crawl.fetched, 1)
	assert.False(t, res.FinishedAt.IsZero())
}

func extractText(t *testing.T, rawHTML, pageURL string) string {
	t.Helper()
	extracted, err := content.Extract(rawHTML, pageURL)
	require.NoError(t, err)
	return extracted.CleanText
}
