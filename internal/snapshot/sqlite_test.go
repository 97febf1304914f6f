package snapshot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plexfield/pagewatch/internal/content"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "pagewatch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteSeedAndLookup(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	require.NoError(t, store.SeedPages(ctx, []PageSeed{
		{URL: "https://example.com/tickets", Site: SiteSelf, Slug: "tickets"},
		{URL: "https://rival.com/tickets", Site: SiteCompetitor, Slug: "tickets"},
	}))
	// Idempotent re-seed.
	require.NoError(t, store.SeedPages(ctx, []PageSeed{
		{URL: "https://example.com/tickets", Site: SiteSelf, Slug: "tickets"},
	}))

	pages, err := store.Pages(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, SiteCompetitor, pages[0].Site)
	assert.Equal(t, SiteSelf, pages[1].Site)

	_, err = store.PageByURL(ctx, "https://example.com/nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteSnapshotAndDiffRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)
	page := seedOnePage(t, store)

	fetched := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	olderID, err := store.AppendSnapshot(ctx, &Snapshot{
		PageID:    page.ID,
		FetchedAt: fetched,
		RawHTML:   "<html><body>old</body></html>",
		CleanText: "The team won. We are proud.",
		WordCount: 6,
		Title:     "News",
		H1:        "Latest News",
		Headings:  []content.Heading{{Level: "h1", Text: "Latest News"}},
		InternalLinks: []string{"https://example.com/fixtures"},
		ContentHash:   "hash-a",
	})
	require.NoError(t, err)

	newerID, err := store.AppendSnapshot(ctx, &Snapshot{
		PageID:    page.ID,
		FetchedAt: fetched.Add(24 * time.Hour),
		CleanText: "The team won. We are thrilled. New stadium opens.",
		WordCount: 9,
		ContentHash: "hash-b",
	})
	require.NoError(t, err)
	assert.Greater(t, newerID, olderID)

	snaps, err := store.LatestSnapshots(ctx, page.ID, 5)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, newerID, snaps[0].ID)
	assert.Equal(t, olderID, snaps[1].ID)
	assert.Equal(t, []content.Heading{{Level: "h1", Text: "Latest News"}}, snaps[1].Headings)
	assert.Equal(t, []string{"https://example.com/fixtures"}, snaps[1].InternalLinks)

	diffID, err := store.AppendDiff(ctx, &Diff{
		PageID:     page.ID,
		OlderID:    olderID,
		NewerID:    newerID,
		ChangePct:  41.2,
		Added:      []string{"We are thrilled.", "New stadium opens."},
		Removed:    []string{"We are proud."},
		DetectedAt: fetched.Add(24 * time.Hour),
	})
	require.NoError(t, err)

	latest, err := store.LatestDiff(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, diffID, latest.ID)
	assert.Equal(t, 41.2, latest.ChangePct)
	assert.Equal(t, []string{"We are thrilled.", "New stadium opens."}, latest.Added)
	assert.Equal(t, []string{"We are proud."}, latest.Removed)
}
