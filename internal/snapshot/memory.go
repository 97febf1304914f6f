package snapshot

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process append-only arena. Snapshots live in one flat
// slice; a per-page index keeps their IDs in fetch-time order so ordered
// reads never re-sort the arena. Used by tests and available as an explicit
// provider for throwaway runs.
type MemoryStore struct {
	mu sync.Mutex

	pages      []Page
	pageByURL  map[string]int // index into pages
	nextPageID int64

	snapshots  []Snapshot
	snapByID   map[int64]int     // index into snapshots
	byPage     map[int64][]int64 // page ID -> snapshot IDs, (fetched_at, id) ascending
	nextSnapID int64

	diffs      []Diff
	nextDiffID int64
}

// NewMemoryStore creates an empty arena.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pageByURL:  make(map[string]int),
		snapByID:   make(map[int64]int),
		byPage:     make(map[int64][]int64),
		nextPageID: 1,
		nextSnapID: 1,
		nextDiffID: 1,
	}
}

// SeedPages upserts the watch-list pages by URL.
func (s *MemoryStore) SeedPages(_ context.Context, seeds []PageSeed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seed := range seeds {
		if err := validateSeed(seed); err != nil {
			return err
		}
		if i, ok := s.pageByURL[seed.URL]; ok {
			s.pages[i].Site = seed.Site
			s.pages[i].Slug = seed.Slug
			continue
		}
		page := Page{
			ID:        s.nextPageID,
			URL:       seed.URL,
			Site:      seed.Site,
			Slug:      seed.Slug,
			CreatedAt: time.Now().UTC(),
		}
		s.nextPageID++
		s.pages = append(s.pages, page)
		s.pageByURL[page.URL] = len(s.pages) - 1
	}
	return nil
}

// PageByURL returns the page tracked at url, or ErrNotFound.
func (s *MemoryStore) PageByURL(_ context.Context, pageURL string) (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.pageByURL[pageURL]
	if !ok {
		return nil, fmt.Errorf("page %s: %w", pageURL, ErrNotFound)
	}
	page := s.pages[i]
	return &page, nil
}

// Pages returns every tracked page ordered by slug, then site.
func (s *MemoryStore) Pages(_ context.Context) ([]Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages := make([]Page, len(s.pages))
	copy(pages, s.pages)
	sort.SliceStable(pages, func(i, j int) bool {
		if pages[i].Slug != pages[j].Slug {
			return pages[i].Slug < pages[j].Slug
		}
		return pages[i].Site < pages[j].Site
	})
	return pages, nil
}

// AppendSnapshot adds one snapshot to the arena and returns its ID.
func (s *MemoryStore) AppendSnapshot(_ context.Context, snap *Snapshot) (int64, error) {
	if snap == nil {
		return 0, fmt.Errorf("snapshot is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *snap
	stored.ID = s.nextSnapID
	s.nextSnapID++
	s.snapshots = append(s.snapshots, stored)
	s.snapByID[stored.ID] = len(s.snapshots) - 1

	// Keep the per-page index ordered by (fetched_at, id) ascending. Appends
	// normally land at the tail; out-of-order timestamps are inserted in place.
	ids := s.byPage[stored.PageID]
	pos := sort.Search(len(ids), func(i int) bool {
		other := s.snapshots[s.snapByID[ids[i]]]
		if !other.FetchedAt.Equal(stored.FetchedAt) {
			return other.FetchedAt.After(stored.FetchedAt)
		}
		return other.ID > stored.ID
	})
	ids = append(ids, 0)
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = stored.ID
	s.byPage[stored.PageID] = ids

	return stored.ID, nil
}

// LatestSnapshots returns up to n snapshots for the page, newest first.
func (s *MemoryStore) LatestSnapshots(_ context.Context, pageID int64, n int) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.byPage[pageID]
	if n > len(ids) {
		n = len(ids)
	}
	snaps := make([]Snapshot, 0, n)
	for i := len(ids) - 1; i >= len(ids)-n; i-- {
		snaps = append(snaps, s.snapshots[s.snapByID[ids[i]]])
	}
	return snaps, nil
}

// AppendDiff adds one diff to the arena, capping segment lists, and returns
// its ID.
func (s *MemoryStore) AppendDiff(_ context.Context, diff *Diff) (int64, error) {
	if diff == nil {
		return 0, fmt.Errorf("diff is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *diff
	stored.ID = s.nextDiffID
	s.nextDiffID++
	stored.Added = capSegments(append([]string(nil), diff.Added...))
	stored.Removed = capSegments(append([]string(nil), diff.Removed...))
	s.diffs = append(s.diffs, stored)
	return stored.ID, nil
}

// LatestDiff returns the most recent diff for the page, or ErrNotFound.
func (s *MemoryStore) LatestDiff(_ context.Context, pageID int64) (*Diff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *Diff
	for i := range s.diffs {
		d := &s.diffs[i]
		if d.PageID != pageID {
			continue
		}
		if latest == nil || d.DetectedAt.After(latest.DetectedAt) ||
			(d.DetectedAt.Equal(latest.DetectedAt) && d.ID > latest.ID) {
			latest = d
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("diff for page %d: %w", pageID, ErrNotFound)
	}
	out := *latest
	return &out, nil
}

// Close is a no-op for the arena.
func (s *MemoryStore) Close() error {
	return nil
}
