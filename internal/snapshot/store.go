// Package snapshot defines the append-only persistence layer for tracked
// pages, their content snapshots, and the diffs computed between adjacent
// snapshots. The Store interface deliberately exposes no update or delete
// operations: history is immutable once written.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/plexfield/pagewatch/internal/content"
)

// ErrNotFound reports a lookup that matched no row.
var ErrNotFound = errors.New("not found")

// Site values for a tracked page.
const (
	SiteSelf       = "self"
	SiteCompetitor = "competitor"
)

// segmentCap bounds how many added/removed sentences a persisted diff keeps
// per direction. In-memory diff results are never truncated.
const segmentCap = 50

// Page is one tracked URL. Each watch-list slug owns exactly two pages, one
// per site.
type Page struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	Site      string    `json:"site"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// PageSeed is the watch-list record used to upsert a Page.
type PageSeed struct {
	URL  string
	Site string
	Slug string
}

// Snapshot is one immutable capture of a page's extracted content.
type Snapshot struct {
	ID              int64             `json:"id"`
	PageID          int64             `json:"page_id"`
	FetchedAt       time.Time         `json:"fetched_at"`
	RawHTML         string            `json:"-"`
	CleanText       string            `json:"-"`
	WordCount       int               `json:"word_count"`
	Title           string            `json:"title"`
	H1              string            `json:"h1"`
	MetaDescription string            `json:"meta_description"`
	Headings        []content.Heading `json:"headings"`
	InternalLinks   []string          `json:"internal_links"`
	ContentHash     string            `json:"content_hash"`
}

// Diff records the change between two chronologically adjacent snapshots of
// the same page.
type Diff struct {
	ID         int64     `json:"id"`
	PageID     int64     `json:"page_id"`
	OlderID    int64     `json:"snapshot_old_id"`
	NewerID    int64     `json:"snapshot_new_id"`
	ChangePct  float64   `json:"change_pct"`
	Added      []string  `json:"added"`
	Removed    []string  `json:"removed"`
	DetectedAt time.Time `json:"detected_at"`
}

// Store is the append-only persistence boundary. Snapshots and diffs can be
// appended and read, never rewritten.
type Store interface {
	SeedPages(ctx context.Context, seeds []PageSeed) error
	PageByURL(ctx context.Context, url string) (*Page, error)
	Pages(ctx context.Context) ([]Page, error)
	AppendSnapshot(ctx context.Context, snap *Snapshot) (int64, error)
	LatestSnapshots(ctx context.Context, pageID int64, n int) ([]Snapshot, error)
	AppendDiff(ctx context.Context, diff *Diff) (int64, error)
	LatestDiff(ctx context.Context, pageID int64) (*Diff, error)
	Close() error
}

// ValidSite reports whether site is one of the two allowed values.
func ValidSite(site string) bool {
	return site == SiteSelf || site == SiteCompetitor
}

// capSegments truncates a segment list to the persistence cap.
func capSegments(segments []string) []string {
	if len(segments) > segmentCap {
		return segments[:segmentCap]
	}
	return segments
}

// joinSegments renders a capped segment list as one newline-joined column
// value.
func joinSegments(segments []string) string {
	return strings.Join(capSegments(segments), "\n")
}

// splitSegments is the inverse of joinSegments.
func splitSegments(column string) []string {
	if column == "" {
		return nil
	}
	return strings.Split(column, "\n")
}

// encodeHeadings renders headings as a JSON column value.
func encodeHeadings(headings []content.Heading) (string, error) {
	if len(headings) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(headings)
	if err != nil {
		return "", fmt.Errorf("encode headings: %w", err)
	}
	return string(raw), nil
}

func decodeHeadings(column string) ([]content.Heading, error) {
	if column == "" || column == "[]" {
		return nil, nil
	}
	var headings []content.Heading
	if err := json.Unmarshal([]byte(column), &headings); err != nil {
		return nil, fmt.Errorf("decode headings: %w", err)
	}
	return headings, nil
}

// encodeLinks renders internal links as a JSON column value.
func encodeLinks(links []string) (string, error) {
	if len(links) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(links)
	if err != nil {
		return "", fmt.Errorf("encode links: %w", err)
	}
	return string(raw), nil
}

func decodeLinks(column string) ([]string, error) {
	if column == "" || column == "[]" {
		return nil, nil
	}
	var links []string
	if err := json.Unmarshal([]byte(column), &links); err != nil {
		return nil, fmt.Errorf("decode links: %w", err)
	}
	return links, nil
}

func validateSeed(seed PageSeed) error {
	if seed.URL == "" {
		return fmt.Errorf("page seed: url is required")
	}
	if seed.Slug == "" {
		return fmt.Errorf("page seed %s: slug is required", seed.URL)
	}
	if !ValidSite(seed.Site) {
		return fmt.Errorf("page seed %s: site must be %q or %q", seed.URL, SiteSelf, SiteCompetitor)
	}
	return nil
}
