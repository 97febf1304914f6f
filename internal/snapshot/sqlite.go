package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS pages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT NOT NULL UNIQUE,
	site TEXT NOT NULL CHECK (site IN ('self', 'competitor')),
	slug TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	page_id INTEGER NOT NULL REFERENCES pages(id),
	fetched_at TIMESTAMP NOT NULL,
	raw_html TEXT NOT NULL DEFAULT '',
	clean_text TEXT NOT NULL DEFAULT '',
	word_count INTEGER NOT NULL DEFAULT 0,
	title TEXT NOT NULL DEFAULT '',
	h1 TEXT NOT NULL DEFAULT '',
	meta_description TEXT NOT NULL DEFAULT '',
	headings TEXT NOT NULL DEFAULT '[]',
	internal_links TEXT NOT NULL DEFAULT '[]',
	content_hash TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS diffs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	page_id INTEGER NOT NULL REFERENCES pages(id),
	snapshot_old_id INTEGER NOT NULL REFERENCES snapshots(id),
	snapshot_new_id INTEGER NOT NULL REFERENCES snapshots(id),
	change_pct REAL NOT NULL DEFAULT 0,
	added_text TEXT NOT NULL DEFAULT '',
	removed_text TEXT NOT NULL DEFAULT '',
	detected_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_page_time
	ON snapshots (page_id, fetched_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_diffs_page_time
	ON diffs (page_id, detected_at DESC);
`

// SQLiteStore is the default durable Store, backed by the pure-Go sqlite
// driver.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating parent directories if needed) the database
// at path, applies WAL and busy-timeout pragmas, and runs the migration.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?%s", path, url.Values{
		"_pragma": []string{
			"journal_mode(WAL)",
			"busy_timeout(5000)",
			"foreign_keys(ON)",
			"synchronous(NORMAL)",
		},
	}.Encode())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The driver serializes writes per connection; a single connection avoids
	// SQLITE_BUSY churn under WAL.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return nil
}

// SeedPages upserts the watch-list pages by URL in one transaction.
func (s *SQLiteStore) SeedPages(ctx context.Context, seeds []PageSeed) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO pages (url, site, slug, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET site = excluded.site, slug = excluded.slug`
	for _, seed := range seeds {
		if err := validateSeed(seed); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, seed.URL, seed.Site, seed.Slug, time.Now().UTC()); err != nil {
			return fmt.Errorf("seed page %s: %w", seed.URL, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}
	return nil
}

// PageByURL returns the page tracked at url, or ErrNotFound.
func (s *SQLiteStore) PageByURL(ctx context.Context, pageURL string) (*Page, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, site, slug, created_at FROM pages WHERE url = ?`, pageURL)
	var p Page
	if err := row.Scan(&p.ID, &p.URL, &p.Site, &p.Slug, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("page %s: %w", pageURL, ErrNotFound)
		}
		return nil, fmt.Errorf("query page %s: %w", pageURL, err)
	}
	return &p, nil
}

// Pages returns every tracked page ordered by slug, then site.
func (s *SQLiteStore) Pages(ctx context.Context) ([]Page, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, site, slug, created_at FROM pages ORDER BY slug, site`)
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.ID, &p.URL, &p.Site, &p.Slug, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}
	return pages, nil
}

// AppendSnapshot inserts one immutable snapshot and returns its ID.
func (s *SQLiteStore) AppendSnapshot(ctx context.Context, snap *Snapshot) (int64, error) {
	headings, err := encodeHeadings(snap.Headings)
	if err != nil {
		return 0, err
	}
	links, err := encodeLinks(snap.InternalLinks)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (page_id, fetched_at, raw_html, clean_text, word_count,
			title, h1, meta_description, headings, internal_links, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.PageID, snap.FetchedAt, snap.RawHTML, snap.CleanText, snap.WordCount,
		snap.Title, snap.H1, snap.MetaDescription, headings, links, snap.ContentHash)
	if err != nil {
		return 0, fmt.Errorf("append snapshot for page %d: %w", snap.PageID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("snapshot insert id: %w", err)
	}
	return id, nil
}

// LatestSnapshots returns up to n snapshots for the page, newest first.
func (s *SQLiteStore) LatestSnapshots(ctx context.Context, pageID int64, n int) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, page_id, fetched_at, raw_html, clean_text, word_count,
			title, h1, meta_description, headings, internal_links, content_hash
		FROM snapshots
		WHERE page_id = ?
		ORDER BY fetched_at DESC, id DESC
		LIMIT ?`, pageID, n)
	if err != nil {
		return nil, fmt.Errorf("query snapshots for page %d: %w", pageID, err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var (
			snap     Snapshot
			headings string
			links    string
		)
		if err := rows.Scan(&snap.ID, &snap.PageID, &snap.FetchedAt, &snap.RawHTML,
			&snap.CleanText, &snap.WordCount, &snap.Title, &snap.H1,
			&snap.MetaDescription, &headings, &links, &snap.ContentHash); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if snap.Headings, err = decodeHeadings(headings); err != nil {
			return nil, err
		}
		if snap.InternalLinks, err = decodeLinks(links); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snaps, nil
}

// AppendDiff inserts one diff row, capping segment lists at the persistence
// boundary, and returns its ID.
func (s *SQLiteStore) AppendDiff(ctx context.Context, diff *Diff) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO diffs (page_id, snapshot_old_id, snapshot_new_id, change_pct,
			added_text, removed_text, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		diff.PageID, diff.OlderID, diff.NewerID, diff.ChangePct,
		joinSegments(diff.Added), joinSegments(diff.Removed), diff.DetectedAt)
	if err != nil {
		return 0, fmt.Errorf("append diff for page %d: %w", diff.PageID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("diff insert id: %w", err)
	}
	return id, nil
}

// LatestDiff returns the most recent diff for the page, or ErrNotFound.
func (s *SQLiteStore) LatestDiff(ctx context.Context, pageID int64) (*Diff, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, page_id, snapshot_old_id, snapshot_new_id, change_pct,
			added_text, removed_text, detected_at
		FROM diffs
		WHERE page_id = ?
		ORDER BY detected_at DESC, id DESC
		LIMIT 1`, pageID)

	var (
		diff    Diff
		added   string
		removed string
	)
	if err := row.Scan(&diff.ID, &diff.PageID, &diff.OlderID, &diff.NewerID,
		&diff.ChangePct, &added, &removed, &diff.DetectedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("diff for page %d: %w", pageID, ErrNotFound)
		}
		return nil, fmt.Errorf("query latest diff for page %d: %w", pageID, err)
	}
	diff.Added = splitSegments(added)
	diff.Removed = splitSegments(removed)
	return &diff, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
