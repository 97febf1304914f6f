package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresMigration = `
CREATE TABLE IF NOT EXISTS pages (
	id BIGSERIAL PRIMARY KEY,
	url TEXT NOT NULL UNIQUE,
	site TEXT NOT NULL CHECK (site IN ('self', 'competitor')),
	slug TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	id BIGSERIAL PRIMARY KEY,
	page_id BIGINT NOT NULL REFERENCES pages(id),
	fetched_at TIMESTAMPTZ NOT NULL,
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
	id BIGSERIAL PRIMARY KEY,
	page_id BIGINT NOT NULL REFERENCES pages(id),
	snapshot_old_id BIGINT NOT NULL REFERENCES snapshots(id),
	snapshot_new_id BIGINT NOT NULL REFERENCES snapshots(id),
	change_pct DOUBLE PRECISION NOT NULL DEFAULT 0,
	added_text TEXT NOT NULL DEFAULT '',
	removed_text TEXT NOT NULL DEFAULT '',
	detected_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_page_time
	ON snapshots (page_id, fetched_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_diffs_page_time
	ON diffs (page_id, detected_at DESC);
`

// pgxPool is the pool surface the store uses; pgxmock satisfies it in tests.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool pgxPool
}

// NewPostgresStore connects to dsn and applies the migration.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("storage.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store := &PostgresStore{pool: pool}
	if _, err := pool.Exec(ctx, postgresMigration); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres schema: %w", err)
	}
	return store, nil
}

// NewPostgresStoreWithPool wraps an existing pool, primarily for testing.
func NewPostgresStoreWithPool(pool pgxPool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &PostgresStore{pool: pool}, nil
}

// SeedPages upserts the watch-list pages by URL.
func (s *PostgresStore) SeedPages(ctx context.Context, seeds []PageSeed) error {
	const query = `
		INSERT INTO pages (url, site, slug, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (url) DO UPDATE SET site = EXCLUDED.site, slug = EXCLUDED.slug`
	for _, seed := range seeds {
		if err := validateSeed(seed); err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, query, seed.URL, seed.Site, seed.Slug, time.Now().UTC()); err != nil {
			return fmt.Errorf("seed page %s: %w", seed.URL, err)
		}
	}
	return nil
}

// PageByURL returns the page tracked at url, or ErrNotFound.
func (s *PostgresStore) PageByURL(ctx context.Context, pageURL string) (*Page, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, url, site, slug, created_at FROM pages WHERE url = $1`, pageURL)
	var p Page
	if err := row.Scan(&p.ID, &p.URL, &p.Site, &p.Slug, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("page %s: %w", pageURL, ErrNotFound)
		}
		return nil, fmt.Errorf("query page %s: %w", pageURL, err)
	}
	return &p, nil
}

// Pages returns every tracked page ordered by slug, then site.
func (s *PostgresStore) Pages(ctx context.Context) ([]Page, error) {
	rows, err := s.pool.Query(ctx,
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
func (s *PostgresStore) AppendSnapshot(ctx context.Context, snap *Snapshot) (int64, error) {
	headings, err := encodeHeadings(snap.Headings)
	if err != nil {
		return 0, err
	}
	links, err := encodeLinks(snap.InternalLinks)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO snapshots (page_id, fetched_at, raw_html, clean_text, word_count,
			title, h1, meta_description, headings, internal_links, content_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		snap.PageID, snap.FetchedAt, snap.RawHTML, snap.CleanText, snap.WordCount,
		snap.Title, snap.H1, snap.MetaDescription, headings, links, snap.ContentHash,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("append snapshot for page %d: %w", snap.PageID, err)
	}
	return id, nil
}

// LatestSnapshots returns up to n snapshots for the page, newest first.
func (s *PostgresStore) LatestSnapshots(ctx context.Context, pageID int64, n int) ([]Snapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, page_id, fetched_at, raw_html, clean_text, word_count,
			title, h1, meta_description, headings, internal_links, content_hash
		FROM snapshots
		WHERE page_id = $1
		ORDER BY fetched_at DESC, id DESC
		LIMIT $2`, pageID, n)
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
func (s *PostgresStore) AppendDiff(ctx context.Context, diff *Diff) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO diffs (page_id, snapshot_old_id, snapshot_new_id, change_pct,
			added_text, removed_text, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		diff.PageID, diff.OlderID, diff.NewerID, diff.ChangePct,
		joinSegments(diff.Added), joinSegments(diff.Removed), diff.DetectedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("append diff for page %d: %w", diff.PageID, err)
	}
	return id, nil
}

// LatestDiff returns the most recent diff for the page, or ErrNotFound.
func (s *PostgresStore) LatestDiff(ctx context.Context, pageID int64) (*Diff, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, page_id, snapshot_old_id, snapshot_new_id, change_pct,
			added_text, removed_text, detected_at
		FROM diffs
		WHERE page_id = $1
		ORDER BY detected_at DESC, id DESC
		LIMIT 1`, pageID)

	var (
		diff    Diff
		added   string
		removed string
	)
	if err := row.Scan(&diff.ID, &diff.PageID, &diff.OlderID, &diff.NewerID,
		&diff.ChangePct, &added, &removed, &diff.DetectedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("diff for page %d: %w", pageID, ErrNotFound)
		}
		return nil, fmt.Errorf("query latest diff for page %d: %w", pageID, err)
	}
	diff.Added = splitSegments(added)
	diff.Removed = splitSegments(removed)
	return &diff, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
