// Package pipeline orchestrates monitoring runs. The Runner is the core:
// it walks the tracked pages sequentially, snapshots each one, and diffs
// adjacent captures. The Coordinator layers the collaborators on top:
// AI summaries, notifications, and report files. Persistence always runs
// strictly ahead of notification.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/plexfield/pagewatch/internal/archive"
	"github.com/plexfield/pagewatch/internal/content"
	"github.com/plexfield/pagewatch/internal/crawler"
	"github.com/plexfield/pagewatch/internal/snapshot"
	"github.com/plexfield/pagewatch/internal/textdiff"
)

// DefaultChangeThresholdPct is the significance cutoff when none is
// configured. A diff is significant only when it exceeds the threshold.
const DefaultChangeThresholdPct = 5.0

// Failure stages.
const (
	StageFetch   = "fetch"
	StageExtract = "extract"
	StageStore   = "store"
)

// Failure reasons.
const (
	ReasonBlocked   = "blocked"
	ReasonNetwork   = "network"
	ReasonMalformed = "malformed"
	ReasonStore     = "store"
)

// PageOutcome records one successfully snapshotted page.
type PageOutcome struct {
	Page       snapshot.Page
	SnapshotID int64
	DiffID     int64
	ChangePct  float64
	Attempts   int
	Promoted   bool
}

// PageFailure records one page that produced no snapshot this run.
type PageFailure struct {
	Page     snapshot.Page
	Stage    string
	Reason   string
	Attempts int
}

// ChangeEvent is one diff above the significance threshold. Summary is
// attached best-effort by the Coordinator after the core run.
type ChangeEvent struct {
	Page         snapshot.Page
	DiffID       int64
	ChangePct    float64
	OldWordCount int
	NewWordCount int
	Added        []string
	Removed      []string
	Summary      string
	DetectedAt   time.Time

	oldText string
	newText string
}

// RunResult is the full outcome of one monitoring run.
type RunResult struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Processed   []PageOutcome
	Failed      []PageFailure
	Significant []ChangeEvent
}

// Crawler fetches one page.
type Crawler interface {
	Fetch(ctx context.Context, target crawler.Target) (*crawler.Result, error)
}

// Hasher fingerprints snapshot body text.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// IDGenerator mints run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Clock supplies run and detection timestamps.
type Clock interface {
	Now() time.Time
}

// Runner executes the core crawl-snapshot-diff loop. It touches the
// crawler, extractor, store, and archive only; collaborators belong to
// the Coordinator.
type Runner struct {
	store     snapshot.Store
	crawler   Crawler
	archive   archive.Store
	hasher    Hasher
	ids       IDGenerator
	clock     Clock
	threshold float64
	logger    *zap.Logger
}

// NewRunner constructs a Runner. A non-positive threshold falls back to
// the default.
func NewRunner(
	store snapshot.Store,
	crawl Crawler,
	arc archive.Store,
	hasher Hasher,
	ids IDGenerator,
	clock Clock,
	thresholdPct float64,
	logger *zap.Logger,
) *Runner {
	if thresholdPct <= 0 {
		thresholdPct = DefaultChangeThresholdPct
	}
	if arc == nil {
		arc = archive.Noop{}
	}
	return &Runner{
		store:     store,
		crawler:   crawl,
		archive:   arc,
		hasher:    hasher,
		ids:       ids,
		clock:     clock,
		threshold: thresholdPct,
		logger:    logger,
	}
}

// Run processes every tracked page once, in store order. Per-page failures
// are recorded and never abort the run; cancellation is honored between
// pages only, returning the partial result alongside the context error.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	runID, err := r.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("mint run id: %w", err)
	}
	res := &RunResult{RunID: runID, StartedAt: r.clock.Now()}

	pages, err := r.store.Pages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	TotalRuns.Inc()
	r.logger.Info("run started",
		zap.String("run_id", runID),
		zap.Int("pages", len(pages)))

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			res.FinishedAt = r.clock.Now()
			return res, err
		}
		r.processPage(ctx, page, res)
	}

	res.FinishedAt = r.clock.Now()
	RunDuration.Observe(res.FinishedAt.Sub(res.StartedAt).Seconds())
	r.logger.Info("run finished",
		zap.String("run_id", runID),
		zap.Int("processed", len(res.Processed)),
		zap.Int("failed", len(res.Failed)),
		zap.Int("significant", len(res.Significant)),
		zap.Duration("took", res.FinishedAt.Sub(res.StartedAt)))
	return res, nil
}

func (r *Runner) processPage(ctx context.Context, page snapshot.Page, res *RunResult) {
	fetched, err := r.crawler.Fetch(ctx, crawler.Target{
		URL:  page.URL,
		Slug: page.Slug,
		Site: page.Site,
	})
	if err != nil {
		reason, attempts := ReasonNetwork, 0
		var fe *crawler.FetchError
		if errors.As(err, &fe) {
			attempts = fe.Attempts
			if fe.Kind == crawler.KindBlocked {
				reason = ReasonBlocked
			}
		}
		r.fail(res, page, StageFetch, reason, attempts, err)
		return
	}

	extracted, err := content.Extract(fetched.HTML, page.URL)
	if err != nil {
		r.fail(res, page, StageExtract, ReasonMalformed, fetched.Attempts, err)
		return
	}

	// The adjacent pair is the latest stored snapshot plus the one about
	// to be appended, so the prior must be read before the write.
	prior, err := r.store.LatestSnapshots(ctx, page.ID, 1)
	if err != nil {
		r.fail(res, page, StageStore, ReasonStore, fetched.Attempts, err)
		return
	}

	hash, err := r.hasher.Hash([]byte(extracted.CleanText))
	if err != nil {
		r.fail(res, page, StageStore, ReasonStore, fetched.Attempts, err)
		return
	}

	snap := &snapshot.Snapshot{
		PageID:          page.ID,
		FetchedAt:       fetched.FetchedAt,
		RawHTML:         fetched.HTML,
		CleanText:       extracted.CleanText,
		WordCount:       extracted.WordCount,
		Title:           extracted.Title,
		H1:              extracted.H1,
		MetaDescription: extracted.MetaDescription,
		Headings:        extracted.Headings,
		InternalLinks:   extracted.InternalLinks,
		ContentHash:     hash,
	}
	snapID, err := r.store.AppendSnapshot(ctx, snap)
	if err != nil {
		r.fail(res, page, StageStore, ReasonStore, fetched.Attempts, err)
		return
	}

	key := archive.Key(page.Slug, page.Site, fetched.FetchedAt.UTC().Format("20060102-150405"))
	if loc, err := r.archive.Save(ctx, key, []byte(fetched.HTML)); err != nil {
		r.logger.Warn("raw archive failed",
			zap.String("slug", page.Slug),
			zap.String("key", key),
			zap.Error(err))
	} else if loc != "" {
		r.logger.Debug("raw archived", zap.String("location", loc))
	}

	outcome := PageOutcome{
		Page:       page,
		SnapshotID: snapID,
		Attempts:   fetched.Attempts,
		Promoted:   fetched.Promoted,
	}

	if len(prior) > 0 {
		old := prior[0]
		d := textdiff.Compare(old.CleanText, extracted.CleanText)
		detectedAt := r.clock.Now()
		diffID, err := r.store.AppendDiff(ctx, &snapshot.Diff{
			PageID:     page.ID,
			OlderID:    old.ID,
			NewerID:    snapID,
			ChangePct:  d.ChangePct,
			Added:      d.Added,
			Removed:    d.Removed,
			DetectedAt: detectedAt,
		})
		if err != nil {
			r.fail(res, page, StageStore, ReasonStore, fetched.Attempts, err)
			return
		}
		outcome.DiffID = diffID
		outcome.ChangePct = d.ChangePct

		if d.ChangePct > r.threshold {
			TotalSignificantChanges.Inc()
			res.Significant = append(res.Significant, ChangeEvent{
				Page:         page,
				DiffID:       diffID,
				ChangePct:    d.ChangePct,
				OldWordCount: old.WordCount,
				NewWordCount: extracted.WordCount,
				Added:        d.Added,
				Removed:      d.Removed,
				DetectedAt:   detectedAt,
				oldText:      old.CleanText,
				newText:      extracted.CleanText,
			})
			r.logger.Info("significant change",
				zap.String("slug", page.Slug),
				zap.String("site", page.Site),
				zap.Float64("change_pct", d.ChangePct))
		}
	}

	TotalPagesProcessed.Inc()
	res.Processed = append(res.Processed, outcome)
	r.logger.Info("page snapshotted",
		zap.String("slug", page.Slug),
		zap.String("site", page.Site),
		zap.Int64("snapshot_id", snapID),
		zap.Int("word_count", extracted.WordCount),
		zap.Bool("promoted", fetched.Promoted))
}

func (r *Runner) fail(res *RunResult, page snapshot.Page, stage, reason string, attempts int, err error) {
	TotalPageFailures.Inc()
	res.Failed = append(res.Failed, PageFailure{
		Page:     page,
		Stage:    stage,
		Reason:   reason,
		Attempts: attempts,
	})
	r.logger.Warn("page failed",
		zap.String("slug", page.Slug),
		zap.String("site", page.Site),
		zap.String("stage", stage),
		zap.String("reason", reason),
		zap.Int("attempts", attempts),
		zap.Error(err))
}
