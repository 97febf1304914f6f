package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/plexfield/pagewatch/internal/analysis"
	"github.com/plexfield/pagewatch/internal/notify"
	"github.com/plexfield/pagewatch/internal/report"
	"github.com/plexfield/pagewatch/internal/snapshot"
	"github.com/plexfield/pagewatch/internal/watchlist"
)

// Summarizer produces the prose summary attached to a change event.
type Summarizer interface {
	SummarizeDiff(ctx context.Context, dc analysis.DiffContext) (string, error)
}

// Comparer scores a slug's self/competitor page pair.
type Comparer interface {
	Compare(ctx context.Context, slug string, self, competitor analysis.PageContent) *analysis.Comparison
}

// ReportWriter renders one dated report file.
type ReportWriter interface {
	Write(now time.Time, changes []report.Change, comparisons []analysis.Comparison) (string, error)
}

// DashboardWriter renders the dashboard data files.
type DashboardWriter interface {
	Write(now time.Time, pages []report.PageEntry) error
}

// Coordinator drives a full production run: the Runner first, then the
// collaborators. Collaborator failures are logged and never roll back
// persisted snapshots or diffs.
type Coordinator struct {
	runner     *Runner
	store      snapshot.Store
	watch      *watchlist.Watchlist
	summarizer Summarizer
	comparer   Comparer
	notifier   notify.Notifier
	publisher  notify.Publisher
	jsonReport ReportWriter
	digest     ReportWriter
	dashboard  DashboardWriter
	clock      Clock
	logger     *zap.Logger
}

// CoordinatorDeps bundles the collaborators. Summarizer, Comparer, and the
// report writers may be nil; Notifier and Publisher default to noop.
type CoordinatorDeps struct {
	Runner     *Runner
	Store      snapshot.Store
	Watchlist  *watchlist.Watchlist
	Summarizer Summarizer
	Comparer   Comparer
	Notifier   notify.Notifier
	Publisher  notify.Publisher
	JSONReport ReportWriter
	Digest     ReportWriter
	Dashboard  DashboardWriter
	Clock      Clock
	Logger     *zap.Logger
}

// NewCoordinator assembles a Coordinator from its collaborators.
func NewCoordinator(deps CoordinatorDeps) *Coordinator {
	if deps.Notifier == nil {
		deps.Notifier = notify.Noop{}
	}
	if deps.Publisher == nil {
		deps.Publisher = notify.Noop{}
	}
	return &Coordinator{
		runner:     deps.Runner,
		store:      deps.Store,
		watch:      deps.Watchlist,
		summarizer: deps.Summarizer,
		comparer:   deps.Comparer,
		notifier:   deps.Notifier,
		publisher:  deps.Publisher,
		jsonReport: deps.JSONReport,
		digest:     deps.Digest,
		dashboard:  deps.Dashboard,
		clock:      deps.Clock,
		logger:     deps.Logger,
	}
}

// Run executes the core run, then the collaborator phases.
func (c *Coordinator) Run(ctx context.Context) (*RunResult, error) {
	res, err := c.runner.Run(ctx)
	if err != nil {
		return res, err
	}

	c.summarizeAndNotify(ctx, res)
	states := c.collectStates(ctx)
	comparisons := c.compare(ctx, states)

	if len(comparisons) > 0 {
		if err := c.notifier.SendComparisonSummary(ctx, comparisons); err != nil {
			c.logger.Warn("comparison summary notification failed", zap.Error(err))
		}
	}

	c.writeReports(res, states, comparisons)
	return res, nil
}

// Compare runs the comparison phase alone, without crawling.
func (c *Coordinator) Compare(ctx context.Context) ([]analysis.Comparison, error) {
	if c.comparer == nil {
		return nil, errors.New("analysis is not configured")
	}
	states := c.collectStates(ctx)
	comparisons := c.compare(ctx, states)
	now := c.clock.Now()
	if c.jsonReport != nil {
		if _, err := c.jsonReport.Write(now, nil, comparisons); err != nil {
			c.logger.Warn("json report failed", zap.Error(err))
		}
	}
	if c.dashboard != nil {
		if err := c.dashboard.Write(now, c.pageEntries(nil, states, comparisons)); err != nil {
			c.logger.Warn("dashboard write failed", zap.Error(err))
		}
	}
	return comparisons, nil
}

func (c *Coordinator) summarizeAndNotify(ctx context.Context, res *RunResult) {
	for i := range res.Significant {
		ev := &res.Significant[i]

		if c.summarizer != nil {
			summary, err := c.summarizer.SummarizeDiff(ctx, analysis.DiffContext{
				PageURL:   ev.Page.URL,
				Slug:      ev.Page.Slug,
				OldText:   ev.oldText,
				NewText:   ev.newText,
				Added:     ev.Added,
				Removed:   ev.Removed,
				ChangePct: ev.ChangePct,
			})
			if err != nil {
				c.logger.Warn("diff summary failed",
					zap.String("slug", ev.Page.Slug),
					zap.Error(err))
			} else {
				ev.Summary = summary
			}
		}

		change := notify.Change{
			PageURL:      ev.Page.URL,
			Slug:         ev.Page.Slug,
			Site:         ev.Page.Site,
			ChangePct:    ev.ChangePct,
			OldWordCount: ev.OldWordCount,
			NewWordCount: ev.NewWordCount,
			Summary:      ev.Summary,
			DetectedAt:   ev.DetectedAt,
		}
		if err := c.notifier.SendChangeAlert(ctx, change); err != nil {
			c.logger.Warn("change alert failed",
				zap.String("slug", ev.Page.Slug),
				zap.Error(err))
		}
		if err := c.publisher.PublishChange(ctx, change); err != nil {
			c.logger.Warn("change publish failed",
				zap.String("slug", ev.Page.Slug),
				zap.Error(err))
		}
	}
}

// slugState is the latest stored capture of one watch-list pair.
type slugState struct {
	entry watchlist.Entry
	self  *snapshot.Snapshot
	comp  *snapshot.Snapshot
}

func (c *Coordinator) collectStates(ctx context.Context) []slugState {
	states := make([]slugState, 0, len(c.watch.Entries))
	for _, entry := range c.watch.Entries {
		states = append(states, slugState{
			entry: entry,
			self:  c.latestByURL(ctx, entry.SelfURL),
			comp:  c.latestByURL(ctx, entry.CompetitorURL),
		})
	}
	return states
}

func (c *Coordinator) latestByURL(ctx context.Context, url string) *snapshot.Snapshot {
	page, err := c.store.PageByURL(ctx, url)
	if err != nil {
		c.logger.Warn("page lookup failed", zap.String("url", url), zap.Error(err))
		return nil
	}
	snaps, err := c.store.LatestSnapshots(ctx, page.ID, 1)
	if err != nil || len(snaps) == 0 {
		return nil
	}
	return &snaps[0]
}

func (c *Coordinator) compare(ctx context.Context, states []slugState) []analysis.Comparison {
	if c.comparer == nil {
		return nil
	}
	comparisons := make([]analysis.Comparison, 0, len(states))
	for _, st := range states {
		if st.self == nil || st.comp == nil {
			c.logger.Warn("comparison skipped, missing snapshot",
				zap.String("slug", st.entry.Slug))
			continue
		}
		cmp := c.comparer.Compare(ctx, st.entry.Slug,
			pageContent(st.entry.SelfURL, st.self),
			pageContent(st.entry.CompetitorURL, st.comp))
		comparisons = append(comparisons, *cmp)
	}
	return comparisons
}

func pageContent(url string, snap *snapshot.Snapshot) analysis.PageContent {
	return analysis.PageContent{
		URL:           url,
		Text:          snap.CleanText,
		Headings:      snap.Headings,
		WordCount:     snap.WordCount,
		InternalLinks: snap.InternalLinks,
	}
}

func (c *Coordinator) writeReports(res *RunResult, states []slugState, comparisons []analysis.Comparison) {
	now := c.clock.Now()

	changes := make([]report.Change, 0, len(res.Significant))
	for _, ev := range res.Significant {
		changes = append(changes, report.Change{
			PageURL:      ev.Page.URL,
			Slug:         ev.Page.Slug,
			Site:         ev.Page.Site,
			ChangePct:    ev.ChangePct,
			OldWordCount: ev.OldWordCount,
			NewWordCount: ev.NewWordCount,
			Added:        ev.Added,
			Removed:      ev.Removed,
			Summary:      ev.Summary,
			DetectedAt:   ev.DetectedAt,
		})
	}

	if c.jsonReport != nil {
		if _, err := c.jsonReport.Write(now, changes, comparisons); err != nil {
			c.logger.Warn("json report failed", zap.Error(err))
		}
	}
	if c.digest != nil {
		if _, err := c.digest.Write(now, changes, comparisons); err != nil {
			c.logger.Warn("markdown digest failed", zap.Error(err))
		}
	}
	if c.dashboard != nil {
		if err := c.dashboard.Write(now, c.pageEntries(res, states, comparisons)); err != nil {
			c.logger.Warn("dashboard write failed", zap.Error(err))
		}
	}
}

func (c *Coordinator) pageEntries(res *RunResult, states []slugState, comparisons []analysis.Comparison) []report.PageEntry {
	bySlug := make(map[string]analysis.Comparison, len(comparisons))
	for _, cmp := range comparisons {
		bySlug[cmp.Slug] = cmp
	}
	failed := map[string]bool{}
	events := map[string]ChangeEvent{}
	if res != nil {
		for _, f := range res.Failed {
			failed[f.Page.Slug] = true
		}
		for _, ev := range res.Significant {
			events[ev.Page.Slug] = ev
		}
	}

	entries := make([]report.PageEntry, 0, len(states))
	for _, st := range states {
		entry := report.PageEntry{
			Slug:          st.entry.Slug,
			SelfURL:       st.entry.SelfURL,
			CompetitorURL: st.entry.CompetitorURL,
			Status:        report.StatusUnchanged,
		}
		if st.self != nil {
			entry.SelfWordCount = st.self.WordCount
			entry.SelfTitle = st.self.Title
			entry.SelfH1 = st.self.H1
			entry.SelfHeadings = st.self.Headings
		}
		if st.comp != nil {
			entry.CompetitorWordCount = st.comp.WordCount
			entry.CompetitorTitle = st.comp.Title
			entry.CompetitorH1 = st.comp.H1
			entry.CompetitorHeadings = st.comp.Headings
		}
		if cmp, ok := bySlug[st.entry.Slug]; ok {
			entry.SelfScore = cmp.SelfScore
			entry.CompetitorScore = cmp.CompetitorScore
			entry.SelfWeighted = cmp.SelfWeighted
			entry.CompetitorWeighted = cmp.CompetitorWeighted
			entry.Dimensions = cmp.Dimensions
			entry.SelfDimensions = cmp.SelfDimensions
			entry.CompetitorDims = cmp.CompetitorDims
			entry.ContentGaps = splitGaps(cmp.ContentGaps)
			entry.Keywords = cmp.Keywords
			entry.Recommendations = cmp.Recommendations
		}
		if failed[st.entry.Slug] {
			entry.Status = report.StatusError
		} else if ev, ok := events[st.entry.Slug]; ok {
			entry.Status = report.StatusChanged
			entry.ChangePct = ev.ChangePct
			entry.ChangeSummary = ev.Summary
			detectedAt := ev.DetectedAt
			entry.LastChangeDetected = &detectedAt
		}
		entries = append(entries, entry)
	}
	return entries
}

func splitGaps(gaps string) []string {
	if gaps == "" {
		return nil
	}
	lines := strings.Split(gaps, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
