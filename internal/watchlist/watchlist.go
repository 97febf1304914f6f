// Package watchlist loads the tracked-page list. Page data lives in its
// own YAML file, separate from runtime settings, so the set of monitored
// slugs can change without touching configuration.
package watchlist

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/plexfield/pagewatch/internal/snapshot"
)

// Entry pairs one of our pages with the competitor page it is measured
// against.
type Entry struct {
	Slug          string `yaml:"slug"`
	SelfURL       string `yaml:"self_url"`
	CompetitorURL string `yaml:"competitor_url"`
}

// Watchlist is the validated set of tracked slugs.
type Watchlist struct {
	Entries []Entry `yaml:"pages"`
}

// Load reads and validates a pages.yaml file.
func Load(path string) (*Watchlist, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watchlist: %w", err)
	}
	return Parse(raw)
}

// Parse validates raw YAML watchlist content.
func Parse(raw []byte) (*Watchlist, error) {
	var wl Watchlist
	if err := yaml.Unmarshal(raw, &wl); err != nil {
		return nil, fmt.Errorf("parse watchlist: %w", err)
	}
	if len(wl.Entries) == 0 {
		return nil, fmt.Errorf("watchlist has no pages")
	}

	seen := make(map[string]struct{}, len(wl.Entries))
	for i, e := range wl.Entries {
		if e.Slug == "" {
			return nil, fmt.Errorf("watchlist entry %d: empty slug", i)
		}
		if _, dup := seen[e.Slug]; dup {
			return nil, fmt.Errorf("watchlist entry %d: duplicate slug %q", i, e.Slug)
		}
		seen[e.Slug] = struct{}{}

		if err := validateURL(e.SelfURL); err != nil {
			return nil, fmt.Errorf("watchlist entry %q: self_url: %w", e.Slug, err)
		}
		if err := validateURL(e.CompetitorURL); err != nil {
			return nil, fmt.Errorf("watchlist entry %q: competitor_url: %w", e.Slug, err)
		}
		if e.SelfURL == e.CompetitorURL {
			return nil, fmt.Errorf("watchlist entry %q: self_url and competitor_url are identical", e.Slug)
		}
	}
	return &wl, nil
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("empty URL")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must be absolute http(s)", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}

// Seeds expands each entry into its pair of page seeds, one per site.
func (wl *Watchlist) Seeds() []snapshot.PageSeed {
	seeds := make([]snapshot.PageSeed, 0, 2*len(wl.Entries))
	for _, e := range wl.Entries {
		seeds = append(seeds,
			snapshot.PageSeed{URL: e.SelfURL, Site: snapshot.SiteSelf, Slug: e.Slug},
			snapshot.PageSeed{URL: e.CompetitorURL, Site: snapshot.SiteCompetitor, Slug: e.Slug},
		)
	}
	return seeds
}

// Entry returns the entry for a slug, if tracked.
func (wl *Watchlist) Entry(slug string) (Entry, bool) {
	for _, e := range wl.Entries {
		if e.Slug == slug {
			return e, true
		}
	}
	return Entry{}, false
}
