// Package pipeline drives the end-to-end scrape: discover section links on
// the homepage, then fetch, extract, normalize, and persist each article,
// politely and one at a time.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"bizharvest"
	"bizharvest/feed"
	"bizharvest/normalize"
	"bizharvest/scrape"
	"bizharvest/store"
)

// Fetcher retrieves a URL and parses it into a document. Satisfied by
// *scrape.Client.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// Config holds the knobs for one run.
type Config struct {
	// BaseURL is the site homepage, also the base for resolving links.
	BaseURL string
	// PathMarker identifies the target section, e.g. "/business/".
	PathMarker string
	// FeedURL optionally names a section RSS/Atom feed scanned for extra
	// candidate links alongside the homepage.
	FeedURL string
	// Strategy describes where article fields live in the site's markup.
	Strategy scrape.Strategy
	// Rate bounds the request rate between article fetches.
	Rate RatePolicy
}

// Summary reports what a run did.
type Summary struct {
	Discovered int // distinct candidate links found
	Inserted   int // new rows written
	Duplicates int // links whose URL was already stored
	Failed     int // articles skipped after fetch/parse/extract failure
}

// Runner executes scrape runs against a single site.
type Runner struct {
	cfg    Config
	client Fetcher
	db     *store.Store
}

// NewRunner creates a runner. A nil rate policy falls back to the default
// fixed delay; an empty strategy falls back to the default site strategy.
func NewRunner(cfg Config, client Fetcher, db *store.Store) *Runner {
	if cfg.Rate == nil {
		cfg.Rate = FixedDelay{Delay: DefaultDelay}
	}
	if len(cfg.Strategy.Title) == 0 && len(cfg.Strategy.Containers) == 0 {
		cfg.Strategy = scrape.DefaultStrategy()
	}
	return &Runner{cfg: cfg, client: client, db: db}
}

// Run performs one complete scrape. A homepage failure or a storage failure
// aborts the run; a single article failing to fetch or parse is logged,
// counted, and skipped. The returned summary is valid even when err is
// non-nil, reflecting whatever progress was made.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	runID := uuid.New()

	log.Printf("INFO: Run %s: fetching homepage %s", runID, r.cfg.BaseURL)
	homepage, err := r.client.Fetch(ctx, r.cfg.BaseURL)
	if err != nil {
		return summary, fmt.Errorf("failed to fetch homepage: %w", err)
	}

	links := scrape.CollectLinks(homepage, r.cfg.BaseURL, r.cfg.PathMarker)
	r.mergeFeedLinks(ctx, links)

	summary.Discovered = len(links)
	log.Printf("INFO: Run %s: found %d links matching %q", runID, len(links), r.cfg.PathMarker)

	if len(links) == 0 {
		// Nothing matched; a successful run with zero insertions.
		return summary, nil
	}

	// Sorted iteration keeps logs readable across runs; correctness does
	// not depend on the order.
	ordered := make([]string, 0, len(links))
	for link := range links {
		ordered = append(ordered, link)
	}
	sort.Strings(ordered)

	for i, link := range ordered {
		if i > 0 {
			if err := r.cfg.Rate.Wait(ctx); err != nil {
				return summary, err
			}
		}

		known, err := r.db.Has(link)
		if err != nil {
			return summary, fmt.Errorf("failed to check for existing article: %w", err)
		}
		if known {
			// Already stored in a previous run; skip the fetch entirely.
			summary.Duplicates++
			continue
		}

		record, err := r.scrapeOne(ctx, link)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			log.Printf("WARN: Run %s: skipping %s: %v", runID, link, err)
			summary.Failed++
			continue
		}

		inserted, err := r.db.InsertIfNew(record)
		if err != nil {
			// Storage trouble is not recoverable per-article.
			return summary, fmt.Errorf("failed to store article: %w", err)
		}

		if inserted {
			summary.Inserted++
			log.Printf("INFO: Saved: %s", truncate(record.Title, 60))
		} else {
			summary.Duplicates++
		}
	}

	log.Printf("INFO: Run %s: done: %d discovered, %d inserted, %d duplicate, %d failed",
		runID, summary.Discovered, summary.Inserted, summary.Duplicates, summary.Failed)
	return summary, nil
}

// scrapeOne fetches, extracts, and normalizes a single article. Any error
// here is recoverable at the run level: the caller logs it and moves on.
func (r *Runner) scrapeOne(ctx context.Context, link string) (bizharvest.Article, error) {
	doc, err := r.client.Fetch(ctx, link)
	if err != nil {
		return bizharvest.Article{}, err
	}

	raw, err := scrape.Extract(doc, link, r.cfg.Strategy)
	if err != nil {
		return bizharvest.Article{}, err
	}

	record, err := normalize.Record(raw, r.cfg.BaseURL)
	if err != nil {
		return bizharvest.Article{}, err
	}

	// A page with neither title nor body text is a section index or some
	// other non-article page that happened to match the path marker.
	if record.Title == bizharvest.UntitledSentinel && record.Content == "" {
		return bizharvest.Article{}, fmt.Errorf("no title or content found")
	}

	return record, nil
}

// mergeFeedLinks adds candidates from the configured section feed, if any.
// Feed trouble never fails the run; the homepage scan stands on its own.
func (r *Runner) mergeFeedLinks(ctx context.Context, links map[string]struct{}) {
	if r.cfg.FeedURL == "" {
		return
	}

	feedLinks, err := feed.Links(ctx, r.cfg.FeedURL, r.cfg.BaseURL, r.cfg.PathMarker)
	if err != nil {
		log.Printf("WARN: Failed to read section feed %s: %v", r.cfg.FeedURL, err)
		return
	}
	for link := range feedLinks {
		links[link] = struct{}{}
	}
}

// truncate shortens s to at most n bytes, backing up to a rune boundary so
// a multibyte character is never split.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
