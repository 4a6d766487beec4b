package news

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/gleaner/internal/metrics"
	"github.com/FranksOps/gleaner/internal/scraper"
	"github.com/FranksOps/gleaner/pkg/ratelimit"
	"github.com/PuerkitoBio/goquery"
)

// ErrCollectionIncomplete reports that the attempt budget ran out before the
// target was reached. The partial headline list is still returned.
var ErrCollectionIncomplete = errors.New("headline collection incomplete")

const (
	DefaultListingURL  = "https://news.google.com/home?hl=en-US&gl=US&ceid=US:en"
	DefaultTarget      = 20
	DefaultMaxAttempts = 5
	DefaultErrorDelay  = 5 * time.Second
	DefaultRetryDelay  = time.Second
)

// DefaultSelectors are tried in order on every attempt.
var DefaultSelectors = []string{
	"a.gPFEn",
	"a.JtKRv",
	"article h4",
	"article h3 a",
	"a[aria-label]",
}

// Fetcher retrieves the listing page. *scraper.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) *scraper.Page
}

// Config tunes a Collector.
type Config struct {
	ListingURL  string
	Selectors   []string
	Target      int
	MaxAttempts int
	ErrorDelay  time.Duration
	RetryDelay  time.Duration
}

// Collector polls a listing page until enough distinct headlines are seen or
// the attempt budget is spent. Runs are sequential by nature.
type Collector struct {
	cfg     Config
	fetcher Fetcher
	logger  *slog.Logger
}

// NewCollector applies defaults to cfg.
func NewCollector(cfg Config, fetcher Fetcher, logger *slog.Logger) *Collector {
	if cfg.ListingURL == "" {
		cfg.ListingURL = DefaultListingURL
	}
	if len(cfg.Selectors) == 0 {
		cfg.Selectors = DefaultSelectors
	}
	if cfg.Target <= 0 {
		cfg.Target = DefaultTarget
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.ErrorDelay <= 0 {
		cfg.ErrorDelay = DefaultErrorDelay
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{cfg: cfg, fetcher: fetcher, logger: logger}
}

// Target returns the configured headline count.
func (c *Collector) Target() int { return c.cfg.Target }

// Collect returns up to Target headlines in first-seen order. A shortfall
// after MaxAttempts returns the partial list with ErrCollectionIncomplete; a
// cancelled ctx returns the partial list with ctx's error.
func (c *Collector) Collect(ctx context.Context) ([]HeadlineRecord, error) {
	set := NewHeadlineSet()
	lastFailed := false
	attempts := 0

	for attempts < c.cfg.MaxAttempts && set.Len() < c.cfg.Target {
		if attempts > 0 {
			delay := c.cfg.RetryDelay
			if lastFailed {
				delay = c.cfg.ErrorDelay
			}
			if err := ratelimit.Pause(ctx, delay); err != nil {
				return c.finish(set), err
			}
		}
		attempts++
		metrics.CollectionAttempts.Inc()

		added, err := c.attempt(ctx, set)
		lastFailed = err != nil
		if err != nil {
			c.logger.Warn("listing fetch failed", "url", c.cfg.ListingURL, "attempt", attempts, "err", err)
			continue
		}
		c.logger.Debug("collected headlines", "attempt", attempts, "added", added, "total", set.Len())
	}

	recs := c.finish(set)
	if len(recs) < c.cfg.Target {
		return recs, fmt.Errorf("%w: %d of %d headlines after %d attempts",
			ErrCollectionIncomplete, len(recs), c.cfg.Target, attempts)
	}
	return recs, nil
}

func (c *Collector) finish(set *HeadlineSet) []HeadlineRecord {
	metrics.HeadlinesCollected.Set(float64(set.Len()))
	return set.Records(c.cfg.Target)
}

// attempt fetches the listing once and feeds every selector's labels into
// set, returning how many were new.
func (c *Collector) attempt(ctx context.Context, set *HeadlineSet) (int, error) {
	page := c.fetcher.Fetch(ctx, c.cfg.ListingURL)
	if page.Failed() {
		return 0, page.Err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return 0, fmt.Errorf("parse listing: %w", err)
	}

	added := 0
	for _, sel := range c.cfg.Selectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			label := Normalize(labelOf(s))
			if label == "" || truncated(label) {
				return
			}
			if set.Add(HeadlineRecord{RawText: label, SourceSelector: sel}) {
				added++
			}
		})
	}
	return added, nil
}

// labelOf prefers the title attribute, then aria-label, then element text.
func labelOf(s *goquery.Selection) string {
	if v, ok := s.Attr("title"); ok && Normalize(v) != "" {
		return v
	}
	if v, ok := s.Attr("aria-label"); ok && Normalize(v) != "" {
		return v
	}
	return s.Text()
}
