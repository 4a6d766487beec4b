package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/FranksOps/gleaner/internal/analyzer"
	"github.com/FranksOps/gleaner/internal/scraper"
	sitemap "github.com/oxffaa/gopher-parse-sitemap"
)

const maxSitemapDepth = 3

var errLimitReached = errors.New("limit reached")

// Sitemap discovers pages of a single site by matching query keywords
// against the paths listed in its sitemap.
type Sitemap struct {
	fetcher *scraper.Fetcher
	robots  *scraper.Robots
	source  string
	logger  *slog.Logger
}

// NewSitemap returns a Sitemap provider. source is either a sitemap (or
// sitemap index) URL, or a site root whose robots.txt declares sitemaps;
// the latter requires robots.
func NewSitemap(fetcher *scraper.Fetcher, robots *scraper.Robots, source string, logger *slog.Logger) *Sitemap {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sitemap{fetcher: fetcher, robots: robots, source: source, logger: logger}
}

// Discover returns up to limit sitemap locations whose path contains any
// keyword of query.
func (s *Sitemap) Discover(ctx context.Context, query string, limit int) ([]string, error) {
	limit = clampLimit(limit)
	keywords := analyzer.Terms(query)
	if len(keywords) == 0 {
		return []string{}, nil
	}

	links := make([]string, 0, limit)
	match := func(loc string) error {
		if !isAbsoluteHTTP(loc) || !matchesPath(loc, keywords) {
			return nil
		}
		links = append(links, loc)
		if len(links) >= limit {
			return errLimitReached
		}
		return nil
	}

	for _, root := range s.roots(ctx) {
		if err := s.walk(ctx, root, 0, match); err != nil {
			if errors.Is(err, errLimitReached) {
				break
			}
			s.logger.Warn("sitemap walk failed", "url", root, "err", err)
		}
	}

	return links, nil
}

func (s *Sitemap) roots(ctx context.Context) []string {
	if strings.HasSuffix(strings.ToLower(s.source), ".xml") || s.robots == nil {
		return []string{s.source}
	}
	return s.robots.Sitemaps(ctx, s.source)
}

// walk parses a urlset, falling back to a sitemap index whose children are
// walked recursively.
func (s *Sitemap) walk(ctx context.Context, sitemapURL string, depth int, fn func(string) error) error {
	page := s.fetcher.Fetch(ctx, sitemapURL)
	if page.Failed() {
		return fmt.Errorf("fetch error: %w", page.Err)
	}

	var seen int
	err := sitemap.Parse(bytes.NewReader(page.Body), func(e sitemap.Entry) error {
		seen++
		return fn(e.GetLocation())
	})
	if errors.Is(err, errLimitReached) || (err == nil && seen > 0) {
		return err
	}

	var nested []string
	indexErr := sitemap.ParseIndex(bytes.NewReader(page.Body), func(e sitemap.IndexEntry) error {
		nested = append(nested, e.GetLocation())
		return nil
	})
	if indexErr != nil || len(nested) == 0 {
		if err == nil {
			err = indexErr
		}
		if err == nil {
			err = errors.New("no entries")
		}
		return fmt.Errorf("failed to parse as sitemap or index: %w", err)
	}
	if depth >= maxSitemapDepth {
		return fmt.Errorf("sitemap index nested deeper than %d", maxSitemapDepth)
	}

	for _, child := range nested {
		if err := s.walk(ctx, child, depth+1, fn); err != nil {
			if errors.Is(err, errLimitReached) {
				return err
			}
			s.logger.Warn("failed to walk nested sitemap", "url", child, "err", err)
		}
	}
	return nil
}

func matchesPath(loc string, keywords []string) bool {
	u, err := url.Parse(loc)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, k := range keywords {
		if strings.Contains(path, k) {
			return true
		}
	}
	return false
}
