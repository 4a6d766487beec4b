package discovery

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"

	"github.com/FranksOps/gleaner/internal/scraper"
	"github.com/PuerkitoBio/goquery"
)

// DefaultBingURL is the result-page endpoint queried by Bing.
const DefaultBingURL = "https://www.bing.com/search"

// Bing scrapes organic results from a Bing result page.
type Bing struct {
	fetcher *scraper.Fetcher
	baseURL string
	logger  *slog.Logger
}

// NewBing returns a Bing provider. An empty baseURL uses DefaultBingURL.
func NewBing(fetcher *scraper.Fetcher, baseURL string, logger *slog.Logger) *Bing {
	if baseURL == "" {
		baseURL = DefaultBingURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bing{fetcher: fetcher, baseURL: baseURL, logger: logger}
}

// Discover fetches the result page once and returns the first absolute link
// of each li.b_algo item in document order.
func (b *Bing) Discover(ctx context.Context, query string, limit int) ([]string, error) {
	limit = clampLimit(limit)
	target := b.baseURL + "?q=" + url.QueryEscape(query)

	page := b.fetcher.Fetch(ctx, target)
	if page.Failed() {
		b.logger.Warn("search page fetch failed", "query", query, "err", page.Err)
		return []string{}, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		b.logger.Warn("failed to parse search page", "query", query, "err", err)
		return []string{}, nil
	}

	links := make([]string, 0, limit)
	doc.Find("li.b_algo").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		item.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			if !isAbsoluteHTTP(href) {
				return true
			}
			links = append(links, href)
			return false
		})
		return len(links) < limit
	})

	b.logger.Debug("discovered links", "query", query, "count", len(links))
	return links, nil
}
