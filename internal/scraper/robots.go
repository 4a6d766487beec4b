package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// Robots answers robots.txt questions for candidate links, caching one
// parsed file per scheme+host.
type Robots struct {
	fetcher *Fetcher
	agent   string
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData
}

// NewRobots creates a Robots gate that evaluates rules for agent.
func NewRobots(fetcher *Fetcher, agent string, logger *slog.Logger) *Robots {
	if logger == nil {
		logger = slog.Default()
	}
	if agent == "" {
		agent = "gleaner"
	}
	return &Robots{
		fetcher: fetcher,
		agent:   agent,
		logger:  logger,
		cache:   make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether targetURL may be fetched. Unreachable robots.txt
// files allow everything.
func (r *Robots) Allowed(ctx context.Context, targetURL string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("invalid url: %w", err)
	}

	data := r.load(ctx, u.Scheme+"://"+u.Host)
	if data == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, r.agent), nil
}

func (r *Robots) load(ctx context.Context, host string) *robotstxt.RobotsData {
	r.mu.Lock()
	data, ok := r.cache[host]
	r.mu.Unlock()
	if ok {
		return data
	}

	page := r.fetcher.Fetch(ctx, host+"/robots.txt")
	if page.StatusCode == 0 {
		r.logger.Debug("robots.txt unreachable, allowing", "host", host, "err", page.Err)
	} else if data, ok = parseRobots(page); !ok {
		r.logger.Debug("robots.txt unparsable, allowing", "host", host)
	}

	r.mu.Lock()
	r.cache[host] = data
	r.mu.Unlock()
	return data
}

func parseRobots(page *Page) (*robotstxt.RobotsData, bool) {
	data, err := robotstxt.FromStatusAndBytes(page.StatusCode, page.Body)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Sitemaps returns the Sitemap entries declared in host's robots.txt.
func (r *Robots) Sitemaps(ctx context.Context, host string) []string {
	u, err := url.Parse(host)
	if err != nil || u.Host == "" {
		u = &url.URL{Scheme: "http", Host: host}
	}

	data := r.load(ctx, u.Scheme+"://"+u.Host)
	if data == nil {
		return nil
	}
	return data.Sitemaps
}
