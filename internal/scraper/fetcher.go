// Package scraper fetches pages and extracts their textual content.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/gleaner/internal/bypass"
	"github.com/FranksOps/gleaner/internal/fingerprint"
	"github.com/FranksOps/gleaner/internal/metrics"
	"github.com/FranksOps/gleaner/pkg/httpclient"
	"github.com/FranksOps/gleaner/pkg/proxy"
	"github.com/FranksOps/gleaner/pkg/ratelimit"
	"github.com/FranksOps/gleaner/pkg/useragent"
	"github.com/google/uuid"
)

const (
	DefaultTimeout = 5 * time.Second
	maxBodyBytes   = 8 << 20
)

var (
	// ErrBadStatus marks responses with status >= 400.
	ErrBadStatus = errors.New("unexpected status")
	// ErrBlocked marks responses recognized as bot-protection challenges.
	ErrBlocked = errors.New("blocked by bot protection")
)

type contextKey string

const proxyKey contextKey = "proxy_url"

// FetchConfig configures a Fetcher.
type FetchConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	// UserAgent returns the identity presented on each request. Nil picks a
	// random browser User-Agent per request.
	UserAgent   func() string
	ProxyPool   *proxy.Pool
	Fingerprint fingerprint.Profile
	Limiter     *ratelimit.Limiter
	Detectors   []bypass.Detector
	Logger      *slog.Logger
}

// Page is the outcome of one fetch. Failures are recorded on Err rather than
// returned so callers can keep going.
type Page struct {
	ID         string
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	BlockedBy  string
	CreatedAt  time.Time
	Err        error
}

// Failed reports whether the fetch produced no usable markup.
func (p *Page) Failed() bool { return p == nil || p.Err != nil }

// Fetcher performs single-attempt GETs with the configured identity,
// fingerprint, proxy and rate limit.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
	logger *slog.Logger
}

// NewFetcher builds a Fetcher. The transport is shared across fetches for
// connection reuse; proxies are selected per request through the context.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == nil {
		cfg.UserAgent = useragent.NewPool(nil).Random
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileGo
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if u, ok := req.Context().Value(proxyKey).(*url.URL); ok && u != nil {
			return u, nil
		}
		return http.ProxyFromEnvironment(req)
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, fingerprint.Options{Proxy: proxyFunc})
	if err != nil {
		return nil, fmt.Errorf("failed to setup transport: %w", err)
	}

	client := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		Transport:    transport,
	})

	return &Fetcher{config: cfg, client: client, logger: logger}, nil
}

// Fetch issues one GET to targetURL. It never returns nil.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) *Page {
	start := time.Now()
	page := &Page{
		ID:        uuid.NewString(),
		URL:       targetURL,
		CreatedAt: start.UTC(),
	}
	defer func() {
		page.Duration = time.Since(start)
		metrics.RecordFetch(hostOf(targetURL), page.StatusCode, page.BlockedBy, page.StatusCode == 0, page.Duration, len(page.Body))
		if page.Err != nil {
			f.logger.Debug("fetch failed", "url", targetURL, "err", page.Err)
		}
	}()

	if err := f.config.Limiter.Wait(ctx); err != nil {
		page.Err = fmt.Errorf("rate limiter: %w", err)
		return page
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		page.Err = fmt.Errorf("failed to create request: %w", err)
		return page
	}

	var activeProxy *url.URL
	if f.config.ProxyPool != nil {
		if activeProxy = f.config.ProxyPool.Next(); activeProxy != nil {
			req = req.WithContext(context.WithValue(req.Context(), proxyKey, activeProxy))
		}
	}

	req.Header.Set("User-Agent", f.config.UserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req.Context(), req)
	if err != nil {
		if activeProxy != nil {
			_ = f.config.ProxyPool.MarkFailure(activeProxy)
			metrics.ProxyFailures.WithLabelValues(activeProxy.Redacted()).Inc()
		}
		page.Err = fmt.Errorf("request failed: %w", err)
		return page
	}
	defer resp.Body.Close()

	if activeProxy != nil {
		_ = f.config.ProxyPool.MarkSuccess(activeProxy)
	}

	page.StatusCode = resp.StatusCode
	page.Headers = resp.Header

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	page.Body = body
	if err != nil {
		page.Err = fmt.Errorf("failed to read body: %w", err)
		return page
	}

	if blocked, source := bypass.Detect(resp.StatusCode, resp.Header, body, f.config.Detectors); blocked {
		page.BlockedBy = source
		page.Err = fmt.Errorf("%w: %s", ErrBlocked, source)
		return page
	}

	if resp.StatusCode >= http.StatusBadRequest {
		page.Err = fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	return page
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Hostname()
}
