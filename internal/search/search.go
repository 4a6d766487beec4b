// Package search runs one query through discovery, fetching, extraction and
// relevance filtering, and logs answered queries.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/FranksOps/gleaner/internal/analyzer"
	"github.com/FranksOps/gleaner/internal/discovery"
	"github.com/FranksOps/gleaner/internal/metrics"
	"github.com/FranksOps/gleaner/internal/relevance"
	"github.com/FranksOps/gleaner/internal/scraper"
	"github.com/FranksOps/gleaner/internal/storage"
	"golang.org/x/sync/errgroup"
)

const (
	// MinQueryLength is the shortest query, in runes, that is searched.
	MinQueryLength = 3
	// NoResultsMessage is returned when nothing passes the relevance filter.
	NoResultsMessage = "no relevant content found"

	DefaultWorkers    = 4
	DefaultRunTimeout = 60 * time.Second
	logWriteTimeout   = 5 * time.Second
)

// ErrQueryTooShort rejects queries shorter than MinQueryLength.
var ErrQueryTooShort = fmt.Errorf("query must be at least %d characters", MinQueryLength)

// Fetcher retrieves one page. *scraper.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) *scraper.Page
}

// Judge decides relevance. *relevance.Filter satisfies it.
type Judge interface {
	Judge(ctx context.Context, query, content string) relevance.Verdict
}

// Gate vetoes links before they are fetched. *scraper.Robots satisfies it.
type Gate interface {
	Allowed(ctx context.Context, url string) (bool, error)
}

// Config tunes an Orchestrator.
type Config struct {
	MaxLinks     int
	Workers      int
	RunTimeout   time.Duration
	ExcerptRunes int
}

// Deps are the collaborators of an Orchestrator. ChatLog and Gate are
// optional.
type Deps struct {
	Discovery discovery.Provider
	Fetcher   Fetcher
	Extractor *scraper.Extractor
	Filter    Judge
	ChatLog   storage.Backend
	Gate      Gate
	Logger    *slog.Logger
}

// Request is one search invocation.
type Request struct {
	Query     string
	UserID    string
	Incognito bool
}

// Result is one accepted page.
type Result struct {
	URL          string               `json:"url"`
	Content      string               `json:"content"`
	LexicalScore float64              `json:"lexical_score"`
	StatusCode   int                  `json:"status_code"`
	Matches      []analyzer.TermMatch `json:"matches,omitempty"`
}

// Failure is one link whose fetch failed. Content carries the extractor's
// failure placeholder.
type Failure struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code,omitempty"`
	Content    string `json:"content"`
}

// Response aggregates the accepted results of a run in discovery order.
// Failures are listed separately and never judged.
type Response struct {
	Query     string    `json:"query"`
	Results   []Result  `json:"results"`
	Failures  []Failure `json:"failures,omitempty"`
	Message   string    `json:"message,omitempty"`
	Links     int      `json:"links"`
	Failed    int      `json:"failed"`
	Rejected  int      `json:"rejected"`
	Skipped   int      `json:"skipped"`
	SessionID string   `json:"session_id,omitempty"`
}

type outcome int

const (
	outcomePending outcome = iota
	outcomeAccepted
	outcomeRejected
	outcomeFailed
	outcomeSkipped
)

type slot struct {
	outcome outcome
	result  Result
	failure Failure
}

// Orchestrator executes search runs. It holds no per-run state and is safe
// for concurrent use.
type Orchestrator struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
}

// New validates deps and applies config defaults.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Discovery == nil:
		return nil, errors.New("search: discovery provider is nil")
	case deps.Fetcher == nil:
		return nil, errors.New("search: fetcher is nil")
	case deps.Extractor == nil:
		return nil, errors.New("search: extractor is nil")
	case deps.Filter == nil:
		return nil, errors.New("search: relevance filter is nil")
	}

	if cfg.MaxLinks <= 0 {
		cfg.MaxLinks = discovery.DefaultLimit
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{cfg: cfg, deps: deps, logger: logger}, nil
}

// Run searches req.Query. Fetch failures never abort the run; they are
// counted and excluded. Only a too-short query or a cancelled caller
// context produce an error.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Response, error) {
	query := strings.TrimSpace(req.Query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		metrics.SearchRunsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrQueryTooShort
	}

	start := time.Now()
	defer func() { metrics.SearchDuration.Observe(time.Since(start).Seconds()) }()

	runCtx, cancel := context.WithTimeout(ctx, o.cfg.RunTimeout)
	defer cancel()

	links, err := o.deps.Discovery.Discover(runCtx, query, o.cfg.MaxLinks)
	if err != nil {
		o.logger.Warn("link discovery failed", "query", query, "err", err)
		links = nil
	}

	slots := make([]slot, len(links))
	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(o.cfg.Workers)
	for i, link := range links {
		g.Go(func() error {
			slots[i] = o.process(gctx, query, link)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		metrics.SearchRunsTotal.WithLabelValues("cancelled").Inc()
		return nil, err
	}
	if runCtx.Err() != nil {
		o.logger.Warn("search run timed out, returning partial results", "query", query, "timeout", o.cfg.RunTimeout)
	}

	resp := &Response{Query: query, Results: []Result{}, Links: len(links)}
	for _, s := range slots {
		switch s.outcome {
		case outcomeAccepted:
			resp.Results = append(resp.Results, s.result)
		case outcomeRejected:
			resp.Rejected++
		case outcomeFailed:
			resp.Failed++
			resp.Failures = append(resp.Failures, s.failure)
		case outcomeSkipped:
			resp.Skipped++
		}
	}

	if len(resp.Results) == 0 {
		resp.Message = NoResultsMessage
		metrics.SearchRunsTotal.WithLabelValues("empty").Inc()
	} else {
		metrics.SearchRunsTotal.WithLabelValues("ok").Inc()
		if !req.Incognito {
			resp.SessionID = o.record(ctx, query, req.UserID, resp.Results[0])
		}
	}

	o.logger.Info("search completed",
		"query", query,
		"links", resp.Links,
		"accepted", len(resp.Results),
		"rejected", resp.Rejected,
		"failed", resp.Failed,
		"skipped", resp.Skipped,
		"duration", time.Since(start),
	)
	return resp, nil
}

func (o *Orchestrator) process(ctx context.Context, query, link string) slot {
	if o.deps.Gate != nil {
		allowed, err := o.deps.Gate.Allowed(ctx, link)
		if err != nil || !allowed {
			o.logger.Debug("link skipped by gate", "url", link, "err", err)
			return slot{outcome: outcomeSkipped}
		}
	}

	page := o.deps.Fetcher.Fetch(ctx, link)
	if page.Failed() {
		o.logger.Info("fetch failed, excluding link", "url", link, "err", page.Err)
		return slot{
			outcome: outcomeFailed,
			failure: Failure{URL: link, StatusCode: page.StatusCode, Content: o.deps.Extractor.Extract(page)},
		}
	}

	content := o.deps.Extractor.Extract(page)
	verdict := o.deps.Filter.Judge(ctx, query, content)
	if !verdict.Accepted {
		return slot{outcome: outcomeRejected}
	}

	return slot{
		outcome: outcomeAccepted,
		result: Result{
			URL:          link,
			Content:      content,
			LexicalScore: verdict.LexicalScore,
			StatusCode:   page.StatusCode,
			Matches:      analyzer.FindTermMatches(content, link, analyzer.Terms(query)),
		},
	}
}

// record appends the chat log entry for an answered query and returns its
// session ID. Sink failures are logged only.
func (o *Orchestrator) record(ctx context.Context, query, userID string, top Result) string {
	if o.deps.ChatLog == nil {
		return ""
	}

	entry := storage.NewEntry(query, userID, ResponseText(query, top, o.cfg.ExcerptRunes))

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logWriteTimeout)
	defer cancel()

	err := o.deps.ChatLog.Append(ctx, entry)
	metrics.ChatLogWrites.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		o.logger.Error("failed to append chat log entry", "session_id", entry.SessionID, "err", err)
		return ""
	}
	return entry.SessionID
}

// ResponseText renders the logged answer: an excerpt of the top result
// followed by its source annotation.
func ResponseText(query string, top Result, excerptRunes int) string {
	return analyzer.Excerpt(top.Content, query, excerptRunes) + "\n\nSource: " + top.URL
}
