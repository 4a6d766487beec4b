package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/FranksOps/gleaner/internal/metrics"
	"github.com/FranksOps/gleaner/internal/news"
	"github.com/FranksOps/gleaner/internal/phrase"
)

// ErrNothingCollected is returned when a cycle gathers no headlines; the
// existing corpus is left untouched.
var ErrNothingCollected = errors.New("no headlines collected")

// Refresh status values.
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
)

// Collector gathers headlines.
type Collector interface {
	Collect(ctx context.Context) ([]news.HeadlineRecord, error)
}

// Rewriter optionally rephrases reduced phrases in a second pass.
type Rewriter interface {
	Rewrite(ctx context.Context, phrases []string) ([]string, error)
}

// Result summarizes one refresh cycle.
type Result struct {
	Status    string        `json:"status"`
	Headlines int           `json:"headlines"`
	Phrases   int           `json:"phrases"`
	Degraded  bool          `json:"degraded,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
}

// Refresher runs collect, reduce, optional rewrite and write as one cycle.
// Cycles never overlap.
type Refresher struct {
	collector Collector
	reducer   phrase.Reducer
	rewriter  Rewriter
	file      *File
	logger    *slog.Logger

	mu sync.Mutex
}

// NewRefresher wires a refresh cycle. rewriter may be nil.
func NewRefresher(c Collector, r phrase.Reducer, rw Rewriter, f *File, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	if r == nil {
		r = phrase.Local{}
	}
	return &Refresher{
		collector: c,
		reducer:   r,
		rewriter:  rw,
		file:      f,
		logger:    logger,
	}
}

// File returns the corpus file being maintained.
func (r *Refresher) File() *File { return r.file }

// Refresh runs one cycle. A shortfall in collected headlines still writes
// the corpus and reports StatusPartial. Reducer failures fall back to
// whatever the reducer returned and mark the result degraded.
func (r *Refresher) Refresh(ctx context.Context) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	res := &Result{Status: StatusOK}

	recs, err := r.collector.Collect(ctx)
	switch {
	case err == nil:
	case errors.Is(err, news.ErrCollectionIncomplete):
		res.Status = StatusPartial
		r.logger.Warn("partial headline collection", "err", err, "collected", len(recs))
	default:
		metrics.CorpusRefreshes.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("collect headlines: %w", err)
	}
	res.Headlines = len(recs)
	if len(recs) == 0 {
		metrics.CorpusRefreshes.WithLabelValues("error").Inc()
		return nil, ErrNothingCollected
	}

	headlines := news.Texts(recs)
	phrases, err := r.reducer.Reduce(ctx, headlines)
	if err != nil {
		res.Degraded = true
		r.logger.Warn("phrase reduction degraded", "err", err, "headlines", len(headlines), "phrases", len(phrases))
	}
	if len(phrases) == 0 {
		phrases = headlines
	}

	if r.rewriter != nil {
		rewritten, err := r.rewriter.Rewrite(ctx, phrases)
		if err != nil {
			res.Degraded = true
			r.logger.Warn("phrase rewrite failed", "err", err)
		} else {
			phrases = rewritten
		}
	}

	if err := r.file.Write(phrases); err != nil {
		metrics.CorpusRefreshes.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("write corpus: %w", err)
	}

	res.Phrases = len(phrases)
	res.Duration = time.Since(start)
	metrics.CorpusRefreshes.WithLabelValues(res.Status).Inc()
	metrics.CorpusPhrases.Set(float64(res.Phrases))

	r.logger.Info("corpus refreshed",
		"path", r.file.Path(),
		"status", res.Status,
		"headlines", res.Headlines,
		"phrases", res.Phrases,
		"degraded", res.Degraded,
		"duration", res.Duration,
	)
	return res, nil
}

// EnsureExists runs one cycle when the corpus file is absent. It returns a
// nil result when the file already exists.
func (r *Refresher) EnsureExists(ctx context.Context) (*Result, error) {
	if r.file.Exists() {
		return nil, nil
	}
	r.logger.Info("corpus missing, running initial refresh", "path", r.file.Path())
	return r.Refresh(ctx)
}
