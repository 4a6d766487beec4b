// Package metrics exposes the Prometheus instruments shared by gleaner's
// components.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gleaner_fetches_total",
			Help: "Total number of page fetches executed",
		},
		[]string{"domain", "status", "blocked_by"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gleaner_fetch_duration_seconds",
			Help:    "Duration of page fetches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15},
		},
		[]string{"domain"},
	)

	FetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gleaner_fetch_bytes_total",
			Help: "Total bytes downloaded across all fetches",
		},
		[]string{"domain"},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gleaner_proxy_failures_total",
			Help: "Total number of proxy failures during fetches",
		},
		[]string{"proxy_url"},
	)

	SearchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gleaner_search_runs_total",
			Help: "Search runs by outcome",
		},
		[]string{"outcome"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gleaner_search_duration_seconds",
			Help:    "End-to-end search run duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	RelevanceDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gleaner_relevance_decisions_total",
			Help: "Relevance decisions by stage and verdict",
		},
		[]string{"stage", "verdict"},
	)

	OracleRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gleaner_oracle_requests_total",
			Help: "Oracle completions by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	CollectionAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gleaner_news_collection_attempts_total",
			Help: "Listing page fetch attempts made by the headline collector",
		},
	)

	HeadlinesCollected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gleaner_news_headlines",
			Help: "Distinct headlines gathered by the last collection run",
		},
	)

	CorpusRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gleaner_corpus_refreshes_total",
			Help: "Corpus refresh cycles by outcome",
		},
		[]string{"outcome"},
	)

	CorpusPhrases = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gleaner_corpus_phrases",
			Help: "Number of phrases in the last written corpus",
		},
	)

	ChatLogWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gleaner_chatlog_writes_total",
			Help: "Chat log appends by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordFetch updates the fetch instruments. failed marks transport errors,
// which are reported with status "error" regardless of statusCode.
func RecordFetch(domain string, statusCode int, blockedBy string, failed bool, d time.Duration, size int) {
	status := strconv.Itoa(statusCode)
	if failed {
		status = "error"
	}

	FetchesTotal.WithLabelValues(domain, status, blockedBy).Inc()
	FetchDuration.WithLabelValues(domain).Observe(d.Seconds())
	FetchBytesTotal.WithLabelValues(domain).Add(float64(size))
}

// Outcome maps an error onto the "ok"/"error" label pair.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server encapsulates a standalone HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on addr and exposes /metrics.
func Start(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "err", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
