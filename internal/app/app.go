// Package app assembles gleaner's components from configuration. Commands
// and the HTTP server share one App per process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/FranksOps/gleaner/internal/config"
	"github.com/FranksOps/gleaner/internal/corpus"
	"github.com/FranksOps/gleaner/internal/discovery"
	"github.com/FranksOps/gleaner/internal/fingerprint"
	"github.com/FranksOps/gleaner/internal/news"
	"github.com/FranksOps/gleaner/internal/oracle"
	"github.com/FranksOps/gleaner/internal/phrase"
	"github.com/FranksOps/gleaner/internal/relevance"
	"github.com/FranksOps/gleaner/internal/scheduler"
	"github.com/FranksOps/gleaner/internal/scraper"
	"github.com/FranksOps/gleaner/internal/search"
	"github.com/FranksOps/gleaner/internal/storage"
	"github.com/FranksOps/gleaner/pkg/proxy"
	"github.com/FranksOps/gleaner/pkg/ratelimit"
	"github.com/FranksOps/gleaner/pkg/useragent"
)

// App holds the wired components.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Fetcher   *scraper.Fetcher
	Search    *search.Orchestrator
	Corpus    *corpus.File
	Refresher *corpus.Refresher
	ChatLog   storage.Backend
}

// New wires every component described by cfg. Only the chat-log backend
// touches the network at construction time.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if logger == nil {
		logger = slog.Default()
	}

	fetcher, err := newFetcher(cfg.Fetch, logger)
	if err != nil {
		return nil, err
	}

	var robots *scraper.Robots
	if cfg.Discovery.Robots || cfg.Discovery.Provider == config.ProviderSitemap {
		robots = scraper.NewRobots(fetcher, cfg.Discovery.RobotsAgent, logger)
	}

	var provider discovery.Provider
	switch cfg.Discovery.Provider {
	case config.ProviderSitemap:
		provider = discovery.NewSitemap(fetcher, robots, cfg.Discovery.SitemapSource, logger)
	default:
		provider = discovery.NewBing(fetcher, cfg.Discovery.BingURL, logger)
	}

	orc, err := oracle.New(oracle.Config{
		Backend:     cfg.Oracle.Backend,
		Model:       cfg.Oracle.Model,
		BaseURL:     cfg.Oracle.BaseURL,
		APIKey:      cfg.Oracle.APIKey,
		Timeout:     cfg.Oracle.Timeout,
		Temperature: cfg.Oracle.Temperature,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("oracle: %w", err)
	}

	mode, err := scraper.ParseExtractMode(cfg.Search.ExtractMode)
	if err != nil {
		return nil, err
	}
	policy, err := relevance.ParsePolicy(cfg.Relevance.Policy)
	if err != nil {
		return nil, err
	}

	chatLog, err := OpenChatLog(ctx, cfg.ChatLog)
	if err != nil {
		return nil, err
	}

	deps := search.Deps{
		Discovery: provider,
		Fetcher:   fetcher,
		Extractor: scraper.NewExtractor(cfg.Search.MaxParagraphs, mode, logger),
		Filter:    relevance.NewFilter(relevance.Config{Policy: policy, Threshold: cfg.Relevance.Threshold}, orc, logger),
		ChatLog:   chatLog,
		Logger:    logger,
	}
	if cfg.Discovery.Robots {
		deps.Gate = robots
	}
	orch, err := search.New(search.Config{
		MaxLinks:     cfg.Discovery.MaxLinks,
		Workers:      cfg.Search.Workers,
		RunTimeout:   cfg.Search.RunTimeout,
		ExcerptRunes: cfg.Search.ExcerptRunes,
	}, deps)
	if err != nil {
		closeChatLog(chatLog)
		return nil, err
	}

	collector := news.NewCollector(news.Config{
		ListingURL:  cfg.News.ListingURL,
		Selectors:   cfg.News.Selectors,
		Target:      cfg.News.Target,
		MaxAttempts: cfg.News.MaxAttempts,
		ErrorDelay:  cfg.News.ErrorDelay,
		RetryDelay:  cfg.News.RetryDelay,
	}, fetcher, logger)

	var (
		reducer  phrase.Reducer = phrase.Local{}
		rewriter corpus.Rewriter
	)
	if orc != nil {
		batch := phrase.NewBatch(orc, logger)
		if cfg.Phrase.Reducer == config.ReducerOracle {
			reducer = batch
		}
		if cfg.Phrase.Rewrite {
			rewriter = batch
		}
	}

	file := corpus.NewFile(cfg.Corpus.Path)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Fetcher:   fetcher,
		Search:    orch,
		Corpus:    file,
		Refresher: corpus.NewRefresher(collector, reducer, rewriter, file, logger),
		ChatLog:   chatLog,
	}, nil
}

// Scheduler returns the periodic corpus refresher, or nil when no schedule
// is configured.
func (a *App) Scheduler() (*scheduler.Scheduler, error) {
	if a.Config.Corpus.Schedule == "" {
		return nil, nil
	}
	return scheduler.New(a.Config.Corpus.Schedule, func(ctx context.Context) error {
		_, err := a.Refresher.Refresh(ctx)
		return err
	}, a.Logger)
}

// Close releases the chat-log backend.
func (a *App) Close() error {
	if a.ChatLog == nil {
		return nil
	}
	return a.ChatLog.Close()
}

func closeChatLog(b storage.Backend) {
	if b != nil {
		_ = b.Close()
	}
}

func newFetcher(cfg config.FetchConfig, logger *slog.Logger) (*scraper.Fetcher, error) {
	profile, err := fingerprint.ParseProfile(cfg.Fingerprint)
	if err != nil {
		return nil, err
	}

	var pool *proxy.Pool
	if len(cfg.Proxies) > 0 || cfg.ProxyFile != "" {
		pool = proxy.NewPool(proxy.Config{MaxFailures: cfg.ProxyMaxFailures, Cooldown: cfg.ProxyCooldown})
		if err := pool.Add(cfg.Proxies...); err != nil {
			return nil, fmt.Errorf("proxies: %w", err)
		}
		if cfg.ProxyFile != "" {
			if err := pool.LoadFile(cfg.ProxyFile); err != nil {
				return nil, fmt.Errorf("proxy file: %w", err)
			}
		}
		logger.Info("proxy rotation enabled", "proxies", pool.Len())
	}

	return scraper.NewFetcher(scraper.FetchConfig{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UserAgent:    useragent.NewPool(cfg.UserAgents).Strategy(cfg.UserAgentStrategy),
		ProxyPool:    pool,
		Fingerprint:  profile,
		Limiter:      ratelimit.NewLimiter(cfg.RPS, cfg.Jitter),
		Logger:       logger,
	})
}
