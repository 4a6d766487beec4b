// Package server exposes search, corpus refresh and corpus reads over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/FranksOps/gleaner/internal/corpus"
	"github.com/FranksOps/gleaner/internal/metrics"
	"github.com/FranksOps/gleaner/internal/search"
	"github.com/FranksOps/gleaner/internal/storage"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// Searcher answers a search request.
type Searcher interface {
	Run(ctx context.Context, req search.Request) (*search.Response, error)
}

// Refresher rebuilds the corpus.
type Refresher interface {
	Refresh(ctx context.Context) (*corpus.Result, error)
}

// CorpusReader returns the current corpus file.
type CorpusReader interface {
	Read() ([]byte, error)
}

// Deps are the handlers' collaborators. History may be nil.
type Deps struct {
	Search    Searcher
	Refresher Refresher
	Corpus    CorpusReader
	History   storage.Backend
	Logger    *slog.Logger
}

// Options configure the listener.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Metrics         bool
}

// Server is the gleaner HTTP API.
type Server struct {
	echo   *echo.Echo
	deps   Deps
	opts   Options
	logger *slog.Logger
}

// New builds the API and registers its routes.
func New(opts Options, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 15 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, deps: deps, opts: opts, logger: logger}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	e.GET("/healthz", s.health)
	e.GET("/search", s.search)
	e.POST("/refresh", s.refresh)
	e.GET("/corpus", s.corpus)
	e.GET("/history", s.history)
	if opts.Metrics {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}
	return s
}

// Handler returns the routed API, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.echo,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.opts.Addr)
		errCh <- s.echo.StartServer(srv)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) search(c echo.Context) error {
	req := search.Request{
		Query:  c.QueryParam("query"),
		UserID: c.QueryParam("user_id"),
	}
	if raw := c.QueryParam("incognito"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return &paramError{name: "incognito", err: err}
		}
		req.Incognito = v
	}

	resp, err := s.deps.Search.Run(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) refresh(c echo.Context) error {
	res, err := s.deps.Refresher.Refresh(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) corpus(c echo.Context) error {
	data, err := s.deps.Corpus.Read()
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "text/plain; charset=utf-8", data)
}

func (s *Server) history(c echo.Context) error {
	if s.deps.History == nil {
		return errHistoryDisabled
	}

	filter := storage.Filter{UserID: c.QueryParam("user_id"), Limit: defaultHistoryLimit}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return &paramError{name: "limit", err: errors.New("must be a positive integer")}
		}
		filter.Limit = min(n, maxHistoryLimit)
	}
	if raw := c.QueryParam("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return &paramError{name: "offset", err: errors.New("must be a non-negative integer")}
		}
		filter.Offset = n
	}
	if raw := c.QueryParam("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return &paramError{name: "since", err: err}
		}
		filter.Since = &t
	}

	entries, err := s.deps.History.Query(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []*storage.ChatLogEntry{}
	}
	return c.JSON(http.StatusOK, entries)
}
