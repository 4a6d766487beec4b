package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/FranksOps/gleaner/internal/app"
	"github.com/FranksOps/gleaner/internal/metrics"
	"github.com/FranksOps/gleaner/internal/server"
)

func serveCmd(e *env) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if addr != "" {
				e.cfg.Server.Addr = addr
			}

			a, err := app.New(ctx, e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if e.cfg.Corpus.EnsureOnStart {
				go func() {
					if _, err := a.Refresher.EnsureExists(ctx); err != nil && !errors.Is(err, context.Canceled) {
						e.logger.Error("initial corpus refresh failed", "err", err)
					}
				}()
			}

			sched, err := a.Scheduler()
			if err != nil {
				return err
			}
			if sched != nil {
				go func() { _ = sched.Run(ctx) }()
			}

			if e.cfg.Metrics.Addr != "" {
				m := metrics.Start(e.cfg.Metrics.Addr, e.logger)
				defer m.Stop(context.Background())
			}

			srv := server.New(server.Options{
				Addr:            e.cfg.Server.Addr,
				ReadTimeout:     e.cfg.Server.ReadTimeout,
				WriteTimeout:    e.cfg.Server.WriteTimeout,
				ShutdownTimeout: e.cfg.Server.ShutdownTimeout,
				Metrics:         e.cfg.Metrics.Enabled,
			}, server.Deps{
				Search:    a.Search,
				Refresher: a.Refresher,
				Corpus:    a.Corpus,
				History:   a.ChatLog,
				Logger:    e.logger,
			})
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
