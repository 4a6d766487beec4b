package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/FranksOps/gleaner/internal/app"
	"github.com/FranksOps/gleaner/internal/config"
)

// env carries state prepared by the root command for its subcommands.
type env struct {
	cfgPath  string
	logLevel string

	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "gleaner",
		Short:         "Search the web for relevant content and maintain a news prompt corpus",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(e.cfgPath)
			if err != nil {
				return err
			}
			if e.logLevel != "" {
				cfg.Log.Level = e.logLevel
				if err := cfg.Log.Validate(); err != nil {
					return err
				}
			}
			logger, closer, err := app.NewLogger(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			e.cfg, e.logger, e.logCloser = cfg, logger, closer
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if e.logCloser != nil {
				return e.logCloser.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&e.cfgPath, "config", "c", "", "config file (default ./gleaner.{yaml,json,toml})")
	root.PersistentFlags().StringVar(&e.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	root.AddCommand(
		serveCmd(e),
		searchCmd(e),
		refreshCmd(e),
		corpusCmd(e),
		historyCmd(e),
	)
	return root
}
