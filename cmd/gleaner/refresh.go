package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/FranksOps/gleaner/internal/app"
	"github.com/FranksOps/gleaner/internal/metrics"
	"github.com/FranksOps/gleaner/internal/report"
	"github.com/FranksOps/gleaner/internal/scheduler"
)

func refreshCmd(e *env) *cobra.Command {
	var schedule string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Collect headlines and rewrite the prompt corpus",
		Long: "Runs one collect, reduce and write cycle. With --schedule the cycle\n" +
			"repeats on the given cron expression until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := app.New(ctx, e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if schedule == "" {
				res, err := a.Refresher.Refresh(ctx)
				if err != nil {
					return err
				}
				return report.WriteJSON(cmd.OutOrStdout(), res)
			}

			if e.cfg.Metrics.Addr != "" {
				m := metrics.Start(e.cfg.Metrics.Addr, e.logger)
				defer m.Stop(context.Background())
			}

			s, err := scheduler.New(schedule, func(ctx context.Context) error {
				_, err := a.Refresher.Refresh(ctx)
				return err
			}, e.logger)
			if err != nil {
				return err
			}
			if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "cron expression to keep refreshing on (e.g. \"0 */6 * * *\")")
	return cmd
}
