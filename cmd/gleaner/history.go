package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/gleaner/internal/app"
	"github.com/FranksOps/gleaner/internal/report"
	"github.com/FranksOps/gleaner/internal/storage"
)

func historyCmd(e *env) *cobra.Command {
	var (
		userID string
		limit  int
		since  time.Duration
		format string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent chat log entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			b, err := app.OpenChatLog(cmd.Context(), e.cfg.ChatLog)
			if err != nil {
				return err
			}
			if b == nil {
				return errors.New("chat log is disabled (chatlog.backend=none)")
			}
			defer b.Close()

			filter := storage.Filter{UserID: userID, Limit: limit}
			if since > 0 {
				t := time.Now().Add(-since)
				filter.Since = &t
			}
			entries, err := b.Query(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return report.WriteHistory(cmd.OutOrStdout(), entries, f)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "only show entries for this user id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries to show (0 for all)")
	cmd.Flags().DurationVar(&since, "since", 0, "only show entries newer than this age (e.g. 24h)")
	cmd.Flags().StringVarP(&format, "output", "o", "text", "output format (text, json)")
	return cmd
}
