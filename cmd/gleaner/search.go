package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/FranksOps/gleaner/internal/app"
	"github.com/FranksOps/gleaner/internal/report"
	"github.com/FranksOps/gleaner/internal/search"
)

func searchCmd(e *env) *cobra.Command {
	var (
		userID    string
		incognito bool
		format    string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search once and print the relevant results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.Search.Run(cmd.Context(), search.Request{
				Query:     strings.Join(args, " "),
				UserID:    userID,
				Incognito: incognito,
			})
			if err != nil {
				return err
			}
			return report.WriteResponse(cmd.OutOrStdout(), resp, f, e.cfg.Search.ExcerptRunes)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id recorded in the chat log")
	cmd.Flags().BoolVar(&incognito, "incognito", false, "do not record this search in the chat log")
	cmd.Flags().StringVarP(&format, "output", "o", "text", "output format (text, json)")
	return cmd
}
