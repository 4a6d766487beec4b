package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FranksOps/gleaner/internal/corpus"
)

func corpusCmd(e *env) *cobra.Command {
	var phrasesOnly bool

	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Print the current prompt corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := corpus.NewFile(e.cfg.Corpus.Path)
			out := cmd.OutOrStdout()

			if !phrasesOnly {
				data, err := f.Read()
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			phrases, err := f.Phrases()
			if err != nil {
				return err
			}
			for _, p := range phrases {
				if _, err := fmt.Fprintln(out, p); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&phrasesOnly, "phrases", false, "print decoded phrases without the CSV header")
	return cmd
}
