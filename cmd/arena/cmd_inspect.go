package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/modelarena/dataset"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.csv|file.xlsx>",
		Short: "Show the detected layout of a dataset file",
		Long: `Inspect reports the delimiter, headers, row count and the prompt and
reference columns the loader would pick for a dataset file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := dataset.Inspect(args[0])
			if err != nil {
				return fmt.Errorf("inspecting %s: %w", args[0], err)
			}
			return printJSON(cmd.OutOrStdout(), layout)
		},
	}
}
