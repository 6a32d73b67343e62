package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jonathan/matchday-agent/internal/observability"
)

var runsCommand = &cobra.Command{
	Use:   "runs",
	Short: "List recent pipeline runs",
	RunE:  runRunsCmd,
}

var runsLimit int

func init() {
	runsCommand.Flags().IntVar(&runsLimit, "limit", 10, "Number of runs to show")

	rootCmd.AddCommand(runsCommand)
}

func runRunsCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	summaries, err := a.store.ListRunSummaries(ctx, runsLimit)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintRunHistory(summaries)
	return nil
}
