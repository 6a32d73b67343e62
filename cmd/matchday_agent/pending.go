package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/matchday-agent/internal/observability"
	"github.com/jonathan/matchday-agent/internal/selection"
)

var pendingCommand = &cobra.Command{
	Use:   "pending",
	Short: "Show fixtures awaiting enrichment and results awaiting delivery",
	Long:  "Prints the work the next run would pick up, without changing anything.",
	RunE:  runPendingCmd,
}

var pendingCategory string

func init() {
	pendingCommand.Flags().StringVar(&pendingCategory, "category", "", "Only show fixtures in this category")

	rootCmd.AddCommand(pendingCommand)
}

func runPendingCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	selector := selection.NewSelector(a.store, a.cfg.Selection.MaxPeriods)
	work, err := selector.PendingEnrichment(ctx, time.Now(), pendingCategory)
	if err != nil {
		return err
	}
	deliveries, err := selector.PendingDelivery(ctx)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	printer.PrintPendingWork(work)
	printer.PrintPendingDeliveries(deliveries)
	return nil
}
