package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var resetDeliveryCommand = &cobra.Command{
	Use:   "reset-delivery",
	Short: "Mark results undelivered so the next run sends them again",
	Long:  "Clears the delivered flag for one fixture (--event) or for every stored result (--all).",
	RunE:  runResetDeliveryCmd,
}

var (
	resetEventID string
	resetAll     bool
)

func init() {
	resetDeliveryCommand.Flags().StringVar(&resetEventID, "event", "", "External ID of the fixture to reset")
	resetDeliveryCommand.Flags().BoolVar(&resetAll, "all", false, "Reset every result")

	rootCmd.AddCommand(resetDeliveryCommand)
}

func runResetDeliveryCmd(cmd *cobra.Command, _ []string) error {
	if resetEventID == "" && !resetAll {
		return fmt.Errorf("either --event or --all must be provided")
	}
	if resetEventID != "" && resetAll {
		return fmt.Errorf("--event and --all are mutually exclusive; provide only one")
	}

	ctx := context.Background()
	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	// an empty ID resets every row
	n, err := a.store.ResetDelivery(ctx, resetEventID)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Reset %d result(s) to undelivered\n", n)
	return nil
}
