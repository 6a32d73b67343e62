package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var regenerateCommand = &cobra.Command{
	Use:   "regenerate",
	Short: "Mark a result stale so the next run produces a new one",
	Long: `Flags the stored result for a fixture as stale. The next run treats the fixture as pending
(while its period is still open and kickoff is in the future) and the replacement is delivered again.`,
	RunE: runRegenerateCmd,
}

var regenerateEventID string

func init() {
	regenerateCommand.Flags().StringVar(&regenerateEventID, "event", "", "External ID of the fixture (required)")
	_ = regenerateCommand.MarkFlagRequired("event")

	rootCmd.AddCommand(regenerateCommand)
}

func runRegenerateCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ok, err := a.store.MarkStale(ctx, regenerateEventID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no result stored for event %s", regenerateEventID)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Marked %s for regeneration\n", regenerateEventID)
	return nil
}
