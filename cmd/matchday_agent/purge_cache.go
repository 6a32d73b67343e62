package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/matchday-agent/internal/db"
)

var purgeCacheCommand = &cobra.Command{
	Use:   "purge-cache",
	Short: "Delete expired research cache entries from the database",
	Long:  "Removes research_cache rows past their TTL. Entries held in Redis expire on their own.",
	RunE:  runPurgeCacheCmd,
}

func init() {
	rootCmd.AddCommand(purgeCacheCommand)
}

func runPurgeCacheCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := db.NewResearchCache(a.store).PurgeExpired(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired cache entries\n", n)
	return nil
}
