package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/matchday-agent/internal/observability"
)

var resolveCommand = &cobra.Command{
	Use:   "resolve",
	Short: "Show the period window for a category and time",
	Long:  "Resolves which period a kickoff time falls into, using the configured season anchor and boundary weekday.",
	RunE:  runResolveCmd,
}

var (
	resolveCategory string
	resolveAt       string
)

func init() {
	resolveCommand.Flags().StringVar(&resolveCategory, "category", "", "Category name (required)")
	resolveCommand.Flags().StringVar(&resolveAt, "at", "", "Time to resolve, RFC 3339 (defaults to now)")
	_ = resolveCommand.MarkFlagRequired("category")

	rootCmd.AddCommand(resolveCommand)
}

func runResolveCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	now := time.Now()
	at := now
	if resolveAt != "" {
		at, err = time.Parse(time.RFC3339, resolveAt)
		if err != nil {
			return fmt.Errorf("invalid --at time: %w", err)
		}
	}

	resolver, err := cfg.NewResolver(logger)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintWindow(resolver.Resolve(resolveCategory, at), now)
	return nil
}
