package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/matchday-agent/internal/observability"
	"github.com/jonathan/matchday-agent/internal/pipeline"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run one pass of the enrichment pipeline",
	Long: `Runs the pipeline once: ingest -> discover work -> deliver pending results -> research -> enrich -> persist -> notify.

Undelivered results from earlier runs are sent before any new fixture is researched.
Configuration can be loaded using --config. Command-line arguments override config values.`,
	RunE: runPipelineCmd,
}

var (
	runCategory   string
	runSkipIngest bool
	runMaxPeriods int
	runAPIKey     string
	runVerbose    bool
)

func init() {
	runCommand.Flags().StringVar(&runCategory, "category", "", "Only enrich fixtures in this category (ingestion still covers all)")
	runCommand.Flags().BoolVar(&runSkipIngest, "skip-ingest", false, "Skip the odds fetch and work from stored data")
	runCommand.Flags().IntVar(&runMaxPeriods, "max-periods", 0, "Maximum periods to enrich per run")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed progress")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	// Apply CLI overrides (command-line args take priority)
	if cmd.Flags().Changed("api-key") {
		a.cfg.LLM.APIKey = runAPIKey
	}
	if runCategory != "" && !a.cfg.HasCategory(runCategory) {
		return fmt.Errorf("unknown category %q", runCategory)
	}

	opts := pipeline.RunOptions{
		Category:   runCategory,
		SkipIngest: runSkipIngest,
	}
	if cmd.Flags().Changed("max-periods") {
		opts.MaxPeriods = runMaxPeriods
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	if runVerbose {
		opts.OnProgress = func(e pipeline.ProgressEvent) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", e.Step, e.Message)
		}
	}

	runner, cleanup, err := a.newRunner(ctx, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	summary, runErr := runner.Run(ctx)
	printer.PrintRunSummary(summary)
	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	return nil
}
