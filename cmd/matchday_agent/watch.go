package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jonathan/matchday-agent/internal/observability"
	"github.com/jonathan/matchday-agent/internal/pipeline"
)

var watchCommand = &cobra.Command{
	Use:   "watch",
	Short: "Run the pipeline on a cron schedule",
	Long: `Runs the pipeline on the configured schedule (schedule.cron, standard five-field syntax) until interrupted.

A run that is still in progress when the next tick fires causes that tick to be skipped, so runs never
overlap within this process. Running more than one watcher against the same database is not supported.`,
	RunE: runWatchCmd,
}

var (
	watchSchedule   string
	watchRunOnStart bool
)

func init() {
	watchCommand.Flags().StringVar(&watchSchedule, "schedule", "", "Cron expression (overrides schedule.cron)")
	watchCommand.Flags().BoolVar(&watchRunOnStart, "run-on-start", false, "Run once immediately before waiting for the first tick")

	rootCmd.AddCommand(watchCommand)
}

func runWatchCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	schedule := a.cfg.Schedule.Cron
	if cmd.Flags().Changed("schedule") {
		schedule = watchSchedule
	}
	if schedule == "" {
		return fmt.Errorf("a schedule is required (--schedule or schedule.cron)")
	}

	runner, cleanup, err := a.newRunner(ctx, pipeline.RunOptions{})
	if err != nil {
		return err
	}
	defer cleanup()

	printer := observability.NewPrinter(cmd.OutOrStdout())
	job := func() {
		summary, err := runner.Run(ctx)
		if err != nil {
			a.logger.WithError(err).Error("scheduled run failed")
		}
		printer.PrintRunSummary(summary)
	}

	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger{a.logger}),
		cron.SkipIfStillRunning(cronLogger{a.logger}),
	))
	if _, err := c.AddFunc(schedule, job); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	a.logger.WithField("schedule", schedule).Info("watching")
	if watchRunOnStart {
		job()
	}
	c.Start()

	<-ctx.Done()
	a.logger.Info("shutting down, waiting for the current run")
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts logrus to the cron.Logger interface
type cronLogger struct {
	logger *logrus.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(kvFields(keysAndValues)).WithError(err).Error(msg)
}

func kvFields(keysAndValues []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
