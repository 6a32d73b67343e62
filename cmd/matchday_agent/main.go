// Package main provides the entry point for the matchday agent CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "matchday_agent",
	Short: "Matchday odds enrichment agent",
	Long: `Matchday agent ingests fixtures and odds for configured leagues, groups them into weekly periods,
generates an LLM analysis for each upcoming fixture and delivers it to a Telegram channel.

Configuration is read from --config (JSON or YAML), then MATCHDAY_* environment variables.
Command-line flags override both.`,
	SilenceUsage: true,
}

var (
	rootConfigPath  string
	rootDatabaseURL string
	rootLogLevel    string
	rootLogFormat   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "Path to config file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&rootDatabaseURL, "db-url", "", "Database path or URL (defaults to DATABASE_URL env var)")
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&rootLogFormat, "log-format", "", "Log format: text or json")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
