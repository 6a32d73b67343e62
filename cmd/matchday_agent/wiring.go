package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jonathan/matchday-agent/internal/analysis"
	"github.com/jonathan/matchday-agent/internal/config"
	"github.com/jonathan/matchday-agent/internal/db"
	"github.com/jonathan/matchday-agent/internal/ingestion"
	"github.com/jonathan/matchday-agent/internal/llm"
	"github.com/jonathan/matchday-agent/internal/metrics"
	"github.com/jonathan/matchday-agent/internal/notify"
	"github.com/jonathan/matchday-agent/internal/pipeline"
	"github.com/jonathan/matchday-agent/internal/research"
)

// loadConfig reads the config file and environment, then applies root flags.
// Flags override config only when explicitly set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(rootConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("db-url") {
		cfg.Database.URL = rootDatabaseURL
		cfg.Database.Driver = driverFor(rootDatabaseURL)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = rootLogLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = rootLogFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// driverFor picks the pgx driver for postgres URLs and SQLite for anything else
func driverFor(url string) string {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return db.DriverPostgres
	}
	return db.DriverSQLite
}

// newLogger builds the single logger passed to every component
func newLogger(level, format string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(lvl)
	switch format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	return logger, nil
}

// app holds what every command needs
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	store  *db.DB
}

// setup loads config, builds the logger and opens the store
func setup(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	store, err := db.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &app{cfg: cfg, logger: logger, store: store}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// newRunner wires every collaborator from configuration. The returned cleanup
// releases the LLM and Redis clients.
func (a *app) newRunner(ctx context.Context, opts pipeline.RunOptions) (*pipeline.Runner, func(), error) {
	cfg := a.cfg
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	researchTier, err := llm.ParseTier(cfg.LLM.ResearchTier)
	if err != nil {
		return nil, nil, err
	}
	analysisTier, err := llm.ParseTier(cfg.LLM.AnalysisTier)
	if err != nil {
		return nil, nil, err
	}

	deps := pipeline.Dependencies{
		Store:   a.store,
		Metrics: a.newMetrics(),
		Logger:  a.logger,
	}

	if !opts.SkipIngest {
		if cfg.OddsAPI.APIKey == "" {
			return nil, nil, fmt.Errorf("ODDS_API_KEY environment variable or odds_api.api_key is required (or use --skip-ingest)")
		}
		resolver, err := cfg.NewResolver(a.logger)
		if err != nil {
			return nil, nil, err
		}
		fetcher := ingestion.NewOddsAPIFetcher(ingestion.OddsAPIConfig{
			BaseURL:    cfg.OddsAPI.BaseURL,
			APIKey:     cfg.OddsAPI.APIKey,
			Regions:    cfg.OddsAPI.Regions,
			Bookmakers: cfg.OddsAPI.Bookmakers,
			SportKeys:  cfg.SportKeys(),
			Timeout:    cfg.OddsAPI.Timeout,
		})
		deps.Ingester = ingestion.NewAdapter(fetcher, a.store, resolver, a.logger).
			WithTwoWayCategories(cfg.TwoWayCategories()...)
	}

	if cfg.LLM.APIKey == "" {
		return nil, nil, fmt.Errorf("GEMINI_API_KEY environment variable or llm.api_key is required")
	}
	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.LLM.APIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	closers = append(closers, func() { _ = client.Close() })

	cache, closeCache := a.newResearchCache(ctx)
	if closeCache != nil {
		closers = append(closers, closeCache)
	}
	deps.Researcher = research.NewResearcher(client, a.logger,
		research.WithCache(cache, cfg.Research.CacheTTL),
		research.WithTier(researchTier),
	)
	deps.Generator = analysis.NewGenerator(client, analysisTier, a.promptConfig(), a.logger)

	if cfg.Telegram.Token != "" {
		sender := notify.NewTelegramSender(notify.TelegramConfig{
			BaseURL:       cfg.Telegram.BaseURL,
			Token:         cfg.Telegram.Token,
			DefaultChatID: cfg.Telegram.DefaultChatID,
			Timeout:       cfg.Telegram.Timeout,
		})
		deps.Notifier = notify.NewNotifier(sender, cfg.Telegram.Destination, cfg.Notify.BreakerThreshold, a.logger)
	} else {
		a.logger.Warn("TELEGRAM_BOT_TOKEN not set, results will stay undelivered")
	}

	if opts.MaxPeriods == 0 {
		opts.MaxPeriods = cfg.Selection.MaxPeriods
	}
	if len(opts.Categories) == 0 {
		opts.Categories = cfg.CategoryNames()
	}
	return pipeline.NewRunner(deps, opts), cleanup, nil
}

// newResearchCache prefers Redis when configured and reachable, else the store's cache table
func (a *app) newResearchCache(ctx context.Context) (research.Cache, func()) {
	if a.cfg.Research.RedisAddr == "" {
		return db.NewResearchCache(a.store), nil
	}

	client := redis.NewClient(&redis.Options{Addr: a.cfg.Research.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		a.logger.WithError(err).WithField("addr", a.cfg.Research.RedisAddr).
			Warn("redis unreachable, using database research cache")
		_ = client.Close()
		return db.NewResearchCache(a.store), nil
	}
	return research.NewRedisCache(client), func() { _ = client.Close() }
}

func (a *app) newMetrics() metrics.Sink {
	if a.cfg.Metrics.PushgatewayURL == "" {
		return metrics.NewNoopSink()
	}
	return metrics.NewPusher(a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job, prometheus.NewRegistry(), a.logger)
}

func (a *app) promptConfig() analysis.PromptConfig {
	pc := analysis.DefaultPromptConfig()
	if a.cfg.Analysis.Persona != "" {
		pc.Persona = a.cfg.Analysis.Persona
	}
	if a.cfg.Analysis.Instructions != "" {
		pc.Instructions = a.cfg.Analysis.Instructions
	}
	pc.Priorities = a.cfg.Analysis.Priorities
	return pc
}
