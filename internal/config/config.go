// Package config provides configuration loading and validation for the CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/jonathan/matchday-agent/internal/llm"
	"github.com/jonathan/matchday-agent/internal/period"
)

// EnvPrefix is prepended to every config key when read from the environment
// (database.url → MATCHDAY_DATABASE_URL)
const EnvPrefix = "MATCHDAY"

// dateLayout is the format of season and category anchors
const dateLayout = "2006-01-02"

// Config represents the full agent configuration.
// Values come from defaults, an optional JSON/YAML file and the environment, in that order.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Season     SeasonConfig     `mapstructure:"season"`
	Categories []CategoryConfig `mapstructure:"categories"`
	Selection  SelectionConfig  `mapstructure:"selection"`
	OddsAPI    OddsAPIConfig    `mapstructure:"odds_api"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Research   ResearchConfig   `mapstructure:"research"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Log        LogConfig        `mapstructure:"log"`
}

// DatabaseConfig selects the store backend
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite3 or pgx
	URL    string `mapstructure:"url"`    // file path for sqlite3, connection URL for pgx
}

// SeasonConfig defines the default period anchor
type SeasonConfig struct {
	Anchor          string `mapstructure:"anchor"`           // YYYY-MM-DD
	BoundaryWeekday string `mapstructure:"boundary_weekday"` // e.g. friday
}

// CategoryConfig describes one league
type CategoryConfig struct {
	Name     string `mapstructure:"name"`
	SportKey string `mapstructure:"sport_key"`
	Anchor   string `mapstructure:"anchor"` // optional per-league season start
	HasDraw  bool   `mapstructure:"has_draw"`
}

type SelectionConfig struct {
	MaxPeriods int `mapstructure:"max_periods"`
}

type OddsAPIConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Regions    string        `mapstructure:"regions"`
	Bookmakers []string      `mapstructure:"bookmakers"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type LLMConfig struct {
	APIKey       string `mapstructure:"api_key"`
	ResearchTier string `mapstructure:"research_tier"`
	AnalysisTier string `mapstructure:"analysis_tier"`
}

type ResearchConfig struct {
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	RedisAddr string        `mapstructure:"redis_addr"` // empty uses the store's cache table
}

// AnalysisConfig shapes the generation prompt. Empty values use the embedded defaults.
type AnalysisConfig struct {
	Persona      string         `mapstructure:"persona"`
	Priorities   map[string]int `mapstructure:"priorities"`
	Instructions string         `mapstructure:"instructions"`
}

type TelegramConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Token         string        `mapstructure:"token"`
	DefaultChatID string        `mapstructure:"default_chat_id"`
	Destination   string        `mapstructure:"destination"` // chat ID or @username
	Timeout       time.Duration `mapstructure:"timeout"`
}

type NotifyConfig struct {
	BreakerThreshold int `mapstructure:"breaker_threshold"`
}

type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

type ScheduleConfig struct {
	Cron string `mapstructure:"cron"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envFallbacks are well-known variable names accepted alongside the prefixed ones
var envFallbacks = map[string]string{
	"database.url":             "DATABASE_URL",
	"llm.api_key":              "GEMINI_API_KEY",
	"odds_api.api_key":         "ODDS_API_KEY",
	"telegram.token":           "TELEGRAM_BOT_TOKEN",
	"telegram.default_chat_id": "TELEGRAM_DEFAULT_CHAT_ID",
	"research.redis_addr":      "REDIS_ADDR",
	"metrics.pushgateway_url":  "PUSHGATEWAY_URL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.url", "matchday.db")
	v.SetDefault("season.anchor", "2025-08-15")
	v.SetDefault("season.boundary_weekday", "friday")
	v.SetDefault("categories", []map[string]any{
		{"name": "EPL", "sport_key": "soccer_epl", "has_draw": true},
	})
	v.SetDefault("selection.max_periods", 5)
	v.SetDefault("odds_api.base_url", "https://api.the-odds-api.com")
	v.SetDefault("odds_api.api_key", "")
	v.SetDefault("odds_api.regions", "eu")
	v.SetDefault("odds_api.bookmakers", []string{"unibet", "pinnacle"})
	v.SetDefault("odds_api.timeout", "20s")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.research_tier", string(llm.TierLite))
	v.SetDefault("llm.analysis_tier", string(llm.TierStandard))
	v.SetDefault("research.cache_ttl", "6h")
	v.SetDefault("research.redis_addr", "")
	v.SetDefault("analysis.persona", "")
	v.SetDefault("analysis.instructions", "")
	v.SetDefault("telegram.base_url", "https://api.telegram.org")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.default_chat_id", "")
	v.SetDefault("telegram.destination", "")
	v.SetDefault("telegram.timeout", "10s")
	v.SetDefault("notify.breaker_threshold", 3)
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "matchday")
	v.SetDefault("schedule.cron", "0 */6 * * *")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadConfig loads configuration from defaults, the file at path (if non-empty) and the environment.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, fallback := range envFallbacks {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, fallback); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if path != "" {
		// Resolve path relative to current directory if not absolute
		if !filepath.IsAbs(path) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get current directory: %w", err)
			}
			path = filepath.Join(cwd, path)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Credentials are not checked here since commands that never call out don't need them.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "pgx":
	default:
		return fmt.Errorf("config error: 'database.driver' must be sqlite3 or pgx, got %q", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("config error: 'database.url' is required")
	}

	if _, err := time.Parse(dateLayout, c.Season.Anchor); err != nil {
		return fmt.Errorf("config error: 'season.anchor' must be YYYY-MM-DD: %w", err)
	}
	if _, err := period.ParseWeekday(c.Season.BoundaryWeekday); err != nil {
		return fmt.Errorf("config error: 'season.boundary_weekday': %w", err)
	}

	if len(c.Categories) == 0 {
		return fmt.Errorf("config error: at least one category is required")
	}
	seen := make(map[string]bool, len(c.Categories))
	for i, cat := range c.Categories {
		if cat.Name == "" {
			return fmt.Errorf("config error: categories[%d] has no name", i)
		}
		if seen[cat.Name] {
			return fmt.Errorf("config error: duplicate category %q", cat.Name)
		}
		seen[cat.Name] = true
		if cat.SportKey == "" {
			return fmt.Errorf("config error: category %q has no sport_key", cat.Name)
		}
		if cat.Anchor != "" {
			if _, err := time.Parse(dateLayout, cat.Anchor); err != nil {
				return fmt.Errorf("config error: category %q anchor must be YYYY-MM-DD: %w", cat.Name, err)
			}
		}
	}

	if c.Selection.MaxPeriods < 0 {
		return fmt.Errorf("config error: 'selection.max_periods' must be non-negative")
	}
	if _, err := llm.ParseTier(c.LLM.ResearchTier); err != nil {
		return fmt.Errorf("config error: 'llm.research_tier': %w", err)
	}
	if _, err := llm.ParseTier(c.LLM.AnalysisTier); err != nil {
		return fmt.Errorf("config error: 'llm.analysis_tier': %w", err)
	}
	if c.Research.CacheTTL < 0 {
		return fmt.Errorf("config error: 'research.cache_ttl' must be non-negative")
	}
	for name, weight := range c.Analysis.Priorities {
		if weight < 0 {
			return fmt.Errorf("config error: priority %q must be non-negative", name)
		}
	}
	if c.Notify.BreakerThreshold < 0 {
		return fmt.Errorf("config error: 'notify.breaker_threshold' must be non-negative")
	}

	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return fmt.Errorf("config error: 'schedule.cron': %w", err)
		}
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config error: 'log.level': %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("config error: 'log.format' must be text or json")
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used when a Config is built by hand rather than loaded.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&result.Database.Driver, defaults.Database.Driver)
	fill(&result.Database.URL, defaults.Database.URL)
	fill(&result.Season.Anchor, defaults.Season.Anchor)
	fill(&result.Season.BoundaryWeekday, defaults.Season.BoundaryWeekday)
	fill(&result.OddsAPI.BaseURL, defaults.OddsAPI.BaseURL)
	fill(&result.OddsAPI.APIKey, defaults.OddsAPI.APIKey)
	fill(&result.OddsAPI.Regions, defaults.OddsAPI.Regions)
	fill(&result.LLM.APIKey, defaults.LLM.APIKey)
	fill(&result.LLM.ResearchTier, defaults.LLM.ResearchTier)
	fill(&result.LLM.AnalysisTier, defaults.LLM.AnalysisTier)
	fill(&result.Research.RedisAddr, defaults.Research.RedisAddr)
	fill(&result.Analysis.Persona, defaults.Analysis.Persona)
	fill(&result.Analysis.Instructions, defaults.Analysis.Instructions)
	fill(&result.Telegram.BaseURL, defaults.Telegram.BaseURL)
	fill(&result.Telegram.Token, defaults.Telegram.Token)
	fill(&result.Telegram.DefaultChatID, defaults.Telegram.DefaultChatID)
	fill(&result.Telegram.Destination, defaults.Telegram.Destination)
	fill(&result.Metrics.PushgatewayURL, defaults.Metrics.PushgatewayURL)
	fill(&result.Metrics.Job, defaults.Metrics.Job)
	fill(&result.Schedule.Cron, defaults.Schedule.Cron)
	fill(&result.Log.Level, defaults.Log.Level)
	fill(&result.Log.Format, defaults.Log.Format)

	// Slices and maps: use default if empty
	if len(result.Categories) == 0 {
		result.Categories = defaults.Categories
	}
	if len(result.OddsAPI.Bookmakers) == 0 {
		result.OddsAPI.Bookmakers = defaults.OddsAPI.Bookmakers
	}
	if len(result.Analysis.Priorities) == 0 {
		result.Analysis.Priorities = defaults.Analysis.Priorities
	}

	// Numeric fields: use default if zero
	if result.Selection.MaxPeriods == 0 {
		result.Selection.MaxPeriods = defaults.Selection.MaxPeriods
	}
	if result.OddsAPI.Timeout == 0 {
		result.OddsAPI.Timeout = defaults.OddsAPI.Timeout
	}
	if result.Research.CacheTTL == 0 {
		result.Research.CacheTTL = defaults.Research.CacheTTL
	}
	if result.Telegram.Timeout == 0 {
		result.Telegram.Timeout = defaults.Telegram.Timeout
	}
	if result.Notify.BreakerThreshold == 0 {
		result.Notify.BreakerThreshold = defaults.Notify.BreakerThreshold
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge

	return result
}

// Defaults returns the configuration used when nothing is set
func Defaults() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// defaults are static and always decode
	_ = v.Unmarshal(&cfg)
	return cfg
}

// SeasonAnchor returns the parsed default anchor date in UTC
func (c *Config) SeasonAnchor() (time.Time, error) {
	return time.Parse(dateLayout, c.Season.Anchor)
}

// Boundary returns the parsed boundary weekday
func (c *Config) Boundary() (time.Weekday, error) {
	return period.ParseWeekday(c.Season.BoundaryWeekday)
}

// CategoryNames returns the configured category names in order
func (c *Config) CategoryNames() []string {
	names := make([]string, 0, len(c.Categories))
	for _, cat := range c.Categories {
		names = append(names, cat.Name)
	}
	return names
}

// SportKeys maps category names to provider sport keys
func (c *Config) SportKeys() map[string]string {
	keys := make(map[string]string, len(c.Categories))
	for _, cat := range c.Categories {
		keys[cat.Name] = cat.SportKey
	}
	return keys
}

// TwoWayCategories returns the categories without a draw market
func (c *Config) TwoWayCategories() []string {
	var names []string
	for _, cat := range c.Categories {
		if !cat.HasDraw {
			names = append(names, cat.Name)
		}
	}
	return names
}

// HasCategory reports whether name is configured
func (c *Config) HasCategory(name string) bool {
	for _, cat := range c.Categories {
		if cat.Name == name {
			return true
		}
	}
	return false
}

// NewResolver builds a period resolver with the default and per-category anchors
func (c *Config) NewResolver(logger *logrus.Logger) (*period.Resolver, error) {
	anchor, err := c.SeasonAnchor()
	if err != nil {
		return nil, fmt.Errorf("invalid season anchor: %w", err)
	}
	boundary, err := c.Boundary()
	if err != nil {
		return nil, err
	}
	r := period.NewResolver(anchor, boundary, logger)
	for _, cat := range c.Categories {
		if cat.Anchor == "" {
			continue
		}
		a, err := time.Parse(dateLayout, cat.Anchor)
		if err != nil {
			return nil, fmt.Errorf("invalid anchor for %s: %w", cat.Name, err)
		}
		r.WithCategoryAnchor(cat.Name, a)
	}
	return r, nil
}
