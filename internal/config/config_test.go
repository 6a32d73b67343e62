package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "2025-08-15", cfg.Season.Anchor)
	assert.Equal(t, []string{"EPL"}, cfg.CategoryNames())
	assert.Equal(t, "soccer_epl", cfg.SportKeys()["EPL"])
	assert.Empty(t, cfg.TwoWayCategories())
	assert.Equal(t, 5, cfg.Selection.MaxPeriods)
	assert.Equal(t, 6*time.Hour, cfg.Research.CacheTTL)
	assert.Equal(t, 20*time.Second, cfg.OddsAPI.Timeout)
	assert.Equal(t, []string{"unibet", "pinnacle"}, cfg.OddsAPI.Bookmakers)
	assert.Equal(t, 3, cfg.Notify.BreakerThreshold)
	assert.Equal(t, "matchday", cfg.Metrics.Job)
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"database": {"driver": "pgx", "url": "postgres://localhost/matchday"},
		"categories": [
			{"name": "EPL", "sport_key": "soccer_epl", "has_draw": true},
			{"name": "NBA", "sport_key": "basketball_nba", "anchor": "2025-10-21"}
		],
		"analysis": {"persona": "a sharp bettor", "priorities": {"injuries": 3, "form": 1}},
		"research": {"cache_ttl": "90m"}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/matchday", cfg.Database.URL)
	assert.Equal(t, []string{"EPL", "NBA"}, cfg.CategoryNames())
	assert.Equal(t, []string{"NBA"}, cfg.TwoWayCategories())
	assert.Equal(t, "a sharp bettor", cfg.Analysis.Persona)
	assert.Equal(t, 3, cfg.Analysis.Priorities["injuries"])
	assert.Equal(t, 90*time.Minute, cfg.Research.CacheTTL)
	assert.True(t, cfg.HasCategory("NBA"))
	assert.False(t, cfg.HasCategory("MLB"))
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
season:
  anchor: "2025-08-22"
  boundary_weekday: saturday
log:
  level: debug
  format: json
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "2025-08-22", cfg.Season.Anchor)
	assert.Equal(t, "debug", cfg.Log.Level)

	boundary, err := cfg.Boundary()
	require.NoError(t, err)
	assert.Equal(t, time.Saturday, boundary)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{ invalid json }`)

	cfg, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("MATCHDAY_DATABASE_URL", "/tmp/from-env.db")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("MATCHDAY_LOG_LEVEL", "warn")
	t.Setenv("TELEGRAM_BOT_TOKEN", "bot-token")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-env.db", cfg.Database.URL)
	assert.Equal(t, "gemini-key", cfg.LLM.APIKey)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "bot-token", cfg.Telegram.Token)
}

func TestLoadConfig_PrefixedEnvWinsOverFallback(t *testing.T) {
	t.Setenv("MATCHDAY_DATABASE_URL", "/tmp/prefixed.db")
	t.Setenv("DATABASE_URL", "/tmp/fallback.db")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/prefixed.db", cfg.Database.URL)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "config.json", `{"selection": {"max_periods": 2}}`)
	t.Setenv("MATCHDAY_SELECTION_MAX_PERIODS", "7")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Selection.MaxPeriods)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"empty url", func(c *Config) { c.Database.URL = "" }, "database.url"},
		{"bad anchor", func(c *Config) { c.Season.Anchor = "15/08/2025" }, "season.anchor"},
		{"bad weekday", func(c *Config) { c.Season.BoundaryWeekday = "someday" }, "boundary_weekday"},
		{"no categories", func(c *Config) { c.Categories = nil }, "at least one category"},
		{"duplicate category", func(c *Config) {
			c.Categories = append(c.Categories, c.Categories[0])
		}, "duplicate category"},
		{"missing sport key", func(c *Config) { c.Categories[0].SportKey = "" }, "sport_key"},
		{"bad category anchor", func(c *Config) { c.Categories[0].Anchor = "soon" }, "anchor must be"},
		{"negative max periods", func(c *Config) { c.Selection.MaxPeriods = -1 }, "max_periods"},
		{"bad tier", func(c *Config) { c.LLM.AnalysisTier = "ultra" }, "analysis_tier"},
		{"negative priority", func(c *Config) { c.Analysis.Priorities = map[string]int{"form": -1} }, "priority"},
		{"bad cron", func(c *Config) { c.Schedule.Cron = "every tuesday" }, "schedule.cron"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Categories = append([]CategoryConfig(nil), cfg.Categories...)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := &Config{
		Database:   DatabaseConfig{URL: "custom.db"},
		Categories: []CategoryConfig{{Name: "NBA", SportKey: "basketball_nba"}},
		Selection:  SelectionConfig{MaxPeriods: 2},
	}

	merged := cfg.MergeWithDefaults(Defaults())

	assert.Equal(t, "custom.db", merged.Database.URL)
	assert.Equal(t, "sqlite3", merged.Database.Driver)
	assert.Equal(t, []string{"NBA"}, merged.CategoryNames())
	assert.Equal(t, 2, merged.Selection.MaxPeriods)
	assert.Equal(t, 6*time.Hour, merged.Research.CacheTTL)
	assert.Equal(t, "friday", merged.Season.BoundaryWeekday)
	assert.NoError(t, merged.Validate())

	// original untouched
	assert.Empty(t, cfg.Database.Driver)
}

func TestNewResolver_CategoryAnchors(t *testing.T) {
	cfg := Defaults()
	cfg.Categories = []CategoryConfig{
		{Name: "EPL", SportKey: "soccer_epl", HasDraw: true},
		{Name: "NBA", SportKey: "basketball_nba", Anchor: "2025-10-21"},
	}
	logger, _ := test.NewNullLogger()

	r, err := cfg.NewResolver(logger)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC), r.AnchorFor("EPL"))
	// 2025-10-21 is a Tuesday, advanced to Friday
	assert.Equal(t, time.Date(2025, 10, 24, 0, 0, 0, 0, time.UTC), r.AnchorFor("NBA"))
}
