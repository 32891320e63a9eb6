package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lojaops/gerencial-vendas/internal/model"
	"github.com/lojaops/gerencial-vendas/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	API        APIConfig            `yaml:"api" mapstructure:"api"`
	Auth       AuthConfig           `yaml:"auth" mapstructure:"auth"`
	Pacing     PacingConfig         `yaml:"pacing" mapstructure:"pacing"`
	Sync       SyncConfig           `yaml:"sync" mapstructure:"sync"`
	Reports    []model.ReportConfig `yaml:"reports" mapstructure:"reports"`
	Store      StoreConfig          `yaml:"store" mapstructure:"store"`
	Monitoring MonitoringConfig     `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig            `yaml:"log" mapstructure:"log"`
}

// APIConfig holds the commerce backend endpoint and credentials.
type APIConfig struct {
	BaseURL           string `yaml:"base_url" mapstructure:"base_url"`
	Username          string `yaml:"username" mapstructure:"username"`
	Password          string `yaml:"password" mapstructure:"password"`
	AuthTimeoutSecs   int    `yaml:"auth_timeout_secs" mapstructure:"auth_timeout_secs"`
	ReportTimeoutSecs int    `yaml:"report_timeout_secs" mapstructure:"report_timeout_secs"`
	RateLimit         int    `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// AuthTimeout returns the login request timeout.
func (c APIConfig) AuthTimeout() time.Duration {
	return time.Duration(c.AuthTimeoutSecs) * time.Second
}

// ReportTimeout returns the report request timeout.
func (c APIConfig) ReportTimeout() time.Duration {
	return time.Duration(c.ReportTimeoutSecs) * time.Second
}

// AuthConfig configures login retries.
type AuthConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// Retry converts the settings to a retry policy.
func (c AuthConfig) Retry() resilience.RetryConfig {
	return resilience.FromRetryConfig(c.MaxAttempts, c.InitialBackoffMs, c.MaxBackoffMs)
}

// PacingConfig holds the pause policies between window requests.
type PacingConfig struct {
	Monthly resilience.PacerConfig `yaml:"monthly" mapstructure:"monthly"`
	Weekly  resilience.PacerConfig `yaml:"weekly" mapstructure:"weekly"`
}

// SyncConfig configures a sync run.
type SyncConfig struct {
	LookbackDays    int    `yaml:"lookback_days" mapstructure:"lookback_days"`
	ReportPauseSecs int    `yaml:"report_pause_secs" mapstructure:"report_pause_secs"`
	Concurrency     int    `yaml:"concurrency" mapstructure:"concurrency"`
	ColumnMapFile   string `yaml:"column_map_file" mapstructure:"column_map_file"`
	ExportDir       string `yaml:"export_dir" mapstructure:"export_dir"`
}

// ReportPause returns the pause between report configurations.
func (c SyncConfig) ReportPause() time.Duration {
	return time.Duration(c.ReportPauseSecs) * time.Second
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// MonitoringConfig configures sync health checks.
type MonitoringConfig struct {
	WebhookURL                 string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	LookbackWindowHours        int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold       float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	WindowFailureRateThreshold float64 `yaml:"window_failure_rate_threshold" mapstructure:"window_failure_rate_threshold"`
	StaleAfterHours            int     `yaml:"stale_after_hours" mapstructure:"stale_after_hours"`
	CheckIntervalSecs          int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VENDAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.username", "")
	v.SetDefault("api.password", "")
	v.SetDefault("api.auth_timeout_secs", 10)
	v.SetDefault("api.report_timeout_secs", 60)
	v.SetDefault("api.rate_limit", 5)
	v.SetDefault("auth.max_attempts", 3)
	v.SetDefault("auth.initial_backoff_ms", 500)
	v.SetDefault("auth.max_backoff_ms", 5000)
	v.SetDefault("pacing.monthly.kind", "fixed")
	v.SetDefault("pacing.monthly.interval_ms", 1000)
	v.SetDefault("pacing.monthly.max_interval_ms", 0)
	v.SetDefault("pacing.monthly.multiplier", 0)
	v.SetDefault("pacing.monthly.burst", 0)
	v.SetDefault("pacing.weekly.kind", "fixed")
	v.SetDefault("pacing.weekly.interval_ms", 500)
	v.SetDefault("pacing.weekly.max_interval_ms", 0)
	v.SetDefault("pacing.weekly.multiplier", 0)
	v.SetDefault("pacing.weekly.burst", 0)
	v.SetDefault("sync.lookback_days", 3)
	v.SetDefault("sync.report_pause_secs", 3)
	v.SetDefault("sync.concurrency", 1)
	v.SetDefault("sync.column_map_file", "")
	v.SetDefault("sync.export_dir", "")
	v.SetDefault("reports", []map[string]any{
		{"name": "por_consultor", "list_by": "CONSULTOR", "break_by": "DATA"},
	})
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.lookback_window_hours", 168)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.window_failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.stale_after_hours", 48)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings needed by a command. mode is one of "sync",
// "dry-run", "migrate", "runs" or "check".
func (c *Config) Validate(mode string) error {
	var errs []string

	needStore := false
	needAPI := false
	switch mode {
	case "sync":
		needStore, needAPI = true, true
	case "dry-run":
		needAPI = true
	case "migrate", "runs":
		needStore = true
	case "check":
		needStore = true
		if c.Monitoring.LookbackWindowHours <= 0 {
			errs = append(errs, "monitoring.lookback_window_hours must be > 0")
		}
		if c.Monitoring.FailureRateThreshold < 0 || c.Monitoring.FailureRateThreshold > 1 {
			errs = append(errs, "monitoring.failure_rate_threshold must be between 0 and 1")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if needAPI {
		if c.API.BaseURL == "" {
			errs = append(errs, "api.base_url is required")
		}
		if c.API.Username == "" {
			errs = append(errs, "api.username is required")
		}
		if c.API.Password == "" {
			errs = append(errs, "api.password is required")
		}
		if c.API.AuthTimeoutSecs <= 0 || c.API.ReportTimeoutSecs <= 0 {
			errs = append(errs, "api timeouts must be > 0")
		}
		if len(c.Reports) == 0 {
			errs = append(errs, "at least one report is required")
		}
		for i, r := range c.Reports {
			if r.Name == "" || r.ListBy == "" || r.BreakBy == "" {
				errs = append(errs, fmt.Sprintf("reports[%d] needs name, list_by and break_by", i))
			}
		}
		if c.Sync.Concurrency < 1 || c.Sync.Concurrency > 8 {
			errs = append(errs, fmt.Sprintf("sync.concurrency must be between 1 and 8 (got %d)", c.Sync.Concurrency))
		}
		if c.Sync.LookbackDays < 0 {
			errs = append(errs, "sync.lookback_days must be >= 0")
		}
		if _, err := resilience.NewPacer(c.Pacing.Monthly); err != nil {
			errs = append(errs, fmt.Sprintf("pacing.monthly: %v", err))
		}
		if _, err := resilience.NewPacer(c.Pacing.Weekly); err != nil {
			errs = append(errs, fmt.Sprintf("pacing.weekly: %v", err))
		}
	}

	if needStore {
		switch c.Store.Driver {
		case "postgres", "sqlite":
		default:
			errs = append(errs, fmt.Sprintf("store.driver must be postgres or sqlite (got %q)", c.Store.Driver))
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
