package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lojaops/gerencial-vendas/internal/model"
	"github.com/lojaops/gerencial-vendas/internal/resilience"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 10, cfg.API.AuthTimeoutSecs)
	assert.Equal(t, 60, cfg.API.ReportTimeoutSecs)
	assert.Equal(t, 5, cfg.API.RateLimit)
	assert.Equal(t, 3, cfg.Auth.MaxAttempts)
	assert.Equal(t, 500, cfg.Auth.InitialBackoffMs)
	assert.Equal(t, 5000, cfg.Auth.MaxBackoffMs)
	assert.Equal(t, resilience.PacerFixed, cfg.Pacing.Monthly.Kind)
	assert.Equal(t, 1000, cfg.Pacing.Monthly.IntervalMs)
	assert.Equal(t, resilience.PacerFixed, cfg.Pacing.Weekly.Kind)
	assert.Equal(t, 500, cfg.Pacing.Weekly.IntervalMs)
	assert.Equal(t, 3, cfg.Sync.LookbackDays)
	assert.Equal(t, 3, cfg.Sync.ReportPauseSecs)
	assert.Equal(t, 1, cfg.Sync.Concurrency)
	assert.Empty(t, cfg.Sync.ColumnMapFile)
	assert.Equal(t, []model.ReportConfig{
		{Name: "por_consultor", ListBy: "CONSULTOR", BreakBy: "DATA"},
	}, cfg.Reports)
	assert.Equal(t, 168, cfg.Monitoring.LookbackWindowHours)
	assert.InDelta(t, 0.25, cfg.Monitoring.FailureRateThreshold, 0.001)
	assert.Equal(t, 48, cfg.Monitoring.StaleAfterHours)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
api:
  base_url: https://api.example.test
  username: loja
  report_timeout_secs: 120
store:
  driver: sqlite
  database_url: vendas.db
log:
  level: debug
  format: console
pacing:
  weekly:
    kind: exponential
    interval_ms: 250
    max_interval_ms: 4000
    multiplier: 2
reports:
  - name: por_consultor
    list_by: CONSULTOR
    break_by: DATA
  - name: por_loja
    list_by: LOJA
    break_by: DATA
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.test", cfg.API.BaseURL)
	assert.Equal(t, "loja", cfg.API.Username)
	assert.Equal(t, 120*time.Second, cfg.API.ReportTimeout())
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, resilience.PacerExponential, cfg.Pacing.Weekly.Kind)
	assert.Equal(t, 4000, cfg.Pacing.Weekly.MaxInterval)
	assert.InDelta(t, 2.0, cfg.Pacing.Weekly.Multiplier, 0.001)
	require.Len(t, cfg.Reports, 2)
	assert.Equal(t, "LOJA", cfg.Reports[1].ListBy)
	// Defaults still apply for unset values
	assert.Equal(t, 10*time.Second, cfg.API.AuthTimeout())
	assert.Equal(t, 1000, cfg.Pacing.Monthly.IntervalMs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
api:
  password: from-file
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("VENDAS_API_PASSWORD", "from-env")
	t.Setenv("VENDAS_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.API.Password)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("VENDAS_SYNC_LOOKBACK_DAYS", "7")
	t.Setenv("VENDAS_PACING_MONTHLY_INTERVAL_MS", "2500")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Sync.LookbackDays)
	assert.Equal(t, 2500, cfg.Pacing.Monthly.IntervalMs)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("api: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestAuthRetry(t *testing.T) {
	rc := AuthConfig{MaxAttempts: 5, InitialBackoffMs: 100, MaxBackoffMs: 1000}.Retry()
	assert.Equal(t, 5, rc.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, rc.InitialBackoff)
	assert.Equal(t, time.Second, rc.MaxBackoff)

	def := AuthConfig{}.Retry()
	assert.Equal(t, 3, def.MaxAttempts)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.API.AuthTimeoutSecs = 10
	cfg.API.ReportTimeoutSecs = 60
	cfg.Pacing.Monthly = resilience.PacerConfig{Kind: resilience.PacerFixed, IntervalMs: 1000}
	cfg.Pacing.Weekly = resilience.PacerConfig{Kind: resilience.PacerFixed, IntervalMs: 500}
	cfg.Sync.Concurrency = 1
	cfg.Sync.LookbackDays = 3
	cfg.Reports = []model.ReportConfig{{Name: "por_consultor", ListBy: "CONSULTOR", BreakBy: "DATA"}}
	cfg.Store.Driver = "postgres"
	return cfg
}

func TestValidateSync_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.API.BaseURL = "https://api.example.test"
	cfg.API.Username = "loja"
	cfg.API.Password = "secret"
	cfg.Store.DatabaseURL = "postgres://localhost/vendas"

	assert.NoError(t, cfg.Validate("sync"))
}

func TestValidateSync_MissingFields(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("sync")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "api.base_url is required")
	assert.Contains(t, err.Error(), "api.username is required")
	assert.Contains(t, err.Error(), "api.password is required")
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateDryRun_NoStoreNeeded(t *testing.T) {
	cfg := validDefaults()
	cfg.API.BaseURL = "https://api.example.test"
	cfg.API.Username = "loja"
	cfg.API.Password = "secret"

	assert.NoError(t, cfg.Validate("dry-run"))
}

func TestValidateMigrate_BadDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	cfg.Store.DatabaseURL = "mysql://localhost/vendas"

	err := cfg.Validate("migrate")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `store.driver must be postgres or sqlite (got "mysql")`)
}

func TestValidateMigrate_IgnoresAPI(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "vendas.db"

	assert.NoError(t, cfg.Validate("migrate"))
	assert.NoError(t, cfg.Validate("runs"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.API.BaseURL = "https://api.example.test"
	cfg.API.Username = "loja"
	cfg.API.Password = "secret"

	cfg.Sync.Concurrency = 0
	err := cfg.Validate("dry-run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sync.concurrency must be between 1 and 8")

	cfg.Sync.Concurrency = 9
	err = cfg.Validate("dry-run")
	assert.Error(t, err)

	cfg.Sync.Concurrency = 8
	assert.NoError(t, cfg.Validate("dry-run"))
}

func TestValidateReportsAndPacing(t *testing.T) {
	cfg := validDefaults()
	cfg.API.BaseURL = "https://api.example.test"
	cfg.API.Username = "loja"
	cfg.API.Password = "secret"
	cfg.Reports = []model.ReportConfig{{Name: "x"}}
	cfg.Pacing.Weekly.Kind = "jitter"

	err := cfg.Validate("dry-run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reports[0] needs name, list_by and break_by")
	assert.Contains(t, err.Error(), "pacing.weekly")

	cfg.Reports = nil
	err = cfg.Validate("dry-run")
	assert.Contains(t, err.Error(), "at least one report is required")
}

func TestValidateCheck(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = "postgres://localhost/vendas"
	cfg.Monitoring.LookbackWindowHours = 24
	cfg.Monitoring.FailureRateThreshold = 0.2
	assert.NoError(t, cfg.Validate("check"))

	cfg.Monitoring.LookbackWindowHours = 0
	cfg.Monitoring.FailureRateThreshold = 1.5
	err := cfg.Validate("check")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring.lookback_window_hours must be > 0")
	assert.Contains(t, err.Error(), "monitoring.failure_rate_threshold must be between 0 and 1")
}
