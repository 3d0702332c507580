package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.GRPCAddr)
	assert.Equal(t, "dev-token", cfg.APIToken)
	assert.Equal(t, 10*time.Second, cfg.PriceInterval)
	assert.Equal(t, 5*time.Second, cfg.PulseInterval)
	assert.Equal(t, 20, cfg.HistoryCapacity)
	assert.Equal(t, AlertRuleRandom, cfg.AlertRule)
	assert.Equal(t, 0.2, cfg.AlertProbability)
	assert.True(t, cfg.StickyAlerts)
	assert.Equal(t, OverlapAllow, cfg.TickOverlap)
	assert.Equal(t, OracleSimulated, cfg.OracleKind)
	assert.Equal(t, 30*time.Second, cfg.BreakerTimeout)
	assert.Empty(t, cfg.DBConnStr)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PRICE_INTERVAL", "2s")
	t.Setenv("HISTORY_CAPACITY", "50")
	t.Setenv("ALERT_RULE", "zscore")
	t.Setenv("STICKY_ALERTS", "false")
	t.Setenv("ORACLE_KIND", "http")
	t.Setenv("ORACLE_URL", "http://oracle.local")
	t.Setenv("DB_HOST", "db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.PriceInterval)
	assert.Equal(t, 50, cfg.HistoryCapacity)
	assert.Equal(t, AlertRuleZScore, cfg.AlertRule)
	assert.False(t, cfg.StickyAlerts)
	assert.Equal(t, "http://oracle.local", cfg.OracleURL)
	assert.Equal(t, "host=db port=5432 user=postgres password=postgres dbname=ledgerdash sslmode=disable", cfg.DBConnStr)
}

func TestLoad_ExplicitConnStrWins(t *testing.T) {
	t.Setenv("DB_CONN_STR", "postgres://x")
	t.Setenv("DB_HOST", "db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://x", cfg.DBConnStr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"Unknown alert rule", func(c *Config) { c.AlertRule = "magic" }, "unknown ALERT_RULE"},
		{"Unknown overlap", func(c *Config) { c.TickOverlap = "drop" }, "unknown TICK_OVERLAP"},
		{"HTTP oracle without URL", func(c *Config) { c.OracleKind = OracleHTTP; c.OracleURL = "" }, "ORACLE_URL must be set"},
		{"Zero interval", func(c *Config) { c.PriceInterval = 0 }, "tick intervals must be positive"},
		{"Zero capacity", func(c *Config) { c.HistoryCapacity = 0 }, "HISTORY_CAPACITY must be positive"},
		{"Probability above one", func(c *Config) { c.AlertProbability = 1.5 }, "ALERT_PROBABILITY"},
		{"Zero failure threshold", func(c *Config) { c.FailureThreshold = 0 }, "FAILURE_THRESHOLD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
