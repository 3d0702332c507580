// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Alert rule names accepted by ALERT_RULE
const (
	AlertRuleRandom    = "random"
	AlertRuleZScore    = "zscore"
	AlertRuleDeviation = "deviation"
)

// Oracle kinds accepted by ORACLE_KIND
const (
	OracleSimulated = "simulated"
	OracleHTTP      = "http"
	OracleStream    = "stream"
)

// Tick overlap policies accepted by TICK_OVERLAP
const (
	OverlapAllow = "allow"
	OverlapSkip  = "skip"
	OverlapQueue = "queue"
)

// Config holds application configuration
type Config struct {
	GRPCAddr    string
	MetricsAddr string
	APIToken    string
	LogLevel    string
	LogPretty   bool

	// Sampling
	PriceInterval   time.Duration
	PulseInterval   time.Duration
	HistoryCapacity int
	TickOverlap     string

	// Alerting
	AlertRule          string
	AlertProbability   float64
	ZScoreThreshold    float64
	ZScoreMinSamples   int
	DeviationThreshold float64
	StickyAlerts       bool
	FailureThreshold   int

	// Ledgers (a ledger is tracked only when its endpoint is configured)
	QueryTimeout   time.Duration
	BreakerTimeout time.Duration
	HorizonURL     string
	EVMRPCURL      string
	DBConnStr      string

	// Price oracle
	OracleKind string
	OracleURL  string
	OracleRPS  float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		GRPCAddr:    getEnv("GRPC_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		APIToken:    getEnv("API_TOKEN", "dev-token"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogPretty:   getEnvAsBool("LOG_PRETTY", false),

		PriceInterval:   getEnvAsDuration("PRICE_INTERVAL", 10*time.Second),
		PulseInterval:   getEnvAsDuration("PULSE_INTERVAL", 5*time.Second),
		HistoryCapacity: getEnvAsInt("HISTORY_CAPACITY", 20),
		TickOverlap:     getEnv("TICK_OVERLAP", OverlapAllow),

		AlertRule:          getEnv("ALERT_RULE", AlertRuleRandom),
		AlertProbability:   getEnvAsFloat("ALERT_PROBABILITY", 0.2),
		ZScoreThreshold:    getEnvAsFloat("ZSCORE_THRESHOLD", 2.5),
		ZScoreMinSamples:   getEnvAsInt("ZSCORE_MIN_SAMPLES", 5),
		DeviationThreshold: getEnvAsFloat("DEVIATION_THRESHOLD", 0.05),
		StickyAlerts:       getEnvAsBool("STICKY_ALERTS", true),
		FailureThreshold:   getEnvAsInt("FAILURE_THRESHOLD", 3),

		QueryTimeout:   getEnvAsDuration("QUERY_TIMEOUT", 5*time.Second),
		BreakerTimeout: getEnvAsDuration("BREAKER_TIMEOUT", 30*time.Second),
		HorizonURL:     getEnv("HORIZON_URL", ""),
		EVMRPCURL:      getEnv("EVM_RPC_URL", ""),
		DBConnStr:      loadDBConnStr(),

		OracleKind: getEnv("ORACLE_KIND", OracleSimulated),
		OracleURL:  getEnv("ORACLE_URL", ""),
		OracleRPS:  getEnvAsFloat("ORACLE_RPS", 2),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadDBConnStr returns DB_CONN_STR, or builds one from individual vars when DB_HOST is set
// An empty result disables the SQL-backed ledger
func loadDBConnStr() string {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr
	}

	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host,
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "ledgerdash"),
	)
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.PriceInterval <= 0 || c.PulseInterval <= 0 {
		return errors.New("invalid config: tick intervals must be positive")
	}
	if c.HistoryCapacity <= 0 {
		return errors.New("invalid config: HISTORY_CAPACITY must be positive")
	}
	if c.AlertProbability < 0 || c.AlertProbability > 1 {
		return errors.New("invalid config: ALERT_PROBABILITY must be between 0 and 1")
	}
	if c.FailureThreshold <= 0 {
		return errors.New("invalid config: FAILURE_THRESHOLD must be positive")
	}

	switch c.AlertRule {
	case AlertRuleRandom, AlertRuleZScore, AlertRuleDeviation:
	default:
		return fmt.Errorf("invalid config: unknown ALERT_RULE %q", c.AlertRule)
	}

	switch c.TickOverlap {
	case OverlapAllow, OverlapSkip, OverlapQueue:
	default:
		return fmt.Errorf("invalid config: unknown TICK_OVERLAP %q", c.TickOverlap)
	}

	switch c.OracleKind {
	case OracleSimulated:
	case OracleHTTP, OracleStream:
		if c.OracleURL == "" {
			return fmt.Errorf("invalid config: ORACLE_URL must be set for ORACLE_KIND %q", c.OracleKind)
		}
	default:
		return fmt.Errorf("invalid config: unknown ORACLE_KIND %q", c.OracleKind)
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
