package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

// Trading modes
const (
	ModeLive   = "LIVE"
	ModeDryRun = "DRY_RUN"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	Gateway  GatewayConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Trading  TradingConfig
	Schedule ScheduleConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// GatewayConfig holds the brokerage gateway connection settings
type GatewayConfig struct {
	BaseURL     string
	AccountID   string
	InsecureTLS bool // the local gateway serves a self-signed certificate
	Timeout     time.Duration
	RateLimit   float64 // requests per second
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Enabled bool
	URL     string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// TradingConfig holds order placement settings
type TradingConfig struct {
	Mode             string // LIVE or DRY_RUN
	FXLotSize        float64
	AckTimeout       time.Duration
	MockFallback     bool
	DrawdownAlertPct float64
}

// ScheduleConfig holds cron expressions for background jobs
type ScheduleConfig struct {
	Tickle string
	HWM    string
}

// DryRun reports whether orders go to the paper channel
func (c *Config) DryRun() bool {
	return c.Trading.Mode == ModeDryRun
}

// Load reads configuration from environment variables
// ⭐ SSOT: the only caller of os.Getenv
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "5056"),
		Env:  getEnv("ENV", "development"),

		Gateway: GatewayConfig{
			BaseURL:     strings.TrimRight(getEnv("GATEWAY_BASE_URL", "https://localhost:5055/v1/api"), "/"),
			AccountID:   getEnv("IBKR_ACCOUNT_ID", ""),
			InsecureTLS: getEnvAsBool("GATEWAY_INSECURE_TLS", true),
			Timeout:     getEnvAsDuration("GATEWAY_TIMEOUT", "10s"),
			RateLimit:   getEnvAsFloat("GATEWAY_RATE_LIMIT", 10),
		},

		Database: DatabaseConfig{
			Enabled:         getEnvAsBool("DB_ENABLED", false),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Trading: TradingConfig{
			Mode:             strings.ToUpper(getEnv("TRADING_MODE", ModeLive)),
			FXLotSize:        getEnvAsFloat("FX_LOT_SIZE", 100000),
			AckTimeout:       getEnvAsDuration("ORDER_ACK_TIMEOUT", "5s"),
			MockFallback:     getEnvAsBool("MOCK_FALLBACK", false),
			DrawdownAlertPct: getEnvAsFloat("DRAWDOWN_ALERT_PCT", 3),
		},

		Schedule: ScheduleConfig{
			Tickle: getEnv("TICKLE_SCHEDULE", "0 * * * * *"),
			HWM:    getEnv("HWM_SCHEDULE", "0 */15 * * * *"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs error

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		errs = multierr.Append(errs, fmt.Errorf("ENV must be one of: development, staging, production"))
	}
	if c.Gateway.BaseURL == "" {
		errs = multierr.Append(errs, fmt.Errorf("GATEWAY_BASE_URL is required"))
	}
	if c.Gateway.Timeout <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("GATEWAY_TIMEOUT must be positive"))
	}
	if c.Gateway.RateLimit <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("GATEWAY_RATE_LIMIT must be positive"))
	}
	if c.Database.Enabled && c.Database.URL == "" {
		errs = multierr.Append(errs, fmt.Errorf("DATABASE_URL is required when DB_ENABLED=true"))
	}
	if c.Trading.Mode != ModeLive && c.Trading.Mode != ModeDryRun {
		errs = multierr.Append(errs, fmt.Errorf("TRADING_MODE must be LIVE or DRY_RUN, got %q", c.Trading.Mode))
	}
	if c.Trading.FXLotSize <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("FX_LOT_SIZE must be positive"))
	}
	if c.Trading.AckTimeout <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("ORDER_ACK_TIMEOUT must be positive"))
	}
	if c.Trading.DrawdownAlertPct < 0 {
		errs = multierr.Append(errs, fmt.Errorf("DRAWDOWN_ALERT_PCT must not be negative"))
	}

	return errs
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
