package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Market data sources
	Alpaca AlpacaConfig
	Naver  NaverConfig

	// Strategy subsystem
	Strategies StrategiesConfig
	Engine     EngineConfig

	MarketData MarketDataConfig

	// Background jobs
	Scheduler SchedulerConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

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

// AlpacaConfig holds Alpaca market data API configuration
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	DataURL   string // empty = SDK default
	Feed      string // iex or sip
}

// NaverConfig holds Naver Finance configuration (KR daily candles + company pages)
type NaverConfig struct {
	ChartURL  string
	FinURL    string
	RateLimit int // requests per second for outbound calls
}

// StrategiesConfig holds strategy discovery configuration
type StrategiesConfig struct {
	Dir            string
	ScanOnStart    bool
	RescanSchedule string // cron expression with seconds, empty = disabled
}

// EngineConfig holds execution engine tuning
type EngineConfig struct {
	StrategyTimeout time.Duration // wall clock allowed per strategy Analyze call
}

// MarketDataConfig holds provider chain tuning
type MarketDataConfig struct {
	LookbackDays int           // default daily candle history per symbol
	CacheTTL     time.Duration // redis cache TTL for candle series
	MaxAge       time.Duration // how stale stored candles may be before re-fetch
	SyncWorkers  int           // worker pool size for the price sync job
}

// SchedulerConfig holds cron job configuration
type SchedulerConfig struct {
	Enabled           bool
	PriceSyncSchedule string
	EnrichSchedule    string
	RetentionSchedule string
	RetentionDays     int // runs older than this are purged, 0 = keep forever
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8091"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		// Market data sources
		Alpaca: AlpacaConfig{
			APIKey:    getEnv("ALPACA_API_KEY", ""),
			APISecret: getEnv("ALPACA_API_SECRET", ""),
			DataURL:   getEnv("ALPACA_DATA_URL", ""),
			Feed:      getEnv("ALPACA_FEED", "iex"),
		},

		Naver: NaverConfig{
			ChartURL:  getEnv("NAVER_CHART_URL", "https://fchart.stock.naver.com"),
			FinURL:    getEnv("NAVER_FIN_URL", "https://finance.naver.com"),
			RateLimit: getEnvAsInt("NAVER_RATE_LIMIT", 5),
		},

		// Strategy subsystem
		Strategies: StrategiesConfig{
			Dir:            getEnv("STRATEGIES_DIR", "strategies"),
			ScanOnStart:    getEnvAsBool("STRATEGIES_SCAN_ON_START", true),
			RescanSchedule: getEnv("STRATEGIES_RESCAN_SCHEDULE", "0 */30 * * * *"),
		},

		Engine: EngineConfig{
			StrategyTimeout: getEnvAsDuration("ENGINE_STRATEGY_TIMEOUT", "60s"),
		},

		MarketData: MarketDataConfig{
			LookbackDays: getEnvAsInt("MARKET_DATA_LOOKBACK_DAYS", 260),
			CacheTTL:     getEnvAsDuration("MARKET_DATA_CACHE_TTL", "10m"),
			MaxAge:       getEnvAsDuration("MARKET_DATA_MAX_AGE", "72h"),
			SyncWorkers:  getEnvAsInt("MARKET_DATA_SYNC_WORKERS", 8),
		},

		// Background jobs
		Scheduler: SchedulerConfig{
			Enabled:           getEnvAsBool("SCHEDULER_ENABLED", true),
			PriceSyncSchedule: getEnv("PRICE_SYNC_SCHEDULE", "0 30 18 * * 1-5"),
			EnrichSchedule:    getEnv("ENRICH_SCHEDULE", "0 0 7 * * *"),
			RetentionSchedule: getEnv("RETENTION_SCHEDULE", "0 0 4 * * *"),
			RetentionDays:     getEnvAsInt("RESULTS_RETENTION_DAYS", 0),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Engine.StrategyTimeout <= 0 {
		return fmt.Errorf("ENGINE_STRATEGY_TIMEOUT must be positive")
	}

	if c.MarketData.LookbackDays < 1 {
		return fmt.Errorf("MARKET_DATA_LOOKBACK_DAYS must be at least 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
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
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
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
