package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string `validate:"required,numeric"`
	Env  string `validate:"oneof=development staging production"`

	// Database (snapshot store, postgres backend only)
	Database DatabaseConfig

	// Redis (optional shared store)
	Redis RedisConfig

	// External sources
	FMP          FMPConfig
	BTCFeed      BTCFeedConfig
	CUSIPDataURL string

	// Sync job
	Sync SyncConfig

	// Snapshot store
	Snapshot SnapshotConfig

	// Detail cache
	DetailCacheTTL time.Duration `validate:"gt=0"`

	// Billing / entitlement collaborator (empty disables gating)
	EntitlementURL string

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
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

// FMPConfig holds the market-data API configuration
type FMPConfig struct {
	APIKey        string
	BaseURL       string        `validate:"required,url"`
	Timeout       time.Duration `validate:"gt=0"`
	RatePerMinute int           `validate:"gte=0"`
}

// BTCFeedConfig holds the Bitcoin ETF holdings feed configuration
type BTCFeedConfig struct {
	URL     string        `validate:"required,url"`
	Timeout time.Duration `validate:"gt=0"`
}

// SyncConfig holds snapshot sync configuration
type SyncConfig struct {
	APIKey       string
	Schedule     string `validate:"required"`
	RequestDelay time.Duration
	MaxETFs      int `validate:"gt=0"`
}

// SnapshotConfig selects the snapshot store backend
type SnapshotConfig struct {
	Backend string `validate:"oneof=file postgres"`
	Path    string
}

// HasFMPKey reports whether a market-data API key is configured
func (c *Config) HasFMPKey() bool {
	return strings.TrimSpace(c.FMP.APIKey) != ""
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	fmpKey := getEnv("FMP_API_KEY", "")
	if fmpKey == "" {
		fmpKey = getEnv("VITE_FMP_API_KEY", "")
	}

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "3001"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 5),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// External sources
		FMP: FMPConfig{
			APIKey:        strings.TrimSpace(fmpKey),
			BaseURL:       getEnv("FMP_BASE_URL", "https://financialmodelingprep.com"),
			Timeout:       getEnvAsDuration("FMP_TIMEOUT", "8s"),
			RatePerMinute: getEnvAsInt("FMP_RATE_PER_MINUTE", 300),
		},
		BTCFeed: BTCFeedConfig{
			URL:     getEnv("BTC_ETF_DATA_URL", "https://www.btcetfdata.com/v1/current.json"),
			Timeout: getEnvAsDuration("BTC_ETF_DATA_TIMEOUT", "10s"),
		},
		CUSIPDataURL: getEnv("CUSIP_DATA_URL", ""),

		// Sync
		Sync: SyncConfig{
			APIKey:       getEnv("SYNC_API_KEY", ""),
			Schedule:     getEnv("SYNC_SCHEDULE", "0 0 * * * *"),
			RequestDelay: getEnvAsDuration("SYNC_REQUEST_DELAY", "900ms"),
			MaxETFs:      getEnvAsInt("SYNC_MAX_ETFS", 50),
		},

		Snapshot: SnapshotConfig{
			Backend: getEnv("SNAPSHOT_BACKEND", "file"),
			Path:    getEnv("SNAPSHOT_PATH", filepath.Join("data", "etfs.json")),
		},

		DetailCacheTTL: getEnvAsDuration("DETAIL_CACHE_TTL", "10m"),

		EntitlementURL: getEnv("ENTITLEMENT_URL", ""),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	// Postgres backend needs a connection string
	if c.Snapshot.Backend == "postgres" && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when SNAPSHOT_BACKEND=postgres")
	}

	if c.Snapshot.Backend == "file" && c.Snapshot.Path == "" {
		return fmt.Errorf("SNAPSHOT_PATH is required when SNAPSHOT_BACKEND=file")
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
