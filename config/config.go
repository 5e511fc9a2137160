package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Import    ImportConfig    `mapstructure:"import"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Reports   ReportsConfig   `mapstructure:"reports"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
}

// ImportConfig holds reconciliation engine settings
type ImportConfig struct {
	BatchSize           int     `mapstructure:"batch_size"`
	DedupeWithinRun     bool    `mapstructure:"dedupe_within_run"`
	DefaultUnit         string  `mapstructure:"default_unit"`
	DefaultMinThreshold float64 `mapstructure:"default_min_threshold"`
	UpdatedBy           string  `mapstructure:"updated_by"`
	MaxUploadMB         int64   `mapstructure:"max_upload_mb"`
}

// MatchingConfig holds catalog matcher settings
type MatchingConfig struct {
	MinConfidence float64 `mapstructure:"min_confidence"`
	EnableFuzzy   bool    `mapstructure:"enable_fuzzy"`
	Debug         bool    `mapstructure:"debug"`
}

// CatalogConfig selects and configures the catalog provider
type CatalogConfig struct {
	Driver string    `mapstructure:"driver"` // "memory", "sqlite", "postgres" or "api"
	DSN    string    `mapstructure:"dsn"`
	API    APIConfig `mapstructure:"api"`
}

// APIConfig holds REST catalog settings
type APIConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	RequestsPerSecond float64       `mapstructure:"rps"`
	Burst             int           `mapstructure:"burst"`
	MaxRetries        int           `mapstructure:"max_retries"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// ReportsConfig holds import report storage settings
type ReportsConfig struct {
	Type          string        `mapstructure:"type"` // "memory" or "redis"
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration like Load, reading the given file instead of
// searching the default paths when configFile is not empty.
func LoadFile(configFile string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/barstock/")
	}

	// BARSTOCK_IMPORT_BATCH_SIZE -> import.batch_size
	v.SetEnvPrefix("BARSTOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads ./.env when present. Variables already set in the
// environment win.
func loadEnvFile() error {
	err := godotenv.Load(".env")
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values. Every key needs a default so
// AutomaticEnv can bind it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("import.batch_size", 500)
	v.SetDefault("import.dedupe_within_run", false)
	v.SetDefault("import.default_unit", "bouteille")
	v.SetDefault("import.default_min_threshold", 0)
	v.SetDefault("import.updated_by", "import")
	v.SetDefault("import.max_upload_mb", 10)

	v.SetDefault("matching.min_confidence", 0.3)
	v.SetDefault("matching.enable_fuzzy", true)
	v.SetDefault("matching.debug", false)

	v.SetDefault("catalog.driver", "memory")
	v.SetDefault("catalog.dsn", "")
	v.SetDefault("catalog.api.base_url", "")
	v.SetDefault("catalog.api.api_key", "")
	v.SetDefault("catalog.api.rps", 5)
	v.SetDefault("catalog.api.burst", 10)
	v.SetDefault("catalog.api.max_retries", 3)
	v.SetDefault("catalog.api.timeout", "10s")

	v.SetDefault("reports.type", "memory")
	v.SetDefault("reports.redis_addr", "")
	v.SetDefault("reports.redis_password", "")
	v.SetDefault("reports.redis_db", 0)
	v.SetDefault("reports.ttl", "24h")

	v.SetDefault("ratelimit.per_ip", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be 'console' or 'json', got: %s", config.Log.Format)
	}

	if config.Import.BatchSize <= 0 {
		return fmt.Errorf("import batch size must be positive, got: %d", config.Import.BatchSize)
	}
	if config.Import.DefaultMinThreshold < 0 {
		return fmt.Errorf("import default min threshold must not be negative")
	}
	if config.Import.MaxUploadMB <= 0 {
		return fmt.Errorf("import max upload size must be positive, got: %d", config.Import.MaxUploadMB)
	}

	if config.Matching.MinConfidence < 0 || config.Matching.MinConfidence > 1 {
		return fmt.Errorf("matching min confidence must be within [0, 1], got: %v", config.Matching.MinConfidence)
	}

	switch config.Catalog.Driver {
	case "memory":
	case "sqlite", "postgres":
		if config.Catalog.DSN == "" {
			return fmt.Errorf("catalog DSN is required for driver '%s' (set BARSTOCK_CATALOG_DSN)", config.Catalog.Driver)
		}
	case "api":
		if config.Catalog.API.BaseURL == "" {
			return fmt.Errorf("catalog API base URL is required (set BARSTOCK_CATALOG_API_BASE_URL)")
		}
		if config.Catalog.API.APIKey == "" {
			return fmt.Errorf("catalog API key is required (set BARSTOCK_CATALOG_API_API_KEY)")
		}
	default:
		return fmt.Errorf("catalog driver must be 'memory', 'sqlite', 'postgres' or 'api', got: %s", config.Catalog.Driver)
	}

	if config.Reports.Type != "memory" && config.Reports.Type != "redis" {
		return fmt.Errorf("reports type must be 'memory' or 'redis', got: %s", config.Reports.Type)
	}
	if config.Reports.Type == "redis" && config.Reports.RedisAddr == "" {
		return fmt.Errorf("Redis address is required when reports type is 'redis'")
	}

	if config.RateLimit.PerIP <= 0 {
		return fmt.Errorf("per-IP rate limit must be positive, got: %d", config.RateLimit.PerIP)
	}

	return nil
}
