package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Analytics AnalyticsConfig
	Logging   LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds the optional analytics cache configuration. An empty
// address disables caching entirely.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// AnalyticsConfig selects which analyses run and with which windows. This is
// an explicit object passed into the analytics entry point; there are no
// ambient feature flags.
type AnalyticsConfig struct {
	TopN              int
	TrendMonths       int
	OveruseWindowDays int
	Correlations      bool
	MedicationOveruse bool
	Trends            bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load reads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.maxopenconns", 25)
	v.SetDefault("database.maxidleconns", 5)
	v.SetDefault("database.connmaxlifetime", 5*time.Minute)

	// Redis defaults
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 5*time.Minute)

	// Analytics defaults
	v.SetDefault("analytics.topn", 8)
	v.SetDefault("analytics.trendmonths", 6)
	v.SetDefault("analytics.overusewindowdays", 90)
	v.SetDefault("analytics.correlations", true)
	v.SetDefault("analytics.medicationoveruse", true)
	v.SetDefault("analytics.trends", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.environment", "ENV", "ENVIRONMENT")

	// Database
	v.BindEnv("database.url", "DATABASE_URL")

	// Redis
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// Analytics
	v.BindEnv("analytics.topn", "ANALYTICS_TOP_N")
	v.BindEnv("analytics.trendmonths", "ANALYTICS_TREND_MONTHS")
	v.BindEnv("analytics.overusewindowdays", "ANALYTICS_OVERUSE_WINDOW_DAYS")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}

	if c.Analytics.TopN < 1 {
		return fmt.Errorf("analytics.topn must be at least 1")
	}

	if c.Analytics.TrendMonths < 2 {
		return fmt.Errorf("analytics.trendmonths must be at least 2")
	}

	if c.Analytics.OveruseWindowDays < 30 {
		return fmt.Errorf("analytics.overusewindowdays must be at least 30")
	}

	return nil
}
