package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the one-pager console server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Dedup     DedupConfig
	Sweep     SweepConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// DedupConfig controls the duplicate-request window. A submit for the same
// company and website inside the window attaches to the existing in-progress
// job instead of starting a new one.
type DedupConfig struct {
	Window time.Duration
}

// SweepConfig controls reclamation of abandoned jobs. StaleAfter must be
// generously larger than the worst-case pipeline duration; elapsed time since
// creation is the only abandonment signal.
type SweepConfig struct {
	StaleAfter time.Duration
	Interval   time.Duration
}

type RateLimitConfig struct {
	PerMinute int
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("ONEPAGER_PORT", 8080),
			Env:  envString("ONEPAGER_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Dedup: DedupConfig{
			Window: time.Duration(envInt("DEDUP_WINDOW_MINUTES", 5)) * time.Minute,
		},
		Sweep: SweepConfig{
			StaleAfter: time.Duration(envInt("SWEEP_STALE_AFTER_HOURS", 24)) * time.Hour,
			Interval:   envDuration("SWEEP_INTERVAL", time.Hour),
		},
		RateLimit: RateLimitConfig{
			PerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Dedup.Window <= 0 {
		return fmt.Errorf("DEDUP_WINDOW_MINUTES must be positive, got %v", c.Dedup.Window)
	}

	if c.Sweep.StaleAfter <= 0 {
		return fmt.Errorf("SWEEP_STALE_AFTER_HOURS must be positive, got %v", c.Sweep.StaleAfter)
	}
	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %v", c.Sweep.Interval)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
