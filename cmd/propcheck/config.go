package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"metaprops/internal/domain/constraint"
)

// config is resolved from flags, falling back to environment variables.
type config struct {
	LogLevel        string
	Development     bool
	TimeZone        string
	DatabaseURL     string
	Fixture         string
	CacheSize       int
	MetricsTextfile string
}

func configFromEnv() config {
	return config{
		LogLevel:        getEnv("LOG_LEVEL", "warn"),
		Development:     getEnv("APP_ENV", "production") == "development",
		TimeZone:        getEnv("TIMEZONE", ""),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		CacheSize:       getEnvInt("CONSTRAINT_CACHE_SIZE", constraint.DefaultCacheSize),
		MetricsTextfile: getEnv("METRICS_TEXTFILE", ""),
	}
}

func (c *config) bindFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error) [LOG_LEVEL]")
	f.StringVar(&c.TimeZone, "timezone", c.TimeZone, "IANA zone used to normalize dates; empty means local [TIMEZONE]")
	f.StringVar(&c.DatabaseURL, "database-url", c.DatabaseURL, "PostgreSQL DSN [DATABASE_URL]")
	f.StringVarP(&c.Fixture, "fixture", "f", c.Fixture, "YAML fixture with property types, entity types and entities")
	f.IntVar(&c.CacheSize, "cache-size", c.CacheSize, "Compiled constraint cache size, 0 disables [CONSTRAINT_CACHE_SIZE]")
	f.StringVar(&c.MetricsTextfile, "metrics-textfile", c.MetricsTextfile, "Write Prometheus metrics to this file on exit [METRICS_TEXTFILE]")
}

func (c config) validate() error {
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size must not be negative, got %d", c.CacheSize)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
