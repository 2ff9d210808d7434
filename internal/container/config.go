// Package container wires the claims service together and manages its lifecycle.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/legal-aid-claims/internal/application/workflow"
	"github.com/garyjia/legal-aid-claims/internal/domain/calculation"
	"github.com/garyjia/legal-aid-claims/internal/infrastructure/worker"
)

// Lock drivers
const (
	LockDriverMemory = "memory"
	LockDriverRedis  = "redis"
)

// Config holds everything the Container needs to build its components.
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Lock     LockConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Archive  ArchiveConfig
	Metrics  MetricsConfig

	// ValueBands replaces the standard band table when non-empty
	ValueBands []calculation.Band
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LockConfig selects the per-claim lock implementation.
type LockConfig struct {
	// Driver is memory for a single process, redis when several processes share the database
	Driver string
	TTL    time.Duration
	Retry  time.Duration
	Prefix string
}

// RedisConfig holds redis connection settings for the redis lock driver.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CacheConfig sizes the totals cache. Size 0 disables it.
type CacheConfig struct {
	TotalsSize int
	TotalsTTL  time.Duration
}

// ArchiveConfig controls the timed archival worker.
type ArchiveConfig struct {
	Enabled bool
	Worker  worker.ArchiveConfig
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/claims.db",
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: 0,
			BusyTimeout:     5 * time.Second,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Lock: LockConfig{
			Driver: LockDriverMemory,
			TTL:    workflow.DefaultLockTiming.TTL,
			Retry:  workflow.DefaultLockTiming.Retry,
			Prefix: "claims:",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Cache: CacheConfig{
			TotalsSize: 1024,
			TotalsTTL:  5 * time.Minute,
		},
		Archive: ArchiveConfig{
			Enabled: true,
			Worker:  worker.DefaultArchiveConfig(),
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "claims",
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Lock.Driver {
	case LockDriverMemory:
	case LockDriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis lock driver")
		}
	default:
		return fmt.Errorf("unknown lock driver %q", c.Lock.Driver)
	}
	if c.Lock.TTL <= 0 || c.Lock.Retry <= 0 {
		return fmt.Errorf("lock.ttl and lock.retry must be positive")
	}

	if len(c.ValueBands) > 0 {
		if _, err := calculation.NewBandClassifier(c.ValueBands); err != nil {
			return fmt.Errorf("value_bands: %w", err)
		}
	}

	return nil
}

// lockTiming converts the lock section for the engine and services
func (c *Config) lockTiming() workflow.LockTiming {
	return workflow.LockTiming{TTL: c.Lock.TTL, Retry: c.Lock.Retry}
}
