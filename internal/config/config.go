package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// EnvPrefix is prepended to every environment override, e.g. CLAIMS_DATABASE_PATH
const EnvPrefix = "CLAIMS"

// Config holds all application configuration
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Database   DatabaseConfig    `mapstructure:"database"`
	Logger     LoggerConfig      `mapstructure:"logger"`
	Lock       LockConfig        `mapstructure:"lock"`
	Redis      RedisConfig       `mapstructure:"redis"`
	Cache      CacheConfig       `mapstructure:"cache"`
	Archive    ArchiveConfig     `mapstructure:"archive"`
	ValueBands []ValueBandConfig `mapstructure:"value_bands" validate:"dive"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port" validate:"gt=0,lte=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format" validate:"oneof=json console"`
}

// LockConfig selects the per-claim lock
type LockConfig struct {
	Driver string        `mapstructure:"driver" validate:"oneof=memory redis"`
	TTL    time.Duration `mapstructure:"ttl" validate:"gt=0"`
	Retry  time.Duration `mapstructure:"retry_interval" validate:"gt=0"`
	Prefix string        `mapstructure:"prefix"`
}

// RedisConfig holds redis connection settings
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`

	// Enabled is derived from lock.driver after loading
	Enabled bool `mapstructure:"-"`
}

// CacheConfig sizes the totals cache
type CacheConfig struct {
	TotalsSize int           `mapstructure:"totals_size" validate:"gte=0"`
	TotalsTTL  time.Duration `mapstructure:"totals_ttl" validate:"gte=0"`
}

// ArchiveConfig controls timed archival
type ArchiveConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Interval         time.Duration `mapstructure:"interval" validate:"gt=0"`
	StaleAfter       time.Duration `mapstructure:"stale_after" validate:"gt=0"`
	ReviewStaleAfter time.Duration `mapstructure:"review_stale_after" validate:"gt=0"`
	BatchSize        int           `mapstructure:"batch_size" validate:"gt=0"`
}

// ValueBandConfig overrides one row of the value band table
type ValueBandConfig struct {
	ID    int    `mapstructure:"id" validate:"gt=0"`
	Name  string `mapstructure:"name" validate:"required"`
	Upper string `mapstructure:"upper" validate:"required,numeric"`
}

// MetricsConfig controls Prometheus metrics
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// LoadEnvFile exports the variables in a dotenv file without overriding ones already set.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := gotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Load reads configuration from configPath, if set, and CLAIMS_ environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Redis.Enabled = cfg.Lock.Driver == "redis"

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so environment overrides work without a file
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("database.path", "data/claims.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 0)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("lock.driver", "memory")
	v.SetDefault("lock.ttl", 30*time.Second)
	v.SetDefault("lock.retry_interval", 25*time.Millisecond)
	v.SetDefault("lock.prefix", "claims:")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.totals_size", 1024)
	v.SetDefault("cache.totals_ttl", 5*time.Minute)

	v.SetDefault("archive.enabled", true)
	v.SetDefault("archive.interval", time.Hour)
	v.SetDefault("archive.stale_after", 16*7*24*time.Hour)
	v.SetDefault("archive.review_stale_after", 16*7*24*time.Hour)
	v.SetDefault("archive.batch_size", 100)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "claims")
}

// Validate checks struct tags and reports every failing field
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
