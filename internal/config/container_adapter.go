package config

import (
	"fmt"

	"github.com/garyjia/legal-aid-claims/internal/container"
	"github.com/garyjia/legal-aid-claims/internal/domain/calculation"
	"github.com/garyjia/legal-aid-claims/internal/domain/money"
	"github.com/garyjia/legal-aid-claims/internal/infrastructure/worker"
	"github.com/garyjia/legal-aid-claims/pkg/utils"
)

// ToContainerConfig converts the file-based configuration into the container's settings.
// Value band bounds are parsed here so a malformed amount fails at startup.
func (c *Config) ToContainerConfig() (*container.Config, error) {
	bands, err := c.valueBands()
	if err != nil {
		return nil, err
	}

	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
		},
		Lock: container.LockConfig{
			Driver: c.Lock.Driver,
			TTL:    c.Lock.TTL,
			Retry:  c.Lock.Retry,
			Prefix: c.Lock.Prefix,
		},
		Redis: container.RedisConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		},
		Cache: container.CacheConfig{
			TotalsSize: c.Cache.TotalsSize,
			TotalsTTL:  c.Cache.TotalsTTL,
		},
		Archive: container.ArchiveConfig{
			Enabled: c.Archive.Enabled,
			Worker: worker.ArchiveConfig{
				PollInterval:     c.Archive.Interval,
				StaleAfter:       c.Archive.StaleAfter,
				ReviewStaleAfter: c.Archive.ReviewStaleAfter,
				BatchSize:        c.Archive.BatchSize,
			},
		},
		Metrics: container.MetricsConfig{
			Enabled:   c.Metrics.Enabled,
			Namespace: c.Metrics.Namespace,
		},
		ValueBands: bands,
	}, nil
}

// ToLoggerConfig converts the logger section for utils.NewLogger
func (c *Config) ToLoggerConfig() utils.LoggerConfig {
	return utils.LoggerConfig{
		Level:      c.Logger.Level,
		OutputPath: c.Logger.OutputPath,
		Format:     c.Logger.Format,
		Service:    "legal-aid-claims",
	}
}

func (c *Config) valueBands() ([]calculation.Band, error) {
	if len(c.ValueBands) == 0 {
		return nil, nil
	}

	bands := make([]calculation.Band, 0, len(c.ValueBands))
	for _, vb := range c.ValueBands {
		upper, err := money.Parse(vb.Upper)
		if err != nil {
			return nil, fmt.Errorf("value band %d: %w", vb.ID, err)
		}
		bands = append(bands, calculation.Band{ID: vb.ID, Name: vb.Name, Upper: upper})
	}
	return bands, nil
}
