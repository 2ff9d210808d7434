package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/garyjia/legal-aid-claims/internal/config"
	"github.com/garyjia/legal-aid-claims/internal/container"
	httpapi "github.com/garyjia/legal-aid-claims/internal/interfaces/http"
	"github.com/garyjia/legal-aid-claims/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file; CLAIMS_ environment variables override it")
	envFile := flag.String("env", ".env", "dotenv file exported before configuration is read")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(cfg.ToLoggerConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("Server exited successfully")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	containerCfg, err := cfg.ToContainerConfig()
	if err != nil {
		return err
	}

	c, err := container.NewContainer(containerCfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Container shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("Starting legal aid claims service",
		zap.String("lock_driver", containerCfg.Lock.Driver),
		zap.Int("port", containerCfg.Server.Port))

	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:         containerCfg.Server.Host,
		Port:         containerCfg.Server.Port,
		ReadTimeout:  containerCfg.Server.ReadTimeout,
		WriteTimeout: containerCfg.Server.WriteTimeout,
	}, httpapi.Deps{
		Engine:  c.Engine(),
		Totals:  c.Services().Totals,
		Metrics: c.MetricsHandler(),
		Health: func(ctx context.Context) (bool, interface{}) {
			status := c.Health(ctx)
			return status.Overall, status
		},
		Logger: c.ServiceLogger(),
	})

	// Blocks until a signal arrives or the listener fails
	return server.Start(ctx)
}
