package container

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/legal-aid-claims/internal/application/dispatcher"
	"github.com/garyjia/legal-aid-claims/internal/application/port"
	"github.com/garyjia/legal-aid-claims/internal/application/service"
	"github.com/garyjia/legal-aid-claims/internal/application/workflow"
	"github.com/garyjia/legal-aid-claims/internal/infrastructure/metrics"
	"github.com/garyjia/legal-aid-claims/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/legal-aid-claims/internal/infrastructure/worker"
	"github.com/garyjia/legal-aid-claims/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure
	database     *database.DB
	db           *sqlite.DB
	repositories *RepositoryBundle
	locker       port.Locker
	redis        *redis.Client
	cache        port.TotalsCache
	metrics      *metrics.Recorder

	// Application
	dispatcher dispatcher.Dispatcher
	engine     workflow.Engine
	services   *ServiceBundle

	// Workers
	workers *worker.Manager

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Claims           port.ClaimRepository
	Transitions      port.TransitionRepository
	LineItems        port.LineItemRepository
	Assessments      port.AssessmentRepository
	Redeterminations port.RedeterminationRepository
	VatRates         port.VatRateRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Totals      service.TotalsService
	LineItems   service.LineItemService
	Assessments service.AssessmentService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components and begins processing:
// 1. Database and repositories
// 2. Claim lock, totals cache and metrics
// 3. Event dispatcher and workflow engine
// 4. Application services
// 5. Workers
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	steps := []struct {
		name string
		fn   func() error
	}{
		{"database", c.initDatabase},
		{"infrastructure", c.initInfrastructure},
		{"dispatcher and workflow", c.initDispatcherAndWorkflow},
		{"services", c.initServices},
		{"workers", c.initWorkers},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			c.teardown()
			return fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
		c.logger.Info("Initialized", zap.String("component", step.name))
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	errs := c.teardown()

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// teardown releases whatever has been initialized, newest first
func (c *Container) teardown() []error {
	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
		c.workers = nil
	}

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
		c.dispatcher = nil
	}

	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.logger.Error("Failed to close redis client", zap.Error(err))
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
		c.redis = nil
	}

	if c.database != nil {
		if err := c.database.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
		c.database = nil
	}

	return errs
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, err error) {
		if err != nil {
			status.Components[name] = ComponentHealth{Healthy: false, Message: err.Error()}
			status.Overall = false
			return
		}
		status.Components[name] = ComponentHealth{Healthy: true}
	}

	if c.database == nil {
		set("database", fmt.Errorf("not initialized"))
	} else {
		set("database", c.database.PingContext(ctx))
	}

	if c.redis != nil {
		set("redis", c.redis.Ping(ctx).Err())
	}

	if c.workers == nil {
		set("workers", fmt.Errorf("not initialized"))
	} else if !c.workers.IsRunning() {
		set("workers", fmt.Errorf("not running"))
	} else {
		status.Components["workers"] = ComponentHealth{
			Healthy: true,
			Message: fmt.Sprintf("worker count: %d", c.workers.Count()),
		}
	}

	if c.dispatcher == nil {
		set("dispatcher", fmt.Errorf("not initialized"))
	} else {
		set("dispatcher", nil)
	}

	return status
}

func (c *Container) initDatabase() error {
	bundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.database = bundle.DB
	c.db = bundle.TxManager

	repos, err := ProvideRepositories(c.db, c.logger)
	if err != nil {
		return err
	}
	c.repositories = repos
	return nil
}

func (c *Container) initInfrastructure() error {
	locks, err := ProvideLocker(c.ctx, c.config, c.logger)
	if err != nil {
		return err
	}
	c.locker = locks.Locker
	c.redis = locks.Redis

	// leave the interface nil rather than holding a nil pointer
	if tc := ProvideTotalsCache(&c.config.Cache, c.config.Lock.Driver); tc != nil {
		c.cache = tc
	}
	c.metrics = ProvideMetrics(&c.config.Metrics)
	return nil
}

func (c *Container) initDispatcherAndWorkflow() error {
	c.dispatcher = ProvideDispatcher(c.logger)

	engine, err := ProvideWorkflowEngine(&WorkflowDeps{
		Repos:      c.repositories,
		TxManager:  c.db,
		Locker:     c.locker,
		LockTiming: c.config.lockTiming(),
		Dispatcher: c.dispatcher,
		Metrics:    c.portMetrics(),
		Logger:     c.logger.Named("workflow"),
	})
	if err != nil {
		return err
	}
	c.engine = engine
	return nil
}

func (c *Container) initServices() error {
	bands, err := ProvideBands(c.config.ValueBands)
	if err != nil {
		return err
	}

	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.db,
		Locker:     c.locker,
		LockTiming: c.config.lockTiming(),
		Bands:      bands,
		Cache:      c.cache,
		Dispatcher: c.dispatcher,
		Metrics:    c.portMetrics(),
		Engine:     c.engine,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

func (c *Container) initWorkers() error {
	var archiveMetrics worker.ArchiveMetrics
	if c.metrics != nil {
		archiveMetrics = c.metrics
	}

	c.workers = ProvideWorkers(&WorkerDeps{
		Config:     &c.config.Archive,
		Claims:     c.repositories.Claims,
		Engine:     c.engine,
		Metrics:    archiveMetrics,
		Dispatcher: c.dispatcher,
		Logger:     c.logger,
	})

	return c.workers.StartAll(c.ctx)
}

func (c *Container) portMetrics() port.Metrics {
	if c.metrics == nil {
		return nil
	}
	return c.metrics
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Locker returns the per-claim lock.
func (c *Container) Locker() port.Locker {
	return c.locker
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Engine returns the workflow engine.
func (c *Container) Engine() workflow.Engine {
	return c.engine
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.Manager {
	return c.workers
}

// MetricsHandler serves the metrics registry, or nil when metrics are disabled.
func (c *Container) MetricsHandler() http.Handler {
	if c.metrics == nil {
		return nil
	}
	return c.metrics.Handler()
}

// LockTiming returns the configured claim lock timing.
func (c *Container) LockTiming() workflow.LockTiming {
	return c.config.lockTiming()
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

// ServiceLogger adapts the container's zap logger to the key-value logger services use.
func (c *Container) ServiceLogger() service.Logger {
	return &zapLoggerAdapter{logger: c.logger}
}

// zapLoggerAdapter adapts zap.Logger to the service.Logger interface.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// dispatcherLoggerAdapter adapts zap.Logger to the dispatcher.Logger interface.
type dispatcherLoggerAdapter struct {
	logger *zap.Logger
}

func (a *dispatcherLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *dispatcherLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields. Errors keep zap's error encoding.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
