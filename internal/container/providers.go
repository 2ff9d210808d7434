package container

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/legal-aid-claims/internal/application/dispatcher"
	"github.com/garyjia/legal-aid-claims/internal/application/port"
	"github.com/garyjia/legal-aid-claims/internal/application/service"
	"github.com/garyjia/legal-aid-claims/internal/application/workflow"
	"github.com/garyjia/legal-aid-claims/internal/domain/calculation"
	"github.com/garyjia/legal-aid-claims/internal/domain/event"
	"github.com/garyjia/legal-aid-claims/internal/infrastructure/cache"
	"github.com/garyjia/legal-aid-claims/internal/infrastructure/lock"
	"github.com/garyjia/legal-aid-claims/internal/infrastructure/metrics"
	"github.com/garyjia/legal-aid-claims/internal/infrastructure/persistence/repository"
	"github.com/garyjia/legal-aid-claims/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/legal-aid-claims/internal/infrastructure/worker"
	"github.com/garyjia/legal-aid-claims/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB        *database.DB
	TxManager *sqlite.DB
}

// LockBundle holds the claim locker and, for the redis driver, its client.
type LockBundle struct {
	Locker port.Locker
	Redis  *redis.Client
}

// ProvideDatabase opens the database and applies pending migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}

	db, err := database.Open(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &DatabaseBundle{
		DB:        db,
		TxManager: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates every repository over the transaction-aware handle.
func ProvideRepositories(db *sqlite.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &RepositoryBundle{
		Claims:           repository.NewClaimRepository(db, logger),
		Transitions:      repository.NewTransitionRepository(db, logger),
		LineItems:        repository.NewLineItemRepository(db, logger),
		Assessments:      repository.NewAssessmentRepository(db, logger),
		Redeterminations: repository.NewRedeterminationRepository(db, logger),
		VatRates:         repository.NewVatRateRepository(db, logger),
	}, nil
}

// ProvideLocker builds the per-claim lock for the configured driver.
// The redis driver pings the server so a bad address fails at startup.
func ProvideLocker(ctx context.Context, cfg *Config, logger *zap.Logger) (*LockBundle, error) {
	switch cfg.Lock.Driver {
	case LockDriverMemory, "":
		return &LockBundle{Locker: lock.NewMemoryLocker()}, nil
	case LockDriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		locker := lock.NewRedisLocker(client, cfg.Lock.Prefix, logger)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := locker.Ping(pingCtx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis lock unavailable at %s: %w", cfg.Redis.Addr, err)
		}
		return &LockBundle{Locker: locker, Redis: client}, nil
	default:
		return nil, fmt.Errorf("unknown lock driver %q", cfg.Lock.Driver)
	}
}

// ProvideTotalsCache returns nil when the cache is disabled. The redis lock driver means
// several processes share the database, and an in-process cache would miss their writes.
func ProvideTotalsCache(cfg *CacheConfig, lockDriver string) *cache.TotalsCache {
	if cfg.TotalsSize <= 0 || lockDriver == LockDriverRedis {
		return nil
	}
	return cache.NewTotalsCache(cfg.TotalsSize, cfg.TotalsTTL)
}

// ProvideMetrics returns nil when metrics are disabled.
func ProvideMetrics(cfg *MetricsConfig) *metrics.Recorder {
	if !cfg.Enabled {
		return nil
	}
	return metrics.NewRecorder(cfg.Namespace)
}

// ProvideBands builds the value band classifier, defaulting to the standard table.
func ProvideBands(bands []calculation.Band) (*calculation.BandClassifier, error) {
	if len(bands) == 0 {
		bands = calculation.DefaultBands()
	}
	return calculation.NewBandClassifier(bands)
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&dispatcherLoggerAdapter{logger: logger}),
		dispatcher.WithMaxInFlight(16),
	)
}

// WorkflowDeps holds dependencies for creating the workflow engine.
type WorkflowDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Locker     port.Locker
	LockTiming workflow.LockTiming
	Dispatcher dispatcher.Dispatcher
	Metrics    port.Metrics
	Logger     *zap.Logger
}

// ProvideWorkflowEngine checks the lifecycle tables and creates the engine.
// It also subscribes the event log handler to every claim event.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.Engine, error) {
	if err := workflow.CheckTransitionTable(); err != nil {
		return nil, fmt.Errorf("inconsistent lifecycle table: %w", err)
	}

	opts := []workflow.EngineOption{
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithLockTiming(deps.LockTiming),
		workflow.WithLogger(deps.Logger),
	}
	if deps.Metrics != nil {
		opts = append(opts, workflow.WithMetrics(deps.Metrics))
	}

	engine := workflow.NewEngine(
		workflow.Repositories{
			Claims:      deps.Repos.Claims,
			Transitions: deps.Repos.Transitions,
			Assessments: deps.Repos.Assessments,
		},
		deps.TxManager,
		deps.Locker,
		service.DefaultClaimPolicy{},
		service.NewClaimValidator(deps.Repos.Assessments, deps.Repos.Redeterminations),
		opts...,
	)

	for _, t := range []event.Type{
		event.TypeClaimTransitioned,
		event.TypeTransitionFailed,
		event.TypeTotalsRecomputed,
		event.TypeAssessmentDecided,
		event.TypeClaimArchivedByTimer,
	} {
		deps.Dispatcher.SubscribeNamed(t, "event-log", eventLogHandler(deps.Logger))
	}

	return engine, nil
}

// eventLogHandler writes every dispatched claim event to the debug log
func eventLogHandler(logger *zap.Logger) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		logger.Debug("Claim event",
			zap.String("event_type", evt.Type.String()),
			zap.String("event_id", evt.ID),
			zap.String("claim_id", evt.ClaimID),
			zap.Any("payload", evt.Payload))
		return nil
	}
}

// ServiceDeps holds dependencies for creating application services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Locker     port.Locker
	LockTiming workflow.LockTiming
	Bands      *calculation.BandClassifier
	Cache      port.TotalsCache
	Dispatcher dispatcher.Dispatcher
	Metrics    port.Metrics
	Engine     workflow.Engine
	Logger     *zap.Logger
}

// ProvideServices creates every application service.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}

	svcLogger := &zapLoggerAdapter{logger: deps.Logger}
	clock := port.SystemClock{}

	totals := service.NewTotalsService(service.TotalsDeps{
		Claims:     deps.Repos.Claims,
		LineItems:  deps.Repos.LineItems,
		VatRates:   deps.Repos.VatRates,
		TxManager:  deps.TxManager,
		Locker:     deps.Locker,
		LockTiming: deps.LockTiming,
		Bands:      deps.Bands,
		Cache:      deps.Cache,
		Clock:      clock,
		Dispatcher: deps.Dispatcher,
		Metrics:    deps.Metrics,
		Logger:     svcLogger,
	})

	return &ServiceBundle{
		Totals: totals,
		LineItems: service.NewLineItemService(
			deps.Repos.LineItems,
			deps.Repos.Claims,
			deps.TxManager,
			deps.Locker,
			deps.LockTiming,
			totals,
			clock,
			svcLogger,
		),
		Assessments: service.NewAssessmentService(
			deps.Repos.Claims,
			deps.Repos.Assessments,
			deps.Repos.Redeterminations,
			deps.TxManager,
			deps.Locker,
			deps.LockTiming,
			deps.Engine,
			deps.Dispatcher,
			clock,
			svcLogger,
		),
	}, nil
}

// WorkerDeps holds dependencies for creating workers.
type WorkerDeps struct {
	Config     *ArchiveConfig
	Claims     port.ClaimRepository
	Engine     workflow.Engine
	Metrics    worker.ArchiveMetrics
	Dispatcher dispatcher.Dispatcher
	Logger     *zap.Logger
}

// ProvideWorkers creates the worker manager and registers enabled workers.
func ProvideWorkers(deps *WorkerDeps) *worker.Manager {
	manager := worker.NewManager(deps.Logger)

	if deps.Config.Enabled {
		manager.Register(worker.NewArchiveWorker(
			deps.Config.Worker,
			deps.Claims,
			deps.Engine,
			port.SystemClock{},
			deps.Metrics,
			deps.Dispatcher,
			deps.Logger.Named("archive"),
		))
	}

	return manager
}
