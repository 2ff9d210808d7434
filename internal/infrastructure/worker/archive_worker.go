package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/legal-aid-claims/internal/application/dispatcher"
	"github.com/garyjia/legal-aid-claims/internal/application/port"
	"github.com/garyjia/legal-aid-claims/internal/application/workflow"
	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	"github.com/garyjia/legal-aid-claims/internal/domain/event"
	domainwf "github.com/garyjia/legal-aid-claims/internal/domain/workflow"
)

// ArchiveConfig holds timing for the archive worker
type ArchiveConfig struct {
	PollInterval     time.Duration
	StaleAfter       time.Duration
	ReviewStaleAfter time.Duration
	BatchSize        int
}

// DefaultArchiveConfig returns default configuration
func DefaultArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		PollInterval:     time.Hour,
		StaleAfter:       16 * 7 * 24 * time.Hour,
		ReviewStaleAfter: 16 * 7 * 24 * time.Hour,
		BatchSize:        100,
	}
}

// ArchiveMetrics counts timed archivals
type ArchiveMetrics interface {
	ArchivedByTimer(event domainwf.Trigger)
}

// RunStats summarises one archive pass
type RunStats struct {
	Archived int
	Skipped  int
	Failed   int
}

// ArchiveWorker moves completed claims that have been idle too long into the archive states
type ArchiveWorker struct {
	config  ArchiveConfig
	claims  port.ClaimRepository
	engine  workflow.Engine
	clock   port.Clock
	metrics ArchiveMetrics
	events  dispatcher.Dispatcher
	logger  *zap.Logger

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	lastRun time.Time
	last    RunStats
	lastErr error
}

// NewArchiveWorker creates an archive worker. metrics and events may be nil.
func NewArchiveWorker(
	config ArchiveConfig,
	claims port.ClaimRepository,
	engine workflow.Engine,
	clock port.Clock,
	metrics ArchiveMetrics,
	events dispatcher.Dispatcher,
	logger *zap.Logger,
) *ArchiveWorker {
	defaults := DefaultArchiveConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = defaults.StaleAfter
	}
	if config.ReviewStaleAfter <= 0 {
		config.ReviewStaleAfter = defaults.ReviewStaleAfter
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if clock == nil {
		clock = port.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ArchiveWorker{
		config:  config,
		claims:  claims,
		engine:  engine,
		clock:   clock,
		metrics: metrics,
		events:  events,
		logger:  logger,
	}
}

// Name returns the worker name for identification
func (w *ArchiveWorker) Name() string {
	return "ArchiveWorker"
}

// Start runs a pass immediately and then one per poll interval
func (w *ArchiveWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("archive worker already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	w.logger.Info("ArchiveWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Duration("stale_after", w.config.StaleAfter),
		zap.Duration("review_stale_after", w.config.ReviewStaleAfter),
		zap.Int("batch_size", w.config.BatchSize))

	go w.pollLoop(runCtx, w.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight pass to finish
func (w *ArchiveWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.logger.Info("ArchiveWorker stopped")
	return nil
}

// LastRun returns when the last pass finished, its counts and its error
func (w *ArchiveWorker) LastRun() (time.Time, RunStats, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastRun, w.last, w.lastErr
}

func (w *ArchiveWorker) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.runAndRecord(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Archive loop context cancelled")
			return
		case <-ticker.C:
			w.runAndRecord(ctx)
		}
	}
}

func (w *ArchiveWorker) runAndRecord(ctx context.Context) {
	stats, err := w.RunOnce(ctx)
	if err != nil {
		w.logger.Error("Archive pass failed", zap.Error(err))
	}

	w.mu.Lock()
	w.lastRun = w.clock.Now()
	w.last = stats
	w.lastErr = err
	w.mu.Unlock()
}

// RunOnce performs a single archive pass: completed claims idle past StaleAfter are archived
// along the path their guards allow, then hardship claims idle in archived_pending_review past
// ReviewStaleAfter are moved to archived_pending_delete.
func (w *ArchiveWorker) RunOnce(ctx context.Context) (RunStats, error) {
	var stats RunStats
	now := w.clock.Now()

	err := w.eachIdle(ctx, domainwf.StatesFor(domainwf.ValidForArchival), now.Add(-w.config.StaleAfter), func(id string) {
		w.archive(ctx, id, &stats)
	})
	if err != nil {
		return stats, fmt.Errorf("completed claims: %w", err)
	}

	err = w.eachIdle(ctx, []domainwf.State{domainwf.StateArchivedPendingReview}, now.Add(-w.config.ReviewStaleAfter), func(id string) {
		w.fire(ctx, id, domainwf.TriggerArchivePendingDelete, &stats)
	})
	if err != nil {
		return stats, fmt.Errorf("claims pending review: %w", err)
	}

	if stats.Archived > 0 || stats.Failed > 0 {
		w.logger.Info("Archive pass completed",
			zap.Int("archived", stats.Archived),
			zap.Int("skipped", stats.Skipped),
			zap.Int("failed", stats.Failed))
	}
	return stats, nil
}

// eachIdle pages through idle claims in id order. Claims a transition leaves in place
// are passed over by the cursor, so they never hold back later claims.
func (w *ArchiveWorker) eachIdle(ctx context.Context, states []domainwf.State, cutoff time.Time, fn func(id string)) error {
	after := ""
	for {
		ids, err := w.claims.ListIdleInStates(ctx, states, cutoff, after, w.config.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to list idle claims: %w", err)
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(id)
		}
		if len(ids) < w.config.BatchSize {
			return nil
		}
		after = ids[len(ids)-1]
	}
}

// archive picks whichever archive event the claim's guards currently allow
func (w *ArchiveWorker) archive(ctx context.Context, claimID string, stats *RunStats) {
	permitted, err := w.engine.PermittedEvents(ctx, claimID)
	if err != nil {
		w.logger.Warn("Failed to read permitted events",
			zap.String("claim_id", claimID),
			zap.Error(err))
		stats.Failed++
		return
	}

	for _, candidate := range []domainwf.Trigger{domainwf.TriggerArchivePendingReview, domainwf.TriggerArchivePendingDelete} {
		for _, p := range permitted {
			if p == candidate {
				w.fire(ctx, claimID, candidate, stats)
				return
			}
		}
	}
	stats.Skipped++
}

func (w *ArchiveWorker) fire(ctx context.Context, claimID string, trigger domainwf.Trigger, stats *RunStats) {
	result, err := w.engine.RequestTransition(ctx, claimID, trigger, workflow.Metadata{ReasonCode: entity.ReasonTimedTransition})
	switch {
	case err == nil:
		stats.Archived++
		if w.metrics != nil {
			w.metrics.ArchivedByTimer(trigger)
		}
		if w.events != nil {
			w.events.DispatchAsync(ctx, event.NewEvent(event.TypeClaimArchivedByTimer, claimID, map[string]interface{}{
				"event": trigger.String(),
				"from":  result.From.String(),
				"to":    result.To.String(),
			}))
		}
	case errors.Is(err, domainwf.ErrInvalidTransition), errors.Is(err, domainwf.ErrGuardFailed):
		// the claim moved or changed type since it was listed
		stats.Skipped++
	default:
		w.logger.Warn("Timed archival failed",
			zap.String("claim_id", claimID),
			zap.String("event", trigger.String()),
			zap.Error(err))
		stats.Failed++
	}
}
