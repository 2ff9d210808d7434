package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/garyjia/legal-aid-claims/internal/application/dispatcher"
	"github.com/garyjia/legal-aid-claims/internal/application/port"
	"github.com/garyjia/legal-aid-claims/internal/domain/audit"
	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	"github.com/garyjia/legal-aid-claims/internal/domain/event"
	domainwf "github.com/garyjia/legal-aid-claims/internal/domain/workflow"
)

// engineImpl is the concrete implementation of Engine
type engineImpl struct {
	claimRepo      port.ClaimRepository
	transitionRepo port.TransitionRepository
	assessmentRepo port.AssessmentRepository
	txManager      port.TransactionManager
	policy         port.ClaimPolicy
	validator      port.ClaimValidator
	locker         port.Locker

	clock      port.Clock
	dispatcher dispatcher.Dispatcher
	metrics    port.Metrics
	logger     *zap.Logger
	lockTiming LockTiming
	metaCheck  *validator.Validate
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithMetrics records transition outcomes
func WithMetrics(m port.Metrics) EngineOption {
	return func(e *engineImpl) {
		e.metrics = m
	}
}

// WithClock overrides the wall clock
func WithClock(c port.Clock) EngineOption {
	return func(e *engineImpl) {
		e.clock = c
	}
}

// WithLogger sets the engine logger
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = l
	}
}

// WithLockTiming sets claim lock ttl and retry interval
func WithLockTiming(t LockTiming) EngineOption {
	return func(e *engineImpl) {
		e.lockTiming = t
	}
}

// Repositories groups the stores the engine reads and writes
type Repositories struct {
	Claims      port.ClaimRepository
	Transitions port.TransitionRepository
	Assessments port.AssessmentRepository
}

// NewEngine creates a new workflow engine
func NewEngine(
	repos Repositories,
	txManager port.TransactionManager,
	locker port.Locker,
	policy port.ClaimPolicy,
	claimValidator port.ClaimValidator,
	opts ...EngineOption,
) Engine {
	e := &engineImpl{
		claimRepo:      repos.Claims,
		transitionRepo: repos.Transitions,
		assessmentRepo: repos.Assessments,
		txManager:      txManager,
		locker:         locker,
		policy:         policy,
		validator:      claimValidator,
		clock:          port.SystemClock{},
		logger:         zap.NewNop(),
		lockTiming:     DefaultLockTiming,
		metaCheck:      validator.New(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RequestTransition fires event on the claim. Nothing is written unless every step succeeds.
func (e *engineImpl) RequestTransition(ctx context.Context, claimID string, trigger domainwf.Trigger, meta Metadata) (*Result, error) {
	if err := e.metaCheck.Struct(meta); err != nil {
		return nil, fmt.Errorf("invalid transition metadata: %w", err)
	}

	var result *Result
	err := WithClaimLock(ctx, e.locker, e.lockTiming, claimID, func(ctx context.Context) error {
		return e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			r, err := e.transition(txCtx, claimID, trigger, meta)
			if err != nil {
				return err
			}
			result = r
			return nil
		})
	})
	if err != nil {
		reason := failureReason(err)
		e.logger.Error("Claim transition failed",
			zap.String("claim_id", claimID),
			zap.String("event", trigger.String()),
			zap.String("reason", reason),
			zap.Error(err),
		)
		if e.metrics != nil {
			e.metrics.TransitionFailed(trigger, reason)
		}
		e.emit(ctx, event.NewEvent(event.TypeTransitionFailed, claimID, map[string]interface{}{
			"event":  trigger.String(),
			"reason": reason,
			"error":  err.Error(),
		}))
		return nil, err
	}

	e.logger.Info("Claim transitioned",
		zap.String("claim_id", claimID),
		zap.String("event", trigger.String()),
		zap.String("from_state", result.From.String()),
		zap.String("to_state", result.To.String()),
		zap.String("state", result.State.String()),
	)
	if e.metrics != nil {
		e.metrics.TransitionSucceeded(trigger, result.From, result.To)
	}
	e.emit(ctx, event.NewEvent(event.TypeClaimTransitioned, claimID, map[string]interface{}{
		"from":        result.From.String(),
		"to":          result.To.String(),
		"state":       result.State.String(),
		"event":       trigger.String(),
		"reason_code": meta.ReasonCode,
	}))

	return result, nil
}

func (e *engineImpl) transition(ctx context.Context, claimID string, trigger domainwf.Trigger, meta Metadata) (*Result, error) {
	claim, err := e.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load claim %s: %w", claimID, err)
	}

	records, err := e.transitionRepo.ListByClaimID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transitions: %w", err)
	}

	working := claim.Clone()
	machine := BuildClaimStateMachine(working, e.policy)

	target, err := machine.Resolve(ctx, trigger)
	if err != nil {
		return nil, &domainwf.TransitionError{Event: trigger, State: claim.State, Err: err}
	}

	tc := &transitionContext{
		claim:   working,
		history: audit.NewLog(records),
		event:   trigger,
		from:    claim.State,
		to:      target,
		meta:    meta,
		now:     e.clock.Now(),
	}

	if err := runHooks(ctx, e, beforeHooks[trigger], tc); err != nil {
		return nil, &domainwf.TransitionError{Event: trigger, State: tc.from, Err: err}
	}

	working.State = target

	if err := runHooks(ctx, e, afterHooks[trigger], tc); err != nil {
		return nil, &domainwf.TransitionError{Event: trigger, State: tc.from, Err: err}
	}

	mode := domainwf.ValidationModeFor(trigger, target)
	if err := e.validator.Validate(ctx, working, mode); err != nil {
		return nil, &domainwf.TransitionError{
			Event: trigger,
			State: tc.from,
			Err:   fmt.Errorf("%w: %w", domainwf.ErrValidationFailed, err),
		}
	}

	working.UpdatedAt = tc.now
	if err := e.claimRepo.Update(ctx, working); err != nil {
		if errors.Is(err, domainwf.ErrConcurrentModification) {
			return nil, &domainwf.TransitionError{Event: trigger, State: tc.from, Err: err}
		}
		return nil, fmt.Errorf("failed to update claim: %w", err)
	}

	record := &entity.TransitionRecord{
		ClaimID:    claimID,
		From:       tc.from,
		To:         target,
		Event:      trigger,
		OccurredAt: tc.now,
		ReasonCode: meta.ReasonCode,
		ReasonText: meta.ReasonText,
		AuthorID:   meta.AuthorID,
		SubjectID:  meta.SubjectID,
	}
	if err := e.transitionRepo.Append(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to append transition record: %w", err)
	}

	return &Result{
		From:   tc.from,
		To:     target,
		State:  working.State,
		Record: *record,
	}, nil
}

// TransitionHistory returns the claim's audit trail
func (e *engineImpl) TransitionHistory(ctx context.Context, claimID string) (*audit.Log, error) {
	if _, err := e.claimRepo.GetByID(ctx, claimID); err != nil {
		return nil, fmt.Errorf("failed to load claim %s: %w", claimID, err)
	}

	records, err := e.transitionRepo.ListByClaimID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transitions: %w", err)
	}
	return audit.NewLog(records), nil
}

// PermittedEvents lists the events whose guards currently pass
func (e *engineImpl) PermittedEvents(ctx context.Context, claimID string) ([]domainwf.Trigger, error) {
	claim, err := e.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load claim %s: %w", claimID, err)
	}

	machine := BuildClaimStateMachine(claim, e.policy)
	var permitted []domainwf.Trigger
	for _, t := range machine.PermittedTriggers() {
		if _, err := machine.Resolve(ctx, t); err == nil {
			permitted = append(permitted, t)
		}
	}
	return permitted, nil
}

func (e *engineImpl) emit(ctx context.Context, evt *event.Event) {
	if e.dispatcher != nil {
		e.dispatcher.DispatchAsync(ctx, evt)
	}
}

// failureReason maps an error to a metrics label
func failureReason(err error) string {
	switch {
	case errors.Is(err, domainwf.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domainwf.ErrGuardFailed):
		return "guard_failed"
	case errors.Is(err, domainwf.ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, domainwf.ErrValidationFailed):
		return "validation_failed"
	case errors.Is(err, port.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrLockUnavailable):
		return "lock_unavailable"
	default:
		return "error"
	}
}
