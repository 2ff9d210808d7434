package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/legal-aid-claims/internal/application/dispatcher"
	"github.com/garyjia/legal-aid-claims/internal/application/port"
	"github.com/garyjia/legal-aid-claims/internal/application/workflow"
	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	"github.com/garyjia/legal-aid-claims/internal/domain/event"
	"github.com/garyjia/legal-aid-claims/internal/domain/money"
	domainwf "github.com/garyjia/legal-aid-claims/internal/domain/workflow"
)

// Decision is a case worker's outcome for a claim under assessment
type Decision struct {
	// State is the target state; empty leaves the claim where it is
	State      domainwf.State
	Reason     string
	ReasonText string
	AuthorID   string

	Assessment      *AmountsInput
	Redetermination *AmountsInput
}

// AmountsInput carries assessed values; a nil field defaults to 0.00
type AmountsInput struct {
	Fees          *money.Amount
	Expenses      *money.Amount
	Disbursements *money.Amount
}

// present reports whether any supplied value is above zero
func (a *AmountsInput) present() bool {
	if a == nil {
		return false
	}
	return a.amounts().AnyPositive()
}

func (a *AmountsInput) amounts() entity.Amounts {
	or := func(v *money.Amount) money.Amount {
		if v == nil {
			return money.Zero
		}
		return *v
	}
	return entity.Amounts{
		Fees:          or(a.Fees),
		Expenses:      or(a.Expenses),
		Disbursements: or(a.Disbursements),
	}
}

// DecisionError lists why a decision was not applied
type DecisionError struct {
	Messages []string
	Err      error
}

func (e *DecisionError) Error() string {
	return "decision not applied: " + strings.Join(e.Messages, "; ")
}

func (e *DecisionError) Unwrap() error {
	return e.Err
}

var decisionEvents = map[domainwf.State]domainwf.Trigger{
	domainwf.StateAuthorised:             domainwf.TriggerAuthorise,
	domainwf.StatePartAuthorised:         domainwf.TriggerAuthorisePart,
	domainwf.StateRefused:                domainwf.TriggerRefuse,
	domainwf.StateRejected:               domainwf.TriggerReject,
	domainwf.StateRedetermination:        domainwf.TriggerRedetermine,
	domainwf.StateAwaitingWrittenReasons: domainwf.TriggerAwaitWrittenReasons,
}

// AssessmentService applies case worker decisions
type AssessmentService interface {
	// Decide stores the assessed values and moves the claim to the decided state in one transaction
	Decide(ctx context.Context, claimID string, d Decision) (*entity.Claim, error)
}

type assessmentServiceImpl struct {
	claimRepo           port.ClaimRepository
	assessmentRepo      port.AssessmentRepository
	redeterminationRepo port.RedeterminationRepository
	txManager           port.TransactionManager
	locker              port.Locker
	lockTiming          workflow.LockTiming
	engine              workflow.Engine
	dispatcher          dispatcher.Dispatcher
	clock               port.Clock
	logger              Logger
}

// NewAssessmentService creates a new AssessmentService. dispatcher may be nil.
func NewAssessmentService(
	claimRepo port.ClaimRepository,
	assessmentRepo port.AssessmentRepository,
	redeterminationRepo port.RedeterminationRepository,
	txManager port.TransactionManager,
	locker port.Locker,
	lockTiming workflow.LockTiming,
	engine workflow.Engine,
	dispatcher dispatcher.Dispatcher,
	clock port.Clock,
	logger Logger,
) AssessmentService {
	if clock == nil {
		clock = port.SystemClock{}
	}
	return &assessmentServiceImpl{
		claimRepo:           claimRepo,
		assessmentRepo:      assessmentRepo,
		redeterminationRepo: redeterminationRepo,
		txManager:           txManager,
		locker:              locker,
		lockTiming:          lockTiming,
		engine:              engine,
		dispatcher:          dispatcher,
		clock:               clock,
		logger:              orNop(logger),
	}
}

// Decide validates the decision, then applies it atomically
func (s *assessmentServiceImpl) Decide(ctx context.Context, claimID string, d Decision) (*entity.Claim, error) {
	if msg := checkDecision(d); msg != "" {
		return nil, &DecisionError{Messages: []string{msg}}
	}

	var claim *entity.Claim
	err := workflow.WithClaimLock(ctx, s.locker, s.lockTiming, claimID, func(ctx context.Context) error {
		return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			c, err := s.apply(txCtx, claimID, d)
			if err != nil {
				return err
			}
			claim = c
			return nil
		})
	})
	if err != nil {
		s.logger.Error("Decision failed", "error", err, "claim_id", claimID, "state", d.State.String())
		var de *DecisionError
		if errors.As(err, &de) {
			return nil, de
		}
		return nil, &DecisionError{Messages: []string{err.Error()}, Err: err}
	}

	s.logger.Info("Decision applied", "claim_id", claimID, "state", claim.State.String(), "author_id", d.AuthorID)
	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeAssessmentDecided, claimID, map[string]interface{}{
			"state":           claim.State.String(),
			"reason_code":     d.Reason,
			"author_id":       d.AuthorID,
			"assessed":        d.Assessment.present(),
			"redetermination": d.Redetermination.present(),
		}))
	}
	return claim, nil
}

func (s *assessmentServiceImpl) apply(ctx context.Context, claimID string, d Decision) (*entity.Claim, error) {
	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load claim %s: %w", claimID, err)
	}

	now := s.clock.Now()

	if d.Assessment.present() {
		assessment, err := s.assessmentRepo.GetByClaimID(ctx, claimID)
		if errors.Is(err, port.ErrNotFound) {
			assessment = &entity.Assessment{ClaimID: claimID}
		} else if err != nil {
			return nil, fmt.Errorf("failed to load assessment: %w", err)
		}
		assessment.Amounts = d.Assessment.amounts()
		assessment.UpdatedAt = now
		if err := s.assessmentRepo.Save(ctx, assessment); err != nil {
			return nil, fmt.Errorf("failed to save assessment: %w", err)
		}
	}

	if d.Redetermination.present() {
		r := &entity.Redetermination{
			ClaimID:   claimID,
			Amounts:   d.Redetermination.amounts(),
			CreatedAt: now,
		}
		if err := s.redeterminationRepo.Create(ctx, r); err != nil {
			return nil, fmt.Errorf("failed to add redetermination: %w", err)
		}
	}

	if d.State == "" || d.State == claim.State {
		return claim, nil
	}

	trigger, ok := decisionEvents[d.State]
	if !ok {
		return nil, &DecisionError{Messages: []string{fmt.Sprintf("%s is not a decision state", d.State)}}
	}

	if _, err := s.engine.RequestTransition(ctx, claimID, trigger, workflow.Metadata{
		ReasonCode: d.Reason,
		ReasonText: d.ReasonText,
		AuthorID:   d.AuthorID,
	}); err != nil {
		return nil, err
	}

	return s.claimRepo.GetByID(ctx, claimID)
}

// checkDecision returns a message when the state and values contradict each other
func checkDecision(d Decision) string {
	if d.Assessment.present() || d.Redetermination.present() {
		switch d.State {
		case "":
			return "You must specify authorised or part authorised if you supply values"
		case domainwf.StateRefused:
			return "You cannot specify values when refusing a claim"
		case domainwf.StateRejected:
			return "You cannot specify values when rejecting a claim"
		}
		return ""
	}

	if d.State == domainwf.StateAuthorised || d.State == domainwf.StatePartAuthorised {
		return "You must specify positive values if authorising or part authorising a claim"
	}
	return ""
}
