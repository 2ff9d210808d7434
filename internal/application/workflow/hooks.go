package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/legal-aid-claims/internal/application/port"
	"github.com/garyjia/legal-aid-claims/internal/domain/audit"
	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	domainwf "github.com/garyjia/legal-aid-claims/internal/domain/workflow"
)

// Validity windows applied when a claim is archived
const (
	ArchiveValidity  = 180 * 24 * time.Hour
	StandardValidity = 21 * 24 * time.Hour
)

// transitionContext is the working set of one transition
type transitionContext struct {
	claim   *entity.Claim
	history *audit.Log
	event   domainwf.Trigger
	from    domainwf.State
	to      domainwf.State
	meta    Metadata
	now     time.Time
}

type hook func(ctx context.Context, e *engineImpl, tc *transitionContext) error

// beforeHooks run before the state changes
var beforeHooks = map[domainwf.Trigger][]hook{
	domainwf.TriggerSubmit: {stampAllocationType},
	domainwf.TriggerReject: {zeroAssessmentUnlessAuthorised},
	domainwf.TriggerRefuse: {zeroAssessmentUnlessAuthorised},
}

// afterHooks run, in order, once the state has changed
var afterHooks = map[domainwf.Trigger][]hook{
	domainwf.TriggerSubmit:               {markSubmitted},
	domainwf.TriggerAllocate:             {ensureAssessment, assignCaseWorker},
	domainwf.TriggerDeallocate:           {clearCaseWorkers, restorePreviousState},
	domainwf.TriggerRedetermine:          {clearCaseWorkers, markResubmitted},
	domainwf.TriggerAwaitWrittenReasons:  {clearCaseWorkers, markResubmitted},
	domainwf.TriggerAuthorise:            {markAuthorised},
	domainwf.TriggerAuthorisePart:        {markAuthorised},
	domainwf.TriggerArchivePendingDelete: {validFor(ArchiveValidity)},
	domainwf.TriggerArchivePendingReview: {validFor(StandardValidity)},
}

func runHooks(ctx context.Context, e *engineImpl, hooks []hook, tc *transitionContext) error {
	for _, h := range hooks {
		if err := h(ctx, e, tc); err != nil {
			return err
		}
	}
	return nil
}

func stampAllocationType(ctx context.Context, e *engineImpl, tc *transitionContext) error {
	tc.claim.AllocationType = e.policy.AllocationType(tc.claim)
	return nil
}

// zeroAssessmentUnlessAuthorised keeps the assessed amounts of a claim that was ever authorised
func zeroAssessmentUnlessAuthorised(ctx context.Context, e *engineImpl, tc *transitionContext) error {
	if tc.history.PreviouslyAuthorised() {
		return nil
	}

	assessment, err := e.assessmentRepo.GetByClaimID(ctx, tc.claim.ID)
	if errors.Is(err, port.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load assessment: %w", err)
	}

	assessment.Zeroize()
	assessment.UpdatedAt = tc.now
	if err := e.assessmentRepo.Save(ctx, assessment); err != nil {
		return fmt.Errorf("failed to zero assessment: %w", err)
	}
	return nil
}

func markSubmitted(ctx context.Context, e *engineImpl, tc *transitionContext) error {
	now := tc.now
	tc.claim.LastSubmittedAt = &now
	if tc.claim.OriginalSubmissionDate == nil {
		first := now
		tc.claim.OriginalSubmissionDate = &first
	}
	return nil
}

func markResubmitted(ctx context.Context, e *engineImpl, tc *transitionContext) error {
	now := tc.now
	tc.claim.LastSubmittedAt = &now
	return nil
}

func markAuthorised(ctx context.Context, e *engineImpl, tc *transitionContext) error {
	now := tc.now
	tc.claim.AuthorisedAt = &now
	return nil
}

func validFor(d time.Duration) hook {
	return func(ctx context.Context, e *engineImpl, tc *transitionContext) error {
		until := tc.now.Add(d)
		tc.claim.ValidUntil = &until
		return nil
	}
}

func clearCaseWorkers(ctx context.Context, e *engineImpl, tc *transitionContext) error {
	tc.claim.ClearCaseWorkers()
	return nil
}

func assignCaseWorker(ctx context.Context, e *engineImpl, tc *transitionContext) error {
	id := tc.meta.CaseWorkerID
	if id == "" {
		return nil
	}
	for _, existing := range tc.claim.CaseWorkerIDs {
		if existing == id {
			return nil
		}
	}
	tc.claim.CaseWorkerIDs = append(tc.claim.CaseWorkerIDs, id)
	return nil
}

func ensureAssessment(ctx context.Context, e *engineImpl, tc *transitionContext) error {
	_, err := e.assessmentRepo.GetByClaimID(ctx, tc.claim.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, port.ErrNotFound) {
		return fmt.Errorf("failed to load assessment: %w", err)
	}

	assessment := &entity.Assessment{ClaimID: tc.claim.ID, UpdatedAt: tc.now}
	assessment.Zeroize()
	if err := e.assessmentRepo.Save(ctx, assessment); err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}
	return nil
}

// restorePreviousState puts the claim back where it was last queued for allocation
func restorePreviousState(ctx context.Context, e *engineImpl, tc *transitionContext) error {
	record, ok := tc.history.LatestInto(domainwf.StatesFor(domainwf.ValidForAllocation)...)
	if !ok {
		tc.claim.State = domainwf.StateSubmitted
		return nil
	}
	tc.claim.State = record.To
	return nil
}
