package workflow

import (
	"context"

	"github.com/garyjia/legal-aid-claims/internal/application/port"
	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	domainwf "github.com/garyjia/legal-aid-claims/internal/domain/workflow"
)

var completedStates = []domainwf.State{
	domainwf.StateAuthorised,
	domainwf.StatePartAuthorised,
	domainwf.StateRefused,
	domainwf.StateRejected,
}

// NewClaimMachineBuilder configures the claim lifecycle. Guards read claim through policy
// when they are evaluated, not when the builder is created.
func NewClaimMachineBuilder(claim *entity.Claim, policy port.ClaimPolicy) domainwf.StateMachineBuilder {
	builder := domainwf.NewBuilder()

	hardship := func(ctx context.Context) bool { return policy.Hardship(claim) }
	notHardship := func(ctx context.Context) bool { return !policy.Hardship(claim) }
	rejectable := func(ctx context.Context) bool { return policy.Rejectable(claim) }

	builder.Configure(domainwf.StateDraft).
		Permit(domainwf.TriggerSubmit, domainwf.StateSubmitted)

	builder.Configure(domainwf.StateSubmitted).
		Permit(domainwf.TriggerAllocate, domainwf.StateAllocated)

	builder.Configure(domainwf.StateRedetermination).
		Permit(domainwf.TriggerAllocate, domainwf.StateAllocated)

	builder.Configure(domainwf.StateAllocated).
		Permit(domainwf.TriggerSubmit, domainwf.StateSubmitted).
		Permit(domainwf.TriggerDeallocate, domainwf.StateDeallocated).
		Permit(domainwf.TriggerAuthorise, domainwf.StateAuthorised).
		Permit(domainwf.TriggerAuthorisePart, domainwf.StatePartAuthorised).
		Permit(domainwf.TriggerRefuse, domainwf.StateRefused).
		PermitIf(domainwf.TriggerReject, domainwf.StateRejected, rejectable)

	builder.Configure(domainwf.StateAwaitingWrittenReasons).
		Permit(domainwf.TriggerAllocate, domainwf.StateAllocated).
		Permit(domainwf.TriggerAuthorise, domainwf.StateAuthorised).
		Permit(domainwf.TriggerAuthorisePart, domainwf.StatePartAuthorised).
		Permit(domainwf.TriggerRefuse, domainwf.StateRefused).
		PermitIf(domainwf.TriggerReject, domainwf.StateRejected, rejectable)

	for _, s := range completedStates {
		builder.Configure(s).
			Permit(domainwf.TriggerRedetermine, domainwf.StateRedetermination).
			Permit(domainwf.TriggerAwaitWrittenReasons, domainwf.StateAwaitingWrittenReasons).
			PermitIf(domainwf.TriggerArchivePendingDelete, domainwf.StateArchivedPendingDelete, notHardship).
			PermitIf(domainwf.TriggerArchivePendingReview, domainwf.StateArchivedPendingReview, hardship)
	}

	builder.Configure(domainwf.StateArchivedPendingReview).
		PermitIf(domainwf.TriggerArchivePendingDelete, domainwf.StateArchivedPendingDelete, hardship)

	builder.Configure(domainwf.StateRejected).
		Permit(domainwf.TriggerTransitionCloneToDraft, domainwf.StateDraft)

	return builder
}

// BuildClaimStateMachine creates a machine positioned at the claim's current state
func BuildClaimStateMachine(claim *entity.Claim, policy port.ClaimPolicy) domainwf.StateMachine {
	return NewClaimMachineBuilder(claim, policy).Build(claim.State)
}

// TransitionTable lists every edge of the claim lifecycle
func TransitionTable() []domainwf.Edge {
	return NewClaimMachineBuilder(&entity.Claim{}, nil).Edges()
}

// CheckTransitionTable verifies the state classifications against the lifecycle edges
func CheckTransitionTable() error {
	return domainwf.CheckConsistency(TransitionTable())
}
