package port

import (
	"context"
	"time"

	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	"github.com/garyjia/legal-aid-claims/internal/domain/workflow"
)

// ClaimPolicy holds the claim-type rules consulted by transition guards and hooks
type ClaimPolicy interface {
	// Hardship reports whether the claim follows the review archival path
	Hardship(claim *entity.Claim) bool

	// Rejectable reports whether the claim may be rejected
	Rejectable(claim *entity.Claim) bool

	// AllocationType returns the allocation classification stamped on submission
	AllocationType(claim *entity.Claim) string
}

// ClaimValidator checks a claim while a transition runs. Mode says which rules apply.
type ClaimValidator interface {
	Validate(ctx context.Context, claim *entity.Claim, mode workflow.ValidationMode) error
}

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// Locker serialises work on a key across goroutines or processes
type Locker interface {
	// TryLock attempts to take the lock once and returns an owner token when acquired
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, string, error)

	// Unlock releases the lock if token still owns it
	Unlock(ctx context.Context, key, token string) error
}

// TotalsCache holds recent totals snapshots
type TotalsCache interface {
	Get(claimID string) (entity.ClaimTotals, bool)
	Set(claimID string, totals entity.ClaimTotals)
	Invalidate(claimID string)
}

// SystemClock is the wall clock in UTC
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Metrics records lifecycle and totals activity
type Metrics interface {
	TransitionSucceeded(event workflow.Trigger, from, to workflow.State)
	TransitionFailed(event workflow.Trigger, reason string)
	TotalsRecomputed(valueBandID int)
}
