package port

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	"github.com/garyjia/legal-aid-claims/internal/domain/workflow"
)

// ErrNotFound is returned by repositories when a record does not exist
var ErrNotFound = errors.New("not found")

// ClaimRepository defines persistence operations for Claim
type ClaimRepository interface {
	Create(ctx context.Context, claim *entity.Claim) error
	GetByID(ctx context.Context, id string) (*entity.Claim, error)

	// Update writes lifecycle fields if the stored lock version still matches claim.LockVersion,
	// then increments it. A mismatch returns workflow.ErrConcurrentModification.
	Update(ctx context.Context, claim *entity.Claim) error

	// SetApplyVat changes the VAT flag without touching lifecycle fields
	SetApplyVat(ctx context.Context, id string, applyVat bool) error

	// SaveTotals fully replaces the stored totals snapshot
	SaveTotals(ctx context.Context, id string, totals entity.ClaimTotals) error

	// ListIdleInStates returns, in id order, up to limit ids greater than afterID of claims in
	// states whose last transition happened before cutoff
	ListIdleInStates(ctx context.Context, states []workflow.State, cutoff time.Time, afterID string, limit int) ([]string, error)
}

// TransitionRepository is the append-only store of transition records
type TransitionRepository interface {
	Append(ctx context.Context, record *entity.TransitionRecord) error
	ListByClaimID(ctx context.Context, claimID string) ([]entity.TransitionRecord, error)
}

// LineItemRepository defines persistence operations for fees, expenses and disbursements
type LineItemRepository interface {
	Create(ctx context.Context, item *entity.LineItem) error
	GetByID(ctx context.Context, id int64) (*entity.LineItem, error)
	Update(ctx context.Context, item *entity.LineItem) error
	Delete(ctx context.Context, id int64) error
	ListByClaimID(ctx context.Context, claimID string) ([]entity.LineItem, error)
}

// AssessmentRepository stores the single assessment of a claim
type AssessmentRepository interface {
	GetByClaimID(ctx context.Context, claimID string) (*entity.Assessment, error)

	// Save inserts or replaces the claim's assessment
	Save(ctx context.Context, assessment *entity.Assessment) error
}

// RedeterminationRepository stores redetermination entries
type RedeterminationRepository interface {
	Create(ctx context.Context, r *entity.Redetermination) error
	ListByClaimID(ctx context.Context, claimID string) ([]entity.Redetermination, error)
}

// VatRateRepository reads the effective-dated VAT rate table
type VatRateRepository interface {
	List(ctx context.Context) ([]entity.VatRate, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
