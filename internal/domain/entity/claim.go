package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/legal-aid-claims/internal/domain/workflow"
)

// Allocation types stamped on a claim when it is submitted
const (
	AllocationTypeGrad  = "Grad"
	AllocationTypeFixed = "Fixed"
)

// Claim is the aggregate root moving through the lifecycle
type Claim struct {
	ID                     string         `json:"id"`
	State                  workflow.State `json:"state"`
	CaseNumber             string         `json:"case_number" validate:"required"`
	Hardship               bool           `json:"hardship"`
	FixedFee               bool           `json:"fixed_fee"`
	AllocationType         string         `json:"allocation_type,omitempty"`
	ApplyVat               bool           `json:"apply_vat"`
	LastSubmittedAt        *time.Time     `json:"last_submitted_at,omitempty"`
	OriginalSubmissionDate *time.Time     `json:"original_submission_date,omitempty"`
	AuthorisedAt           *time.Time     `json:"authorised_at,omitempty"`
	ValidUntil             *time.Time     `json:"valid_until,omitempty"`
	CaseWorkerIDs          []string       `json:"case_worker_ids"`
	Totals                 ClaimTotals    `json:"totals"`
	LockVersion            int64          `json:"lock_version"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
}

// NewClaimID returns a fresh opaque claim identifier
func NewClaimID() string {
	return uuid.NewString()
}

// NewClaim creates a draft claim
func NewClaim(caseNumber string, now time.Time) *Claim {
	return &Claim{
		ID:         NewClaimID(),
		State:      workflow.InitialState,
		CaseNumber: caseNumber,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// VatDate returns the date VAT rates are looked up for
func (c *Claim) VatDate(now time.Time) time.Time {
	if c.OriginalSubmissionDate != nil {
		return *c.OriginalSubmissionDate
	}
	return now
}

// ClearCaseWorkers removes every assigned assessor
func (c *Claim) ClearCaseWorkers() {
	c.CaseWorkerIDs = nil
}

// Clone returns a deep copy so hooks can mutate without touching the caller's value
func (c *Claim) Clone() *Claim {
	cp := *c
	cp.CaseWorkerIDs = append([]string(nil), c.CaseWorkerIDs...)
	cp.LastSubmittedAt = copyTime(c.LastSubmittedAt)
	cp.OriginalSubmissionDate = copyTime(c.OriginalSubmissionDate)
	cp.AuthorisedAt = copyTime(c.AuthorisedAt)
	cp.ValidUntil = copyTime(c.ValidUntil)
	return &cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
