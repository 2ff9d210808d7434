package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/garyjia/legal-aid-claims/internal/application/port"
	"github.com/garyjia/legal-aid-claims/internal/domain/audit"
	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	"github.com/garyjia/legal-aid-claims/internal/domain/workflow"
)

// ErrAmountNotAssessed is returned when a claim is authorised without any assessed value
var ErrAmountNotAssessed = errors.New("assessed amount must be greater than zero")

// StructClaimValidator checks claims with validator/v10 struct rules
type StructClaimValidator struct {
	assessments      port.AssessmentRepository
	redeterminations port.RedeterminationRepository
	validate         *validator.Validate
}

var _ port.ClaimValidator = (*StructClaimValidator)(nil)

// NewClaimValidator creates a validator that reads determinations for amount checks
func NewClaimValidator(assessments port.AssessmentRepository, redeterminations port.RedeterminationRepository) *StructClaimValidator {
	v := validator.New()
	v.RegisterStructValidation(claimStructLevel, entity.Claim{})
	return &StructClaimValidator{assessments: assessments, redeterminations: redeterminations, validate: v}
}

// Validate applies the rules selected by mode
func (v *StructClaimValidator) Validate(ctx context.Context, claim *entity.Claim, mode workflow.ValidationMode) error {
	switch mode {
	case workflow.ValidationSuppressAll:
		return nil
	case workflow.ValidationOnlyAmountAssessed:
		return v.checkAmountAssessed(ctx, claim.ID)
	case workflow.ValidationFull:
		if err := v.validate.Struct(claim); err != nil {
			return fmt.Errorf("claim %s: %w", claim.ID, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown validation mode %q", mode)
	}
}

// checkAmountAssessed passes when the latest redetermination, or failing that the
// assessment, has a positive value
func (v *StructClaimValidator) checkAmountAssessed(ctx context.Context, claimID string) error {
	if v.redeterminations != nil {
		rs, err := v.redeterminations.ListByClaimID(ctx, claimID)
		if err != nil {
			return fmt.Errorf("failed to load redeterminations: %w", err)
		}
		if latest, ok := audit.LatestRedetermination(rs); ok {
			if latest.AnyPositive() {
				return nil
			}
			return ErrAmountNotAssessed
		}
	}

	assessment, err := v.assessments.GetByClaimID(ctx, claimID)
	if errors.Is(err, port.ErrNotFound) {
		return ErrAmountNotAssessed
	}
	if err != nil {
		return fmt.Errorf("failed to load assessment: %w", err)
	}
	if !assessment.AnyPositive() {
		return ErrAmountNotAssessed
	}
	return nil
}

// claimStructLevel adds the cross-field rules of a claim
func claimStructLevel(sl validator.StructLevel) {
	claim := sl.Current().Interface().(entity.Claim)

	if !claim.State.IsValid() {
		sl.ReportError(claim.State, "State", "State", "claim_state", "")
	}

	if claim.State == workflow.StateSubmitted {
		if claim.LastSubmittedAt == nil {
			sl.ReportError(claim.LastSubmittedAt, "LastSubmittedAt", "LastSubmittedAt", "required_when_submitted", "")
		}
		if claim.OriginalSubmissionDate == nil {
			sl.ReportError(claim.OriginalSubmissionDate, "OriginalSubmissionDate", "OriginalSubmissionDate", "required_when_submitted", "")
		}
		if claim.AllocationType != entity.AllocationTypeGrad && claim.AllocationType != entity.AllocationTypeFixed {
			sl.ReportError(claim.AllocationType, "AllocationType", "AllocationType", "allocation_type", "")
		}
	}
}
