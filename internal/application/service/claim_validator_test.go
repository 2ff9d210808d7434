package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	"github.com/garyjia/legal-aid-claims/internal/domain/workflow"
)

func TestDefaultClaimPolicy(t *testing.T) {
	policy := DefaultClaimPolicy{}

	tests := []struct {
		name           string
		claim          entity.Claim
		hardship       bool
		allocationType string
	}{
		{"graduated", entity.Claim{}, false, entity.AllocationTypeGrad},
		{"fixed fee", entity.Claim{FixedFee: true}, false, entity.AllocationTypeFixed},
		{"hardship", entity.Claim{Hardship: true}, true, entity.AllocationTypeGrad},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.hardship, policy.Hardship(&tt.claim))
			assert.Equal(t, tt.allocationType, policy.AllocationType(&tt.claim))
			assert.True(t, policy.Rejectable(&tt.claim))
		})
	}
}

func TestClaimValidator_Full(t *testing.T) {
	store := newMemStore()
	v := NewClaimValidator(assessmentStore{store}, redeterminationStore{store})
	ctx := context.Background()

	t.Run("draft with case number", func(t *testing.T) {
		claim := entity.NewClaim("T1", testNow)
		assert.NoError(t, v.Validate(ctx, claim, workflow.ValidationFull))
	})

	t.Run("missing case number", func(t *testing.T) {
		claim := entity.NewClaim("", testNow)
		assert.Error(t, v.Validate(ctx, claim, workflow.ValidationFull))
	})

	t.Run("submitted without submission stamps", func(t *testing.T) {
		claim := entity.NewClaim("T1", testNow)
		claim.State = workflow.StateSubmitted
		assert.Error(t, v.Validate(ctx, claim, workflow.ValidationFull))
	})

	t.Run("submitted with stamps", func(t *testing.T) {
		claim := entity.NewClaim("T1", testNow)
		claim.State = workflow.StateSubmitted
		now := testNow
		claim.LastSubmittedAt = &now
		claim.OriginalSubmissionDate = &now
		claim.AllocationType = entity.AllocationTypeFixed
		assert.NoError(t, v.Validate(ctx, claim, workflow.ValidationFull))
	})

	t.Run("undeclared state", func(t *testing.T) {
		claim := entity.NewClaim("T1", testNow)
		claim.State = workflow.State("limbo")
		assert.Error(t, v.Validate(ctx, claim, workflow.ValidationFull))
	})
}

func TestClaimValidator_SuppressAll(t *testing.T) {
	store := newMemStore()
	v := NewClaimValidator(assessmentStore{store}, redeterminationStore{store})

	claim := entity.NewClaim("", testNow)
	claim.State = workflow.StateAllocated
	assert.NoError(t, v.Validate(context.Background(), claim, workflow.ValidationSuppressAll))
}

func TestClaimValidator_OnlyAmountAssessed(t *testing.T) {
	ctx := context.Background()
	claim := entity.NewClaim("", testNow)

	t.Run("no assessment", func(t *testing.T) {
		store := newMemStore()
		v := NewClaimValidator(assessmentStore{store}, redeterminationStore{store})
		assert.ErrorIs(t, v.Validate(ctx, claim, workflow.ValidationOnlyAmountAssessed), ErrAmountNotAssessed)
	})

	t.Run("zero assessment", func(t *testing.T) {
		store := newMemStore()
		a := &entity.Assessment{ClaimID: claim.ID}
		a.Zeroize()
		require.NoError(t, assessmentStore{store}.Save(ctx, a))
		v := NewClaimValidator(assessmentStore{store}, redeterminationStore{store})
		assert.ErrorIs(t, v.Validate(ctx, claim, workflow.ValidationOnlyAmountAssessed), ErrAmountNotAssessed)
	})

	t.Run("positive assessment ignores other rules", func(t *testing.T) {
		store := newMemStore()
		require.NoError(t, assessmentStore{store}.Save(ctx, &entity.Assessment{
			ClaimID: claim.ID,
			Amounts: entity.Amounts{Fees: *amt("1.00")},
		}))
		v := NewClaimValidator(assessmentStore{store}, redeterminationStore{store})
		assert.NoError(t, v.Validate(ctx, claim, workflow.ValidationOnlyAmountAssessed))
	})

	t.Run("latest redetermination wins over assessment", func(t *testing.T) {
		store := newMemStore()
		require.NoError(t, assessmentStore{store}.Save(ctx, &entity.Assessment{
			ClaimID: claim.ID,
			Amounts: entity.Amounts{Fees: *amt("1.00")},
		}))
		require.NoError(t, redeterminationStore{store}.Create(ctx, &entity.Redetermination{
			ClaimID:   claim.ID,
			Amounts:   entity.Amounts{Fees: *amt("5.00")},
			CreatedAt: day(2016, 1, 1),
		}))
		require.NoError(t, redeterminationStore{store}.Create(ctx, &entity.Redetermination{
			ClaimID:   claim.ID,
			CreatedAt: day(2016, 2, 1),
		}))
		v := NewClaimValidator(assessmentStore{store}, redeterminationStore{store})
		assert.ErrorIs(t, v.Validate(ctx, claim, workflow.ValidationOnlyAmountAssessed), ErrAmountNotAssessed)
	})
}

func TestClaimValidator_UnknownMode(t *testing.T) {
	store := newMemStore()
	v := NewClaimValidator(assessmentStore{store}, redeterminationStore{store})
	assert.Error(t, v.Validate(context.Background(), entity.NewClaim("T1", testNow), workflow.ValidationMode("partial")))
}
