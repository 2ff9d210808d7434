package service

import (
	"github.com/garyjia/legal-aid-claims/internal/application/port"
	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
)

// DefaultClaimPolicy reads claim-type rules from the claim's own flags
type DefaultClaimPolicy struct{}

var _ port.ClaimPolicy = DefaultClaimPolicy{}

// Hardship reports the claim's hardship flag
func (DefaultClaimPolicy) Hardship(claim *entity.Claim) bool {
	return claim.Hardship
}

// Rejectable is true for every claim type
func (DefaultClaimPolicy) Rejectable(*entity.Claim) bool {
	return true
}

// AllocationType is Fixed for fixed-fee claims and Grad otherwise
func (DefaultClaimPolicy) AllocationType(claim *entity.Claim) string {
	if claim.FixedFee {
		return entity.AllocationTypeFixed
	}
	return entity.AllocationTypeGrad
}
