package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// VatRate is a VAT percentage effective over [EffectiveFrom, EffectiveTo).
// A nil EffectiveTo is open-ended.
type VatRate struct {
	ID            int64           `json:"id"`
	Rate          decimal.Decimal `json:"rate"`
	EffectiveFrom time.Time       `json:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to,omitempty"`
}

// Covers reports whether the rate applies on date
func (r VatRate) Covers(date time.Time) bool {
	if date.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || date.Before(*r.EffectiveTo)
}
