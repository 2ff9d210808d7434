package calculation

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	"github.com/garyjia/legal-aid-claims/internal/domain/money"
)

// RateTable is an effective-dated set of VAT rates
type RateTable struct {
	rates []entity.VatRate
}

// NewRateTable sorts rates by start date
func NewRateTable(rates []entity.VatRate) *RateTable {
	sorted := append([]entity.VatRate(nil), rates...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].EffectiveFrom.Before(sorted[j].EffectiveFrom)
	})
	return &RateTable{rates: sorted}
}

// RateAt returns the rate covering date. When ranges overlap the latest start wins.
func (t *RateTable) RateAt(date time.Time) (decimal.Decimal, error) {
	for i := len(t.rates) - 1; i >= 0; i-- {
		if t.rates[i].Covers(date) {
			return t.rates[i].Rate, nil
		}
	}
	return decimal.Zero, &NoApplicableRateError{Date: date}
}

// Rates returns the table contents in start order
func (t *RateTable) Rates() []entity.VatRate {
	return append([]entity.VatRate(nil), t.rates...)
}

// VatCalculator computes VAT on a subtotal
type VatCalculator struct {
	table *RateTable
}

// NewVatCalculator creates a calculator over table
func NewVatCalculator(table *RateTable) *VatCalculator {
	return &VatCalculator{table: table}
}

// VatAmount returns subtotal times the rate effective on date, rounded half-up to pence.
// No rate lookup happens when applyVat is false.
func (c *VatCalculator) VatAmount(subtotal money.Amount, date time.Time, applyVat bool) (money.Amount, error) {
	if !applyVat {
		return money.Zero, nil
	}
	rate, err := c.table.RateAt(date)
	if err != nil {
		return money.Zero, err
	}
	return subtotal.Mul(rate).RoundHalfUp(), nil
}
