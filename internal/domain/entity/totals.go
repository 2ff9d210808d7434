package entity

import (
	"time"

	"github.com/garyjia/legal-aid-claims/internal/domain/money"
)

// ClaimTotals holds every figure derived from a claim's line items.
// Total excludes VAT; VatAmount is the sum of the three category VAT figures.
type ClaimTotals struct {
	FeesTotal          money.Amount `json:"fees_total"`
	ExpensesTotal      money.Amount `json:"expenses_total"`
	DisbursementsTotal money.Amount `json:"disbursements_total"`
	FeesVat            money.Amount `json:"fees_vat"`
	ExpensesVat        money.Amount `json:"expenses_vat"`
	DisbursementsVat   money.Amount `json:"disbursements_vat"`
	VatAmount          money.Amount `json:"vat_amount"`
	Total              money.Amount `json:"total"`
	ValueBandID        int          `json:"value_band_id"`
	CalculatedAt       time.Time    `json:"calculated_at"`
}

// TotalWithVat is the figure value bands are classified on
func (t ClaimTotals) TotalWithVat() money.Amount {
	return t.Total.Add(t.VatAmount)
}

// SameFigures compares the money fields and band, ignoring CalculatedAt
func (t ClaimTotals) SameFigures(o ClaimTotals) bool {
	return t.FeesTotal.Equal(o.FeesTotal) &&
		t.ExpensesTotal.Equal(o.ExpensesTotal) &&
		t.DisbursementsTotal.Equal(o.DisbursementsTotal) &&
		t.FeesVat.Equal(o.FeesVat) &&
		t.ExpensesVat.Equal(o.ExpensesVat) &&
		t.DisbursementsVat.Equal(o.DisbursementsVat) &&
		t.VatAmount.Equal(o.VatAmount) &&
		t.Total.Equal(o.Total) &&
		t.ValueBandID == o.ValueBandID
}
