package calculation

import (
	"time"

	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	"github.com/garyjia/legal-aid-claims/internal/domain/money"
)

// TotalsCalculator derives ClaimTotals from line items
type TotalsCalculator struct {
	vat   *VatCalculator
	bands *BandClassifier
}

// NewTotalsCalculator creates a calculator
func NewTotalsCalculator(vat *VatCalculator, bands *BandClassifier) *TotalsCalculator {
	return &TotalsCalculator{vat: vat, bands: bands}
}

// Input is everything a recomputation reads
type Input struct {
	Items    []entity.LineItem
	ApplyVat bool
	VatDate  time.Time
	Now      time.Time
}

// Compute recomputes every figure. Rate and band errors are returned unchanged.
func (c *TotalsCalculator) Compute(in Input) (entity.ClaimTotals, error) {
	sub := Aggregate(in.Items)

	feesVat, err := c.vat.VatAmount(sub.Fees, in.VatDate, in.ApplyVat)
	if err != nil {
		return entity.ClaimTotals{}, err
	}

	totals := entity.ClaimTotals{
		FeesTotal:          sub.Fees,
		ExpensesTotal:      sub.Expenses,
		DisbursementsTotal: sub.Disbursements,
		FeesVat:            feesVat,
		ExpensesVat:        sub.ExpensesVat,
		DisbursementsVat:   sub.DisbursementsVat,
		VatAmount:          money.Sum(feesVat, sub.ExpensesVat, sub.DisbursementsVat),
		Total:              sub.Total(),
		CalculatedAt:       in.Now,
	}

	band, err := c.bands.BandFor(totals.TotalWithVat())
	if err != nil {
		return entity.ClaimTotals{}, err
	}
	totals.ValueBandID = band.ID

	return totals, nil
}

// Bands exposes the classifier in use
func (c *TotalsCalculator) Bands() *BandClassifier {
	return c.bands
}
