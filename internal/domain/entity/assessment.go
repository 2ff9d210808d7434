package entity

import (
	"time"

	"github.com/garyjia/legal-aid-claims/internal/domain/money"
)

// Amounts are assessed fees, expenses and disbursements
type Amounts struct {
	Fees          money.Amount `json:"fees"`
	Expenses      money.Amount `json:"expenses"`
	Disbursements money.Amount `json:"disbursements"`
}

// Total sums the three amounts
func (a Amounts) Total() money.Amount {
	return money.Sum(a.Fees, a.Expenses, a.Disbursements)
}

// IsZero reports whether nothing has been assessed
func (a Amounts) IsZero() bool {
	return a.Fees.IsZero() && a.Expenses.IsZero() && a.Disbursements.IsZero()
}

// AnyPositive reports whether at least one amount is above zero
func (a Amounts) AnyPositive() bool {
	return a.Fees.IsPositive() || a.Expenses.IsPositive() || a.Disbursements.IsPositive()
}

// Assessment holds the assessor-entered amounts for a claim. There is at most one per claim.
type Assessment struct {
	ID      int64  `json:"id"`
	ClaimID string `json:"claim_id"`
	Amounts
	UpdatedAt time.Time `json:"updated_at"`
}

// Zeroize resets the assessed amounts without removing the assessment
func (a *Assessment) Zeroize() {
	a.Amounts = Amounts{Fees: money.Zero, Expenses: money.Zero, Disbursements: money.Zero}
}

// Redetermination is an assessment entered after a claim was reopened
type Redetermination struct {
	ID      int64  `json:"id"`
	ClaimID string `json:"claim_id"`
	Amounts
	CreatedAt time.Time `json:"created_at"`
}
