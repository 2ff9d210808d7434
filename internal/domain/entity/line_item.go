package entity

import (
	"fmt"
	"time"

	"github.com/garyjia/legal-aid-claims/internal/domain/money"
)

// Category groups line items into the three claim subtotals
type Category string

const (
	CategoryFee          Category = "fee"
	CategoryExpense      Category = "expense"
	CategoryDisbursement Category = "disbursement"
)

// Categories lists every category in totals order
func Categories() []Category {
	return []Category{CategoryFee, CategoryExpense, CategoryDisbursement}
}

// IsValid reports whether c is a known category
func (c Category) IsValid() bool {
	switch c {
	case CategoryFee, CategoryExpense, CategoryDisbursement:
		return true
	}
	return false
}

// ParseCategory converts a stored value into a Category
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.IsValid() {
		return "", fmt.Errorf("unknown line item category %q", s)
	}
	return c, nil
}

// LineItem is a fee, expense or disbursement on a claim.
// A nil Amount or VatAmount counts as zero.
type LineItem struct {
	ID          int64         `json:"id"`
	ClaimID     string        `json:"claim_id" validate:"required"`
	Category    Category      `json:"category" validate:"required,oneof=fee expense disbursement"`
	Description string        `json:"description,omitempty"`
	Amount      *money.Amount `json:"amount,omitempty"`
	VatAmount   *money.Amount `json:"vat_amount,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// AmountOrZero returns the item amount with nil treated as zero
func (i LineItem) AmountOrZero() money.Amount {
	if i.Amount == nil {
		return money.Zero
	}
	return *i.Amount
}

// VatOrZero returns the item VAT with nil treated as zero
func (i LineItem) VatOrZero() money.Amount {
	if i.VatAmount == nil {
		return money.Zero
	}
	return *i.VatAmount
}
