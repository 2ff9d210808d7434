package calculation

import (
	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	"github.com/garyjia/legal-aid-claims/internal/domain/money"
)

// Subtotals are the per-category sums of a claim's line items
type Subtotals struct {
	Fees          money.Amount
	Expenses      money.Amount
	Disbursements money.Amount

	// item-level VAT carried by expenses and disbursements
	ExpensesVat      money.Amount
	DisbursementsVat money.Amount
}

// Total sums the three category subtotals
func (s Subtotals) Total() money.Amount {
	return money.Sum(s.Fees, s.Expenses, s.Disbursements)
}

// Sum adds the amounts of the items in category, counting nil amounts as zero
func Sum(items []entity.LineItem, category entity.Category) money.Amount {
	total := money.Zero
	for _, item := range items {
		if item.Category == category {
			total = total.Add(item.AmountOrZero())
		}
	}
	return total
}

// SumVat adds the item VAT of the items in category. Fees never carry item VAT.
func SumVat(items []entity.LineItem, category entity.Category) money.Amount {
	if category == entity.CategoryFee {
		return money.Zero
	}
	total := money.Zero
	for _, item := range items {
		if item.Category == category {
			total = total.Add(item.VatOrZero())
		}
	}
	return total
}

// Aggregate computes every subtotal in one pass
func Aggregate(items []entity.LineItem) Subtotals {
	return Subtotals{
		Fees:             Sum(items, entity.CategoryFee),
		Expenses:         Sum(items, entity.CategoryExpense),
		Disbursements:    Sum(items, entity.CategoryDisbursement),
		ExpensesVat:      SumVat(items, entity.CategoryExpense),
		DisbursementsVat: SumVat(items, entity.CategoryDisbursement),
	}
}
