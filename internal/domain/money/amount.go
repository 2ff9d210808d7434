// Package money provides the fixed-precision monetary value used by claim totals,
// line items and assessments. Amounts are backed by shopspring/decimal and never
// pass through float64.
package money

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places money is rounded to
const Places = 2

// Amount is a monetary value in pounds
type Amount struct {
	d decimal.Decimal
}

// Zero is the zero amount
var Zero = Amount{d: decimal.Zero}

// New wraps a decimal as an Amount
func New(d decimal.Decimal) Amount {
	return Amount{d: d}
}

// FromCents builds an Amount from a whole number of pence
func FromCents(cents int64) Amount {
	return Amount{d: decimal.New(cents, -Places)}
}

// Parse parses a decimal string such as "1234.56"
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Amount{d: d}, nil
}

// MustParse parses s and panics on failure. Intended for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Sum adds all amounts together
func Sum(amounts ...Amount) Amount {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.d)
	}
	return Amount{d: total}
}

func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d)} }
func (a Amount) Sub(b Amount) Amount { return Amount{d: a.d.Sub(b.d)} }
func (a Amount) Mul(f decimal.Decimal) Amount { return Amount{d: a.d.Mul(f)} }
func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }
func (a Amount) Equal(b Amount) bool { return a.d.Equal(b.d) }
func (a Amount) GreaterThan(b Amount) bool { return a.d.GreaterThan(b.d) }
func (a Amount) LessThanOrEqual(b Amount) bool { return a.d.LessThanOrEqual(b.d) }
func (a Amount) IsZero() bool { return a.d.IsZero() }
func (a Amount) IsNegative() bool { return a.d.IsNegative() }
func (a Amount) IsPositive() bool { return a.d.IsPositive() }
func (a Amount) Decimal() decimal.Decimal { return a.d }

// RoundHalfUp rounds to Places decimal places, ties away from zero
func (a Amount) RoundHalfUp() Amount {
	return Amount{d: a.d.Round(Places)}
}

// Cents returns the amount in whole pence after rounding
func (a Amount) Cents() int64 {
	return a.RoundHalfUp().d.Shift(Places).IntPart()
}

// String renders the amount with exactly two decimal places
func (a Amount) String() string {
	return a.d.StringFixed(Places)
}

// MarshalJSON renders the amount as a quoted fixed-point string
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted strings and bare numbers
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*a = Zero
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Scan implements sql.Scanner; NULL scans as zero
func (a *Amount) Scan(value interface{}) error {
	if value == nil {
		*a = Zero
		return nil
	}
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return fmt.Errorf("failed to scan amount: %w", err)
	}
	a.d = d
	return nil
}

// Value implements driver.Valuer; amounts are stored as decimal text
func (a Amount) Value() (driver.Value, error) {
	return a.d.String(), nil
}
