package calculation

import (
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/legal-aid-claims/internal/domain/money"
)

var (
	// ErrNoApplicableRate is returned when no VAT rate covers the reference date
	ErrNoApplicableRate = errors.New("no applicable VAT rate")

	// ErrBandOverflow is returned when an amount exceeds the highest value band
	ErrBandOverflow = errors.New("amount exceeds highest value band")

	// ErrInvalidBandTable is returned when a band table is empty, unordered or has gaps
	ErrInvalidBandTable = errors.New("invalid value band table")
)

// NoApplicableRateError carries the date no rate was found for
type NoApplicableRateError struct {
	Date time.Time
}

func (e *NoApplicableRateError) Error() string {
	return fmt.Sprintf("%v on %s", ErrNoApplicableRate, e.Date.Format("2006-01-02"))
}

func (e *NoApplicableRateError) Unwrap() error {
	return ErrNoApplicableRate
}

// BandOverflowError carries the amount that could not be classified
type BandOverflowError struct {
	Amount money.Amount
	Limit  money.Amount
}

func (e *BandOverflowError) Error() string {
	return fmt.Sprintf("%v: %s > %s", ErrBandOverflow, e.Amount, e.Limit)
}

func (e *BandOverflowError) Unwrap() error {
	return ErrBandOverflow
}
