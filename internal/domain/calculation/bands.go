package calculation

import (
	"fmt"

	"github.com/garyjia/legal-aid-claims/internal/domain/money"
)

// Band is a value band covering (previous band's Upper, Upper]. The first band starts at zero.
type Band struct {
	ID    int          `json:"id"`
	Name  string       `json:"name"`
	Upper money.Amount `json:"upper"`
}

// DefaultBands is the standard value band table
func DefaultBands() []Band {
	return []Band{
		{ID: 10, Name: "less than £25,000", Upper: money.MustParse("25000.00")},
		{ID: 20, Name: "£25,000 - £100,000", Upper: money.MustParse("100000.00")},
		{ID: 30, Name: "£100,000 - £150,000", Upper: money.MustParse("150000.00")},
		{ID: 40, Name: "more than £150,000", Upper: money.MustParse("99999999.99")},
	}
}

// BandClassifier maps a total to a value band
type BandClassifier struct {
	bands []Band
	byID  map[int]Band
}

// NewBandClassifier validates bands and builds a classifier.
// Bands must be non-empty, have unique ids and strictly ascending upper bounds.
func NewBandClassifier(bands []Band) (*BandClassifier, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("%w: no bands", ErrInvalidBandTable)
	}

	byID := make(map[int]Band, len(bands))
	for i, b := range bands {
		if _, dup := byID[b.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate band id %d", ErrInvalidBandTable, b.ID)
		}
		if !b.Upper.IsPositive() {
			return nil, fmt.Errorf("%w: band %d upper bound %s must be positive", ErrInvalidBandTable, b.ID, b.Upper)
		}
		if i > 0 && !b.Upper.GreaterThan(bands[i-1].Upper) {
			return nil, fmt.Errorf("%w: band %d upper bound %s does not exceed %s", ErrInvalidBandTable, b.ID, b.Upper, bands[i-1].Upper)
		}
		byID[b.ID] = b
	}

	return &BandClassifier{
		bands: append([]Band(nil), bands...),
		byID:  byID,
	}, nil
}

// MustBandClassifier panics when bands are invalid
func MustBandClassifier(bands []Band) *BandClassifier {
	c, err := NewBandClassifier(bands)
	if err != nil {
		panic(err)
	}
	return c
}

// BandFor returns the first band whose upper bound is at least amount
func (c *BandClassifier) BandFor(amount money.Amount) (Band, error) {
	for _, b := range c.bands {
		if amount.LessThanOrEqual(b.Upper) {
			return b, nil
		}
	}
	return Band{}, &BandOverflowError{Amount: amount, Limit: c.bands[len(c.bands)-1].Upper}
}

// BandByID looks up a band by id
func (c *BandClassifier) BandByID(id int) (Band, bool) {
	b, ok := c.byID[id]
	return b, ok
}

// Bands returns the table in ascending order
func (c *BandClassifier) Bands() []Band {
	return append([]Band(nil), c.bands...)
}
